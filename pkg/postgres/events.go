package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

const eventSelect = `
	SELECT id, slug, name, location, country, start_date, end_date, description, state, created_at
	FROM events`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var start, end time.Time
	var state string
	if err := row.Scan(&e.ID, &e.Slug, &e.Name, &e.Location, &e.Country, &start, &end, &e.Description, &state, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.StartDate = start.Format(model.DateLayout)
	e.EndDate = end.Format(model.DateLayout)
	e.State = model.EventState(state)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}

func (q queries) getEvent(ctx context.Context, sql string, arg string) (*model.Event, error) {
	e, err := scanEvent(q.q.QueryRow(ctx, sql, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", arg, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// GetEvent retrieves an event by id
func (q queries) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return q.getEvent(ctx, eventSelect+` WHERE id = $1`, id)
}

// GetEventBySlug retrieves an event by its unique slug
func (q queries) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	return q.getEvent(ctx, eventSelect+` WHERE slug = $1`, slug)
}

// ListEvents retrieves all events ordered by start date
func (q queries) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := q.q.Query(ctx, eventSelect+` ORDER BY start_date, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// SaveEvent inserts or updates an event
func (q queries) SaveEvent(ctx context.Context, e *model.Event) error {
	_, err := q.q.Exec(ctx, `
		INSERT INTO events (id, slug, name, location, country, start_date, end_date, description, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			slug = EXCLUDED.slug,
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			country = EXCLUDED.country,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			description = EXCLUDED.description,
			state = EXCLUDED.state
	`, e.ID, e.Slug, e.Name, e.Location, e.Country, e.StartDate, e.EndDate, e.Description, string(e.State), e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

const roleSelect = `
	SELECT id, event_id, name, description, detailed_tasks, youtube_url, experience_level,
		requires_approval, hidden, created_at
	FROM roles`

func scanRole(row pgx.Row) (*model.Role, error) {
	var r model.Role
	var level string
	if err := row.Scan(&r.ID, &r.EventID, &r.Name, &r.Description, &r.DetailedTasks, &r.YouTubeURL, &level,
		&r.RequiresApproval, &r.Hidden, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ExperienceLevel = model.ExperienceLevel(level)
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

// GetRole retrieves a role by id
func (q queries) GetRole(ctx context.Context, id string) (*model.Role, error) {
	r, err := scanRole(q.q.QueryRow(ctx, roleSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("role %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return r, nil
}

// ListRoles retrieves the roles of an event ordered by name
func (q queries) ListRoles(ctx context.Context, eventID string) ([]model.Role, error) {
	rows, err := q.q.Query(ctx, roleSelect+` WHERE event_id = $1 ORDER BY name, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

// SaveRole inserts or updates a role
func (q queries) SaveRole(ctx context.Context, r *model.Role) error {
	_, err := q.q.Exec(ctx, `
		INSERT INTO roles (id, event_id, name, description, detailed_tasks, youtube_url, experience_level,
			requires_approval, hidden, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			detailed_tasks = EXCLUDED.detailed_tasks,
			youtube_url = EXCLUDED.youtube_url,
			experience_level = EXCLUDED.experience_level,
			requires_approval = EXCLUDED.requires_approval,
			hidden = EXCLUDED.hidden
	`, r.ID, r.EventID, r.Name, r.Description, r.DetailedTasks, r.YouTubeURL, string(r.ExperienceLevel),
		r.RequiresApproval, r.Hidden, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save role: %w", err)
	}
	return nil
}
