package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

const userSelect = `
	SELECT id, dni, full_name, email, phone, tshirt_size, is_member, attended_previous, is_over_18,
		how_they_heard, role, status, created_at
	FROM users`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	var role, status string
	if err := row.Scan(&u.ID, &u.DNI, &u.FullName, &u.Email, &u.Phone, &u.TShirtSize, &u.IsMember, &u.AttendedPrevious, &u.IsOver18,
		&u.HowTheyHeard, &role, &status, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.UserRole(role)
	u.Status = model.UserStatus(status)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// GetUser retrieves a user by id
func (q queries) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(q.q.QueryRow(ctx, userSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// ListUsers retrieves the users with the given ids, or all users when ids is nil
func (q queries) ListUsers(ctx context.Context, ids []string) ([]model.User, error) {
	var rows pgx.Rows
	var err error
	if ids == nil {
		rows, err = q.q.Query(ctx, userSelect+` ORDER BY id`)
	} else {
		rows, err = q.q.Query(ctx, userSelect+` WHERE id = ANY($1) ORDER BY id`, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// SaveUser inserts or updates a user
func (q queries) SaveUser(ctx context.Context, u *model.User) error {
	_, err := q.q.Exec(ctx, `
		INSERT INTO users (id, dni, full_name, email, phone, tshirt_size, is_member, attended_previous, is_over_18,
			how_they_heard, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			dni = EXCLUDED.dni,
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			tshirt_size = EXCLUDED.tshirt_size,
			is_member = EXCLUDED.is_member,
			attended_previous = EXCLUDED.attended_previous,
			is_over_18 = EXCLUDED.is_over_18,
			how_they_heard = EXCLUDED.how_they_heard,
			role = EXCLUDED.role,
			status = EXCLUDED.status
	`, u.ID, u.DNI, u.FullName, u.Email, u.Phone, u.TShirtSize, u.IsMember, u.AttendedPrevious, u.IsOver18,
		u.HowTheyHeard, string(u.Role), string(u.Status), u.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}
