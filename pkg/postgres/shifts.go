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

const shiftSelect = `
	SELECT id, event_id, date, time_slot, role_id, total_vacancies, available_vacancies, coordinator_ids
	FROM shifts`

func scanShift(row pgx.Row) (*model.Shift, error) {
	var s model.Shift
	var date time.Time
	if err := row.Scan(&s.ID, &s.EventID, &date, &s.TimeSlot, &s.RoleID, &s.TotalVacancies, &s.AvailableVacancies, &s.CoordinatorIDs); err != nil {
		return nil, err
	}
	s.Date = date.Format(model.DateLayout)
	if s.CoordinatorIDs == nil {
		s.CoordinatorIDs = []string{}
	}
	return &s, nil
}

func (q queries) getShift(ctx context.Context, sql string, id string) (*model.Shift, error) {
	s, err := scanShift(q.q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("shift %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return s, nil
}

// GetShift retrieves a shift by id without locking it
func (q queries) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	return q.getShift(ctx, shiftSelect+` WHERE id = $1`, id)
}

// ListShifts retrieves shifts matching the filter ordered by date and time slot
func (q queries) ListShifts(ctx context.Context, filter db.ShiftFilter) ([]model.Shift, error) {
	rows, err := q.q.Query(ctx, shiftSelect+`
		WHERE ($1::text = '' OR event_id = $1)
			AND ($2::text = '' OR date = NULLIF($2::text, '')::date)
			AND ($3::text = '' OR time_slot = $3)
			AND ($4::text = '' OR role_id = $4)
			AND ($5::text = '' OR $5 = ANY(coordinator_ids))
		ORDER BY date, time_slot, id
	`, filter.EventID, filter.Date, filter.TimeSlot, filter.RoleID, filter.CoordinatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []model.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		shifts = append(shifts, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shifts: %w", err)
	}

	return shifts, nil
}

// SaveShift inserts or updates a shift
func (q queries) SaveShift(ctx context.Context, s *model.Shift) error {
	coordinators := s.CoordinatorIDs
	if coordinators == nil {
		coordinators = []string{}
	}

	_, err := q.q.Exec(ctx, `
		INSERT INTO shifts (id, event_id, date, time_slot, role_id, total_vacancies, available_vacancies, coordinator_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			date = EXCLUDED.date,
			time_slot = EXCLUDED.time_slot,
			total_vacancies = EXCLUDED.total_vacancies,
			available_vacancies = EXCLUDED.available_vacancies,
			coordinator_ids = EXCLUDED.coordinator_ids
	`, s.ID, s.EventID, s.Date, s.TimeSlot, s.RoleID, s.TotalVacancies, s.AvailableVacancies, coordinators)
	if err != nil {
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

// DeleteShift removes the shift's bookings and then the shift itself.
// Outside a transaction, use DB.DeleteShift so both go together.
func (q queries) DeleteShift(ctx context.Context, id string) error {
	if _, err := q.q.Exec(ctx, `DELETE FROM bookings WHERE shift_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete bookings of shift: %w", err)
	}

	tag, err := q.q.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shift: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shift %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// DeleteShift removes the shift and its bookings in one transaction
func (d *DB) DeleteShift(ctx context.Context, id string) error {
	return d.InTx(ctx, func(tx db.Tx) error {
		return tx.DeleteShift(ctx, id)
	})
}
