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

const bookingSelect = `
	SELECT id, user_id, shift_id, event_id, status, attendance, food_delivered, requested_at, cancelled_at
	FROM bookings`

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	var status, attendance string
	var cancelledAt *time.Time
	if err := row.Scan(&b.ID, &b.UserID, &b.ShiftID, &b.EventID, &status, &attendance, &b.FoodDelivered, &b.RequestedAt, &cancelledAt); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	b.Attendance = model.Attendance(attendance)
	b.RequestedAt = b.RequestedAt.UTC()
	if cancelledAt != nil {
		t := cancelledAt.UTC()
		b.CancelledAt = &t
	}
	return &b, nil
}

// GetBooking retrieves a booking by id
func (q queries) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(q.q.QueryRow(ctx, bookingSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// QueryBookings retrieves bookings matching the filter ordered by request time
func (q queries) QueryBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	rows, err := q.q.Query(ctx, bookingSelect+`
		WHERE ($1::text = '' OR shift_id = $1)
			AND ($2::text = '' OR user_id = $2)
			AND ($3::text = '' OR event_id = $3)
			AND (cardinality($4::text[]) = 0 OR status = ANY($4))
		ORDER BY requested_at, id
	`, filter.ShiftID, filter.UserID, filter.EventID, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

// SaveBooking inserts or updates a booking
func (q queries) SaveBooking(ctx context.Context, b *model.Booking) error {
	var cancelledAt *time.Time
	if b.CancelledAt != nil {
		t := b.CancelledAt.UTC()
		cancelledAt = &t
	}

	_, err := q.q.Exec(ctx, `
		INSERT INTO bookings (id, user_id, shift_id, event_id, status, attendance, food_delivered, requested_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attendance = EXCLUDED.attendance,
			food_delivered = EXCLUDED.food_delivered,
			cancelled_at = EXCLUDED.cancelled_at
	`, b.ID, b.UserID, b.ShiftID, b.EventID, string(b.Status), string(b.Attendance), b.FoodDelivered, b.RequestedAt.UTC(), cancelledAt)
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}
