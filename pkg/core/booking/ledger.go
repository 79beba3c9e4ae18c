package booking

import (
	"context"
	"fmt"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

// LedgerTx is the part of a store transaction the ledger needs
type LedgerTx interface {
	QueryBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error)
	SaveShift(ctx context.Context, shift *model.Shift) error
}

// Ledger tracks occupied capacity per shift. The shift's AvailableVacancies
// field is a cache recomputed from the booking set on every change.
// Callers must hold the shift lock of the surrounding transaction.
type Ledger struct{}

// OccupiedCount counts bookings on the shift that hold a vacancy
func (Ledger) OccupiedCount(ctx context.Context, tx LedgerTx, shiftID string) (int, error) {
	bookings, err := tx.QueryBookings(ctx, db.BookingFilter{
		ShiftID:  shiftID,
		Statuses: OccupyingStatuses,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count occupied vacancies: %w", err)
	}
	return len(bookings), nil
}

// TryReserve fails with ErrCapacityExceeded when the shift is full.
// The caller inserts the booking in the same transaction on success.
func (l Ledger) TryReserve(ctx context.Context, tx LedgerTx, shift *model.Shift) error {
	occupied, err := l.OccupiedCount(ctx, tx, shift.ID)
	if err != nil {
		return err
	}
	if occupied >= shift.TotalVacancies {
		return fmt.Errorf("shift %s (%d/%d occupied): %w", shift.ID, occupied, shift.TotalVacancies, ErrCapacityExceeded)
	}
	return nil
}

// Release recomputes and persists the shift's available vacancies after a
// booking was inserted or changed status
func (l Ledger) Release(ctx context.Context, tx LedgerTx, shift *model.Shift) error {
	occupied, err := l.OccupiedCount(ctx, tx, shift.ID)
	if err != nil {
		return err
	}

	shift.AvailableVacancies = Available(shift.TotalVacancies, occupied)
	if err := tx.SaveShift(ctx, shift); err != nil {
		return fmt.Errorf("failed to save shift vacancies: %w", err)
	}
	return nil
}

// Available clamps total-occupied into [0, total]
func Available(total, occupied int) int {
	available := total - occupied
	if available < 0 {
		return 0
	}
	if available > total {
		return total
	}
	return available
}
