package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

// UpdateShiftCapacity changes a shift's total vacancies. It never drops
// below the seats already occupied.
func (s *BookingService) UpdateShiftCapacity(ctx context.Context, actor model.Actor, shiftID string, total int) (*model.Shift, error) {
	s.logger.Debug("Updating shift capacity",
		zap.String("shift_id", shiftID),
		zap.Int("total_vacancies", total))

	if total < 0 {
		return nil, fmt.Errorf("total vacancies %d: %w", total, booking.ErrCapacityBelowOccupancy)
	}

	var result model.Shift

	err := s.store.InTx(ctx, func(tx db.Tx) error {
		shift, err := lockShift(ctx, tx, shiftID)
		if err != nil {
			return err
		}

		if !booking.CanApprove(actor, shift.EventID) {
			return fmt.Errorf("user %s may not manage shift %s: %w", actor.UserID, shiftID, booking.ErrUnauthorized)
		}

		if _, err := editableEvent(ctx, tx, shift.EventID); err != nil {
			return err
		}

		// Never shrink below the seats already taken
		occupied, err := s.ledger.OccupiedCount(ctx, tx, shiftID)
		if err != nil {
			return err
		}
		if total < occupied {
			return fmt.Errorf("shift %s has %d occupied, requested %d: %w", shiftID, occupied, total, booking.ErrCapacityBelowOccupancy)
		}

		// Save the new total and recompute what is left
		shift.TotalVacancies = total
		if err := s.ledger.Release(ctx, tx, shift); err != nil {
			return err
		}

		result = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Shift capacity updated",
		zap.String("shift_id", result.ID),
		zap.Int("total_vacancies", result.TotalVacancies),
		zap.Int("available_vacancies", result.AvailableVacancies))

	return &result, nil
}
