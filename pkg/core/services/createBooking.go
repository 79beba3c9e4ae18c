package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

// CreateBooking books the shift for the user. The capacity check and the
// insert happen in one transaction holding the user and shift locks.
func (s *BookingService) CreateBooking(ctx context.Context, userID, shiftID string) (*model.Booking, error) {
	s.logger.Debug("Creating booking",
		zap.String("user_id", userID),
		zap.String("shift_id", shiftID))

	var created model.Booking
	var bookedShift model.Shift

	err := s.store.InTx(ctx, func(tx db.Tx) error {
		// Lock the user first so two bookings by the same user cannot race
		if err := tx.Lock(ctx, userLockKey(userID)); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		shift, err := lockShift(ctx, tx, shiftID)
		if err != nil {
			return err
		}

		// Archived events are read-only
		if _, err := editableEvent(ctx, tx, shift.EventID); err != nil {
			return err
		}

		if err := s.checkUserCommitments(ctx, tx, userID, *shift); err != nil {
			return err
		}

		// Count occupied seats under the shift lock
		if err := s.ledger.TryReserve(ctx, tx, shift); err != nil {
			return err
		}

		role, err := getRole(ctx, tx, shift.RoleID)
		if err != nil {
			return err
		}

		// Roles that need approval start as a pending request
		b := model.Booking{
			ID:          uuid.New().String(),
			UserID:      userID,
			ShiftID:     shift.ID,
			EventID:     shift.EventID,
			Status:      booking.InitialStatus(*role),
			RequestedAt: s.now().UTC(),
		}
		if err := tx.SaveBooking(ctx, &b); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}

		// Recompute the cached vacancies with the new booking included
		if err := s.ledger.Release(ctx, tx, shift); err != nil {
			return err
		}

		created = b
		bookedShift = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", created.ID),
		zap.String("user_id", userID),
		zap.String("shift_id", shiftID),
		zap.String("status", string(created.Status)),
		zap.Int("available_vacancies", bookedShift.AvailableVacancies))

	s.notify(ctx, notify.KindBookingCreated, created, bookedShift)
	if created.Status == model.StatusPendingApproval {
		s.notify(ctx, notify.KindRequestPending, created, bookedShift)
	}

	return &created, nil
}

// CreateBookingFor books the shift on behalf of userID. Volunteers may only
// book for themselves; event approvers may book for anyone.
func (s *BookingService) CreateBookingFor(ctx context.Context, actor model.Actor, userID, shiftID string) (*model.Booking, error) {
	shift, err := getShift(ctx, s.store, shiftID)
	if err != nil {
		return nil, err
	}

	if !booking.CanActFor(actor, userID, shift.EventID) {
		return nil, fmt.Errorf("user %s may not book for %s: %w", actor.UserID, userID, booking.ErrUnauthorized)
	}

	return s.CreateBooking(ctx, userID, shiftID)
}

// checkUserCommitments rejects a second booking on the same shift and any
// booking on another shift in the same date and time slot
func (s *BookingService) checkUserCommitments(ctx context.Context, tx db.Tx, userID string, shift model.Shift) error {
	existing, err := tx.QueryBookings(ctx, db.BookingFilter{
		UserID:   userID,
		ShiftID:  shift.ID,
		Statuses: model.ActiveStatuses,
	})
	if err != nil {
		return fmt.Errorf("failed to query user bookings: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("user %s on shift %s: %w", userID, shift.ID, booking.ErrDuplicateBooking)
	}

	return checkSlotFree(ctx, tx, userID, shift)
}

// checkSlotFree rejects the shift when the user holds an active booking on
// another shift at the same date and time slot
func checkSlotFree(ctx context.Context, tx db.Tx, userID string, shift model.Shift) error {
	existing, err := tx.QueryBookings(ctx, db.BookingFilter{
		UserID:   userID,
		Statuses: model.ActiveStatuses,
	})
	if err != nil {
		return fmt.Errorf("failed to query user bookings: %w", err)
	}

	for _, b := range existing {
		if b.ShiftID == shift.ID {
			continue
		}

		other, err := tx.GetShift(ctx, b.ShiftID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to get shift: %w", err)
		}
		if other.SameSlot(shift) {
			return fmt.Errorf("user %s already on shift %s at %s %s: %w",
				userID, other.ID, shift.Date, shift.TimeSlot, booking.ErrTimeSlotConflict)
		}
	}

	return nil
}

func userLockKey(userID string) string {
	return "user:" + userID
}
