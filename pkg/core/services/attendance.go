package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

// UpdateAttendance records whether the volunteer turned up. Setting the
// current mark again writes nothing and notifies nobody.
func (s *BookingService) UpdateAttendance(ctx context.Context, actor model.Actor, bookingID string, mark model.Attendance) (*model.Booking, error) {
	if !mark.IsValid() {
		return nil, fmt.Errorf("attendance %q: %w", mark, booking.ErrInvalidAttendance)
	}

	b, shift, changed, err := s.updateMetadata(ctx, actor, bookingID, func(b *model.Booking) bool {
		if b.Attendance == mark {
			return false
		}
		b.Attendance = mark
		return true
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Attendance updated",
			zap.String("booking_id", b.ID),
			zap.String("attendance", string(mark)))
		if mark.Marked() {
			s.notify(ctx, notify.KindAttendanceMarked, *b, *shift)
		}
	}
	return b, nil
}

// UpdateFoodStatus records whether the volunteer's meal was delivered
func (s *BookingService) UpdateFoodStatus(ctx context.Context, actor model.Actor, bookingID string, delivered bool) (*model.Booking, error) {
	b, _, changed, err := s.updateMetadata(ctx, actor, bookingID, func(b *model.Booking) bool {
		if b.FoodDelivered == delivered {
			return false
		}
		b.FoodDelivered = delivered
		return true
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("Food status updated",
			zap.String("booking_id", b.ID),
			zap.Bool("food_delivered", delivered))
	}
	return b, nil
}

// updateMetadata applies set to the booking under the shift lock and saves
// it only when set reports a change. Status and vacancies are untouched.
func (s *BookingService) updateMetadata(ctx context.Context, actor model.Actor, bookingID string, set func(b *model.Booking) bool) (*model.Booking, *model.Shift, bool, error) {
	s.logger.Debug("Updating booking metadata", zap.String("booking_id", bookingID))

	var result model.Booking
	var resultShift model.Shift
	var changed bool

	err := s.store.InTx(ctx, func(tx db.Tx) error {
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		shift, err := lockShift(ctx, tx, b.ShiftID)
		if err != nil {
			return err
		}

		b, err = getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if !booking.CanMarkAttendance(actor, *shift) {
			return fmt.Errorf("user %s may not update booking %s: %w", actor.UserID, bookingID, booking.ErrUnauthorized)
		}

		if _, err := editableEvent(ctx, tx, shift.EventID); err != nil {
			return err
		}

		changed = set(b)
		if changed {
			if err := tx.SaveBooking(ctx, b); err != nil {
				return fmt.Errorf("failed to save booking: %w", err)
			}
		}

		result = *b
		resultShift = *shift
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}

	return &result, &resultShift, changed, nil
}
