package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

// ApproveRequest confirms a booking that was waiting for approval
func (s *BookingService) ApproveRequest(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	b, shift, err := s.transition(ctx, bookingID, booking.ActionApproveRequest,
		requireApprover(actor, booking.ActionApproveRequest), nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.KindRequestApproved, *b, *shift)
	return b, nil
}

// RejectRequest cancels a booking that was waiting for approval and frees its seat
func (s *BookingService) RejectRequest(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	b, shift, err := s.transition(ctx, bookingID, booking.ActionRejectRequest,
		requireApprover(actor, booking.ActionRejectRequest), nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.KindRequestRejected, *b, *shift)
	return b, nil
}

// ApproveCoordinatorRequest approves the booking and makes the volunteer a
// coordinator of the shift
func (s *BookingService) ApproveCoordinatorRequest(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	promote := func(ctx context.Context, tx db.Tx, b *model.Booking, shift *model.Shift) error {
		if !shift.HasCoordinator(b.UserID) {
			shift.CoordinatorIDs = append(shift.CoordinatorIDs, b.UserID)
		}

		user, err := tx.GetUser(ctx, b.UserID)
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("Coordinator user not found, skipping promotion",
				zap.String("user_id", b.UserID),
				zap.String("booking_id", b.ID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		if user.Role == model.UserVolunteer {
			user.Role = model.UserCoordinator
			if err := tx.SaveUser(ctx, user); err != nil {
				return fmt.Errorf("failed to promote user: %w", err)
			}
			s.logger.Info("Promoted volunteer to coordinator", zap.String("user_id", user.ID))
		}
		return nil
	}

	b, shift, err := s.transition(ctx, bookingID, booking.ActionApproveRequest,
		requireApprover(actor, booking.ActionApproveRequest), promote)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.KindRequestApproved, *b, *shift)
	return b, nil
}
