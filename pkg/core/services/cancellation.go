package services

import (
	"context"
	"fmt"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

// RequestCancellation asks for a confirmed booking to be cancelled. The seat
// stays occupied until an approver accepts the request.
func (s *BookingService) RequestCancellation(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	authorize := func(b model.Booking, shift model.Shift) error {
		if !booking.CanActFor(actor, b.UserID, shift.EventID) {
			return fmt.Errorf("user %s may not cancel booking %s: %w", actor.UserID, b.ID, booking.ErrUnauthorized)
		}
		return nil
	}
	stamp := func(ctx context.Context, tx db.Tx, b *model.Booking, shift *model.Shift) error {
		now := s.now().UTC()
		b.CancelledAt = &now
		return nil
	}

	b, shift, err := s.transition(ctx, bookingID, booking.ActionRequestCancellation, authorize, stamp)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.KindCancellationRequested, *b, *shift)
	return b, nil
}

// ApproveCancellation cancels the booking and frees its seat
func (s *BookingService) ApproveCancellation(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	b, shift, err := s.transition(ctx, bookingID, booking.ActionApproveCancellation,
		requireApprover(actor, booking.ActionApproveCancellation), nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.KindCancellationApproved, *b, *shift)
	return b, nil
}

// RejectCancellation returns the booking to confirmed
func (s *BookingService) RejectCancellation(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error) {
	reopen := func(ctx context.Context, tx db.Tx, b *model.Booking, shift *model.Shift) error {
		b.CancelledAt = nil
		return nil
	}

	b, shift, err := s.transition(ctx, bookingID, booking.ActionRejectCancellation,
		requireApprover(actor, booking.ActionRejectCancellation), reopen)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notify.KindCancellationRejected, *b, *shift)
	return b, nil
}
