package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

// BookingService executes booking operations against a transactional store.
// Every mutation runs inside one store transaction holding the shift lock;
// notifications are sent after commit and never fail the operation.
type BookingService struct {
	store    db.Store
	notifier notify.Notifier
	logger   *zap.Logger
	ledger   booking.Ledger
	now      func() time.Time
}

// Option customises a BookingService
type Option func(*BookingService)

// WithClock replaces the wall clock used for requestedAt and cancelledAt
func WithClock(now func() time.Time) Option {
	return func(s *BookingService) {
		s.now = now
	}
}

func NewBookingService(store db.Store, notifier notify.Notifier, logger *zap.Logger, opts ...Option) *BookingService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &BookingService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// authorizeFunc decides whether the operation may touch the booking
type authorizeFunc func(b model.Booking, shift model.Shift) error

// mutateFunc applies extra changes after a successful status transition
type mutateFunc func(ctx context.Context, tx db.Tx, b *model.Booking, shift *model.Shift) error

// transition applies action to the booking under its shift lock and
// recomputes the shift's vacancies in the same transaction
func (s *BookingService) transition(ctx context.Context, bookingID string, action booking.Action, authorize authorizeFunc, mutate mutateFunc) (*model.Booking, *model.Shift, error) {
	s.logger.Debug("Applying booking transition",
		zap.String("booking_id", bookingID),
		zap.String("action", string(action)))

	var result model.Booking
	var resultShift model.Shift

	err := s.store.InTx(ctx, func(tx db.Tx) error {
		b, err := getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		shift, err := lockShift(ctx, tx, b.ShiftID)
		if err != nil {
			return err
		}

		// Re-read now that concurrent writers on this shift are excluded
		b, err = getBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		if authorize != nil {
			if err := authorize(*b, *shift); err != nil {
				return err
			}
		}

		if _, err := editableEvent(ctx, tx, shift.EventID); err != nil {
			return err
		}

		// Validate and apply the status change
		if err := booking.Apply(b, action); err != nil {
			return err
		}

		if mutate != nil {
			if err := mutate(ctx, tx, b, shift); err != nil {
				return err
			}
		}

		if err := tx.SaveBooking(ctx, b); err != nil {
			return fmt.Errorf("failed to save booking: %w", err)
		}

		// Vacancies follow the new status
		if err := s.ledger.Release(ctx, tx, shift); err != nil {
			return err
		}

		result = *b
		resultShift = *shift
		return nil
	})
	if err != nil {
		if errors.Is(err, booking.ErrInvalidTransition) {
			s.logger.Warn("Rejected booking transition",
				zap.String("booking_id", bookingID),
				zap.String("action", string(action)),
				zap.Error(err))
		}
		return nil, nil, err
	}

	s.logger.Info("Booking updated",
		zap.String("booking_id", result.ID),
		zap.String("status", string(result.Status)),
		zap.Int("available_vacancies", resultShift.AvailableVacancies))

	return &result, &resultShift, nil
}

// requireApprover returns an authorizeFunc that checks CanApprove for the booking's event
func requireApprover(actor model.Actor, action booking.Action) authorizeFunc {
	return func(b model.Booking, shift model.Shift) error {
		if !booking.CanApprove(actor, shift.EventID) {
			return fmt.Errorf("user %s may not %s on event %s: %w", actor.UserID, action, shift.EventID, booking.ErrUnauthorized)
		}
		return nil
	}
}

// notify sends a notification for a committed change, logging failures
func (s *BookingService) notify(ctx context.Context, kind notify.Kind, b model.Booking, shift model.Shift) {
	s.send(ctx, notify.Notification{Kind: kind, Booking: b, Shift: shift})
}

// send fills in the role, event and user of n and hands it to the notifier
func (s *BookingService) send(ctx context.Context, n notify.Notification) {
	if role, err := s.store.GetRole(ctx, n.Shift.RoleID); err == nil {
		n.Role = *role
	}
	if event, err := s.store.GetEvent(ctx, n.Booking.EventID); err == nil {
		n.Event = *event
	}
	if user, err := s.store.GetUser(ctx, n.Booking.UserID); err == nil {
		n.User = user
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Failed to send notification",
			zap.String("kind", string(n.Kind)),
			zap.String("booking_id", n.Booking.ID),
			zap.Error(err))
	}
}

func getBooking(ctx context.Context, r db.Reader, id string) (*model.Booking, error) {
	b, err := r.GetBooking(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("booking %s: %w", id, booking.ErrBookingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

func lockShift(ctx context.Context, tx db.Tx, id string) (*model.Shift, error) {
	shift, err := tx.LockShift(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("shift %s: %w", id, booking.ErrShiftNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock shift: %w", err)
	}
	return shift, nil
}

func getShift(ctx context.Context, r db.Reader, id string) (*model.Shift, error) {
	shift, err := r.GetShift(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("shift %s: %w", id, booking.ErrShiftNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}
	return shift, nil
}

func getEvent(ctx context.Context, r db.Reader, id string) (*model.Event, error) {
	event, err := r.GetEvent(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("event %s: %w", id, booking.ErrEventNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// editableEvent loads the event and rejects it once archived
func editableEvent(ctx context.Context, r db.Reader, id string) (*model.Event, error) {
	event, err := getEvent(ctx, r, id)
	if err != nil {
		return nil, err
	}
	if event.State == model.EventArchived {
		return nil, fmt.Errorf("event %s: %w", event.ID, booking.ErrEventArchived)
	}
	return event, nil
}

func getRole(ctx context.Context, r db.Reader, id string) (*model.Role, error) {
	role, err := r.GetRole(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("role %s: %w", id, booking.ErrRoleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}
