package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

// rescheduleAttempts bounds the retries when volunteers book the shift
// while a reschedule is collecting their locks
const rescheduleAttempts = 3

var errBookingsChanged = errors.New("shift bookings changed while rescheduling")

// managedShift locks the shift and checks that the actor may manage it and
// that its event still accepts changes
func managedShift(ctx context.Context, tx db.Tx, actor model.Actor, shiftID string) (*model.Shift, error) {
	shift, err := lockShift(ctx, tx, shiftID)
	if err != nil {
		return nil, err
	}

	if !booking.CanApprove(actor, shift.EventID) {
		return nil, fmt.Errorf("user %s may not manage shift %s: %w", actor.UserID, shiftID, booking.ErrUnauthorized)
	}

	if _, err := editableEvent(ctx, tx, shift.EventID); err != nil {
		return nil, err
	}
	return shift, nil
}

// AssignCoordinator makes the user a coordinator of the shift and promotes
// a volunteer to the coordinator role
func (s *BookingService) AssignCoordinator(ctx context.Context, actor model.Actor, shiftID, userID string) (*model.Shift, error) {
	s.logger.Debug("Assigning coordinator",
		zap.String("shift_id", shiftID),
		zap.String("user_id", userID))

	var result model.Shift

	err := s.store.InTx(ctx, func(tx db.Tx) error {
		// The user lock comes before the shift lock, as in CreateBooking
		if err := tx.Lock(ctx, userLockKey(userID)); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		shift, err := managedShift(ctx, tx, actor, shiftID)
		if err != nil {
			return err
		}

		user, err := tx.GetUser(ctx, userID)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("user %s: %w", userID, booking.ErrUserNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		if !shift.HasCoordinator(userID) {
			shift.CoordinatorIDs = append(shift.CoordinatorIDs, userID)
			if err := tx.SaveShift(ctx, shift); err != nil {
				return fmt.Errorf("failed to save shift: %w", err)
			}
		}

		if user.Role == model.UserVolunteer {
			user.Role = model.UserCoordinator
			if err := tx.SaveUser(ctx, user); err != nil {
				return fmt.Errorf("failed to promote user: %w", err)
			}
			s.logger.Info("Promoted volunteer to coordinator", zap.String("user_id", userID))
		}

		result = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Coordinator assigned",
		zap.String("shift_id", result.ID),
		zap.String("user_id", userID),
		zap.Strings("coordinator_ids", result.CoordinatorIDs))

	return &result, nil
}

// RemoveCoordinator takes the user off the shift's coordinators. A
// coordinator left without any shift to coordinate goes back to volunteer.
func (s *BookingService) RemoveCoordinator(ctx context.Context, actor model.Actor, shiftID, userID string) (*model.Shift, error) {
	s.logger.Debug("Removing coordinator",
		zap.String("shift_id", shiftID),
		zap.String("user_id", userID))

	var result model.Shift

	err := s.store.InTx(ctx, func(tx db.Tx) error {
		if err := tx.Lock(ctx, userLockKey(userID)); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		shift, err := managedShift(ctx, tx, actor, shiftID)
		if err != nil {
			return err
		}

		if shift.HasCoordinator(userID) {
			shift.CoordinatorIDs = slices.DeleteFunc(shift.CoordinatorIDs, func(id string) bool { return id == userID })
			if err := tx.SaveShift(ctx, shift); err != nil {
				return fmt.Errorf("failed to save shift: %w", err)
			}
		}

		if err := s.demoteIfIdle(ctx, tx, userID); err != nil {
			return err
		}

		result = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Coordinator removed",
		zap.String("shift_id", result.ID),
		zap.String("user_id", userID),
		zap.Strings("coordinator_ids", result.CoordinatorIDs))

	return &result, nil
}

// demoteIfIdle returns a coordinator with no remaining shifts to the
// volunteer role. Staff roles are left alone.
func (s *BookingService) demoteIfIdle(ctx context.Context, tx db.Tx, userID string) error {
	user, err := tx.GetUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != model.UserCoordinator {
		return nil
	}

	coordinated, err := tx.ListShifts(ctx, db.ShiftFilter{CoordinatorID: userID})
	if err != nil {
		return fmt.Errorf("failed to list coordinated shifts: %w", err)
	}
	if len(coordinated) > 0 {
		return nil
	}

	user.Role = model.UserVolunteer
	if err := tx.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to demote user: %w", err)
	}
	s.logger.Info("Demoted coordinator to volunteer", zap.String("user_id", userID))
	return nil
}

// DeleteShift removes a shift that no longer has active bookings. Its
// cancelled bookings go with it.
func (s *BookingService) DeleteShift(ctx context.Context, actor model.Actor, shiftID string) error {
	s.logger.Debug("Deleting shift", zap.String("shift_id", shiftID))

	var coordinators []string

	err := s.store.InTx(ctx, func(tx db.Tx) error {
		shift, err := managedShift(ctx, tx, actor, shiftID)
		if err != nil {
			return err
		}

		// Only shifts without active bookings can go
		active, err := tx.QueryBookings(ctx, db.BookingFilter{ShiftID: shiftID, Statuses: model.ActiveStatuses})
		if err != nil {
			return fmt.Errorf("failed to query shift bookings: %w", err)
		}
		if len(active) > 0 {
			return fmt.Errorf("shift %s has %d active bookings: %w", shiftID, len(active), booking.ErrShiftHasBookings)
		}

		if err := tx.DeleteShift(ctx, shiftID); err != nil {
			return fmt.Errorf("failed to delete shift: %w", err)
		}

		coordinators = shift.CoordinatorIDs
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Shift deleted",
		zap.String("shift_id", shiftID),
		zap.Strings("coordinator_ids", coordinators))

	return nil
}

// RescheduleShift moves the shift to another date or time slot of its event
// and tells every volunteer holding a booking on it. A volunteer already
// committed elsewhere in the new slot blocks the move.
func (s *BookingService) RescheduleShift(ctx context.Context, actor model.Actor, shiftID, date, timeSlot string) (*model.Shift, error) {
	if err := validate.Var(date, "required,datetime=2006-01-02"); err != nil {
		return nil, fmt.Errorf("invalid shift date %q: %w", date, err)
	}
	if err := validate.Var(timeSlot, "required"); err != nil {
		return nil, fmt.Errorf("invalid time slot: %w", err)
	}

	s.logger.Debug("Rescheduling shift",
		zap.String("shift_id", shiftID),
		zap.String("date", date),
		zap.String("time_slot", timeSlot))

	var previous, result model.Shift
	var affected []model.Booking

	var err error
	for attempt := 1; attempt <= rescheduleAttempts; attempt++ {
		err = s.store.InTx(ctx, func(tx db.Tx) error {
			var err error
			previous, result, affected, err = s.reschedule(ctx, tx, actor, shiftID, date, timeSlot)
			return err
		})
		if !errors.Is(err, errBookingsChanged) {
			break
		}
		s.logger.Debug("Bookings changed during reschedule, retrying",
			zap.String("shift_id", shiftID),
			zap.Int("attempt", attempt))
	}
	if err != nil {
		return nil, err
	}

	if previous.SameSlot(result) {
		return &result, nil
	}

	s.logger.Info("Shift rescheduled",
		zap.String("shift_id", result.ID),
		zap.String("from", previous.Date+" "+previous.TimeSlot),
		zap.String("to", result.Date+" "+result.TimeSlot),
		zap.Int("notified", len(affected)))

	for _, b := range affected {
		s.send(ctx, notify.Notification{
			Kind:     notify.KindShiftRescheduled,
			Booking:  b,
			Shift:    result,
			Previous: &previous,
		})
	}

	return &result, nil
}

// reschedule runs one attempt of RescheduleShift inside tx
func (s *BookingService) reschedule(ctx context.Context, tx db.Tx, actor model.Actor, shiftID, date, timeSlot string) (model.Shift, model.Shift, []model.Booking, error) {
	current, err := getShift(ctx, tx, shiftID)
	if err != nil {
		return model.Shift{}, model.Shift{}, nil, err
	}

	// Key locks first: the event's shift set, then each booked user in order
	if err := tx.Lock(ctx, shiftsLockKey(current.EventID)); err != nil {
		return model.Shift{}, model.Shift{}, nil, fmt.Errorf("failed to lock event shifts: %w", err)
	}

	booked, err := tx.QueryBookings(ctx, db.BookingFilter{ShiftID: shiftID, Statuses: model.ActiveStatuses})
	if err != nil {
		return model.Shift{}, model.Shift{}, nil, fmt.Errorf("failed to query shift bookings: %w", err)
	}
	users := bookedUsers(booked)
	for _, userID := range users {
		if err := tx.Lock(ctx, userLockKey(userID)); err != nil {
			return model.Shift{}, model.Shift{}, nil, fmt.Errorf("failed to lock user: %w", err)
		}
	}

	shift, err := managedShift(ctx, tx, actor, shiftID)
	if err != nil {
		return model.Shift{}, model.Shift{}, nil, err
	}
	previous := shift.Clone()

	// Re-read now that new bookings on this shift are excluded
	booked, err = tx.QueryBookings(ctx, db.BookingFilter{ShiftID: shiftID, Statuses: model.ActiveStatuses})
	if err != nil {
		return model.Shift{}, model.Shift{}, nil, fmt.Errorf("failed to query shift bookings: %w", err)
	}
	for _, userID := range bookedUsers(booked) {
		if !slices.Contains(users, userID) {
			return model.Shift{}, model.Shift{}, nil, errBookingsChanged
		}
	}

	if shift.Date == date && shift.TimeSlot == timeSlot {
		return previous, *shift, nil, nil
	}

	// The new slot must be inside the event and free for this role
	event, err := getEvent(ctx, tx, shift.EventID)
	if err != nil {
		return model.Shift{}, model.Shift{}, nil, err
	}
	if date < event.StartDate || date > event.EndDate {
		return model.Shift{}, model.Shift{}, nil, fmt.Errorf("date %s not in %s..%s: %w", date, event.StartDate, event.EndDate, booking.ErrShiftOutsideEvent)
	}

	clash, err := tx.ListShifts(ctx, db.ShiftFilter{
		EventID:  shift.EventID,
		Date:     date,
		TimeSlot: timeSlot,
		RoleID:   shift.RoleID,
	})
	if err != nil {
		return model.Shift{}, model.Shift{}, nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	for _, other := range clash {
		if other.ID != shift.ID {
			return model.Shift{}, model.Shift{}, nil, fmt.Errorf("%s %s: %w", date, timeSlot, booking.ErrDuplicateShift)
		}
	}

	shift.Date = date
	shift.TimeSlot = timeSlot

	// Every booked volunteer must be free in the new slot
	for _, b := range booked {
		if err := checkSlotFree(ctx, tx, b.UserID, *shift); err != nil {
			return model.Shift{}, model.Shift{}, nil, err
		}
	}

	if err := tx.SaveShift(ctx, shift); err != nil {
		return model.Shift{}, model.Shift{}, nil, fmt.Errorf("failed to save shift: %w", err)
	}

	return previous, *shift, booked, nil
}

// bookedUsers returns the distinct users of the bookings, sorted so locks
// are always taken in the same order
func bookedUsers(bookings []model.Booking) []string {
	users := make([]string, 0, len(bookings))
	for _, b := range bookings {
		users = append(users, b.UserID)
	}
	slices.Sort(users)
	return slices.Compact(users)
}
