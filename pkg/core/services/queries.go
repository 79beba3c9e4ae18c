package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/metrics"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

// ShiftListing is a shift annotated with its role for volunteer-facing lists
type ShiftListing struct {
	Shift model.Shift `json:"shift"`
	Role  model.Role  `json:"role"`
}

// BookingDetail is a booking joined with its shift, role and volunteer
type BookingDetail struct {
	Booking model.Booking `json:"booking"`
	Shift   model.Shift   `json:"shift"`
	Role    model.Role    `json:"role"`
	User    *model.User   `json:"user,omitempty"`
}

// RosterEntry is one line of the printable roster of a time slot
type RosterEntry struct {
	FullName string `json:"fullName"`
	DNI      string `json:"dni"`
	Phone    string `json:"phone,omitempty"`
	RoleName string `json:"roleName"`
	ShiftID  string `json:"shiftId"`
}

// ShiftsForDate lists the shifts of one event day with live availability.
// Hidden roles are only listed for actors who manage the event.
func (s *BookingService) ShiftsForDate(ctx context.Context, actor model.Actor, eventID, date string) ([]ShiftListing, error) {
	s.logger.Debug("Listing shifts",
		zap.String("event_id", eventID),
		zap.String("date", date))

	if _, err := getEvent(ctx, s.store, eventID); err != nil {
		return nil, err
	}

	shifts, err := s.store.ListShifts(ctx, db.ShiftFilter{EventID: eventID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}

	roles, err := s.rolesByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	showHidden := booking.CanApprove(actor, eventID)
	listings := make([]ShiftListing, 0, len(shifts))
	for _, shift := range shifts {
		role, ok := roles[shift.RoleID]
		if !ok {
			continue
		}
		if role.Hidden && !showHidden {
			continue
		}
		listings = append(listings, ShiftListing{Shift: shift, Role: role})
	}

	slices.SortStableFunc(listings, func(a, b ShiftListing) int {
		return cmp.Or(
			cmp.Compare(a.Shift.TimeSlot, b.Shift.TimeSlot),
			cmp.Compare(a.Role.Name, b.Role.Name),
		)
	})

	return listings, nil
}

// MyBookings returns the user's non-cancelled bookings ordered by date and
// time slot. An empty eventID spans all events.
func (s *BookingService) MyBookings(ctx context.Context, userID, eventID string) ([]BookingDetail, error) {
	s.logger.Debug("Listing user bookings",
		zap.String("user_id", userID),
		zap.String("event_id", eventID))

	bookings, err := s.store.QueryBookings(ctx, db.BookingFilter{
		UserID:   userID,
		EventID:  eventID,
		Statuses: model.ActiveStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	details, err := s.joinDetails(ctx, bookings, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(details, func(a, b BookingDetail) int {
		return cmp.Or(
			cmp.Compare(a.Shift.Date, b.Shift.Date),
			cmp.Compare(a.Shift.TimeSlot, b.Shift.TimeSlot),
		)
	})

	return details, nil
}

// PendingCancellations lists bookings of the event awaiting a cancellation decision
func (s *BookingService) PendingCancellations(ctx context.Context, actor model.Actor, eventID string) ([]BookingDetail, error) {
	return s.pendingByStatus(ctx, actor, eventID, model.StatusCancellationRequested)
}

// PendingRequests lists bookings of the event awaiting approval
func (s *BookingService) PendingRequests(ctx context.Context, actor model.Actor, eventID string) ([]BookingDetail, error) {
	return s.pendingByStatus(ctx, actor, eventID, model.StatusPendingApproval)
}

func (s *BookingService) pendingByStatus(ctx context.Context, actor model.Actor, eventID string, status model.BookingStatus) ([]BookingDetail, error) {
	if !booking.CanApprove(actor, eventID) {
		return nil, fmt.Errorf("user %s may not review event %s: %w", actor.UserID, eventID, booking.ErrUnauthorized)
	}

	bookings, err := s.store.QueryBookings(ctx, db.BookingFilter{
		EventID:  eventID,
		Statuses: []model.BookingStatus{status},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	return s.joinDetails(ctx, bookings, true)
}

// Roster lists the confirmed volunteers of one time slot, ordered by role
// and name. Coordinators of any shift in the slot may read it.
func (s *BookingService) Roster(ctx context.Context, actor model.Actor, eventID, date, timeSlot string) ([]RosterEntry, error) {
	s.logger.Debug("Building roster",
		zap.String("event_id", eventID),
		zap.String("date", date),
		zap.String("time_slot", timeSlot))

	shifts, err := s.store.ListShifts(ctx, db.ShiftFilter{EventID: eventID, Date: date, TimeSlot: timeSlot})
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}

	allowed := booking.CanApprove(actor, eventID)
	for _, shift := range shifts {
		if booking.CanMarkAttendance(actor, shift) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("user %s may not read roster of event %s: %w", actor.UserID, eventID, booking.ErrUnauthorized)
	}

	roles, err := s.rolesByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var entries []RosterEntry
	for _, shift := range shifts {
		bookings, err := s.store.QueryBookings(ctx, db.BookingFilter{
			ShiftID:  shift.ID,
			Statuses: []model.BookingStatus{model.StatusConfirmed},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query bookings: %w", err)
		}

		for _, b := range bookings {
			entry := RosterEntry{RoleName: roles[shift.RoleID].Name, ShiftID: shift.ID}
			user, err := s.store.GetUser(ctx, b.UserID)
			switch {
			case errors.Is(err, db.ErrNotFound):
				entry.FullName = b.UserID
			case err != nil:
				return nil, fmt.Errorf("failed to get user: %w", err)
			default:
				entry.FullName = user.FullName
				entry.DNI = user.DNI
				entry.Phone = user.Phone
			}
			entries = append(entries, entry)
		}
	}

	slices.SortStableFunc(entries, func(a, b RosterEntry) int {
		return cmp.Or(
			cmp.Compare(a.RoleName, b.RoleName),
			cmp.Compare(a.FullName, b.FullName),
		)
	})

	return entries, nil
}

// Dashboard computes the statistics of one event
func (s *BookingService) Dashboard(ctx context.Context, actor model.Actor, eventID string) (*metrics.Dashboard, error) {
	if !booking.CanApprove(actor, eventID) {
		return nil, fmt.Errorf("user %s may not read metrics of event %s: %w", actor.UserID, eventID, booking.ErrUnauthorized)
	}

	in, err := s.metricsInput(ctx, eventID)
	if err != nil {
		return nil, err
	}

	d := metrics.Compute(*in)
	return &d, nil
}

// EventSummaries lists all events with their derived counters
func (s *BookingService) EventSummaries(ctx context.Context) ([]metrics.Summary, error) {
	events, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	summaries := make([]metrics.Summary, 0, len(events))
	for _, event := range events {
		shifts, err := s.store.ListShifts(ctx, db.ShiftFilter{EventID: event.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to list shifts: %w", err)
		}
		bookings, err := s.store.QueryBookings(ctx, db.BookingFilter{EventID: event.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to query bookings: %w", err)
		}
		summaries = append(summaries, metrics.Summarize(event, shifts, bookings))
	}

	return summaries, nil
}

func (s *BookingService) metricsInput(ctx context.Context, eventID string) (*metrics.Input, error) {
	if _, err := getEvent(ctx, s.store, eventID); err != nil {
		return nil, err
	}

	// Fetch everything the event's metrics are computed from
	shifts, err := s.store.ListShifts(ctx, db.ShiftFilter{EventID: eventID})
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}

	bookings, err := s.store.QueryBookings(ctx, db.BookingFilter{EventID: eventID})
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}

	roles, err := s.store.ListRoles(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	// Load each booked volunteer once
	userIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		if !slices.Contains(userIDs, b.UserID) {
			userIDs = append(userIDs, b.UserID)
		}
	}
	users := []model.User{}
	if len(userIDs) > 0 {
		users, err = s.store.ListUsers(ctx, userIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
	}

	return &metrics.Input{
		EventID:  eventID,
		Shifts:   shifts,
		Bookings: bookings,
		Roles:    roles,
		Users:    users,
	}, nil
}

// rolesByID indexes the event's roles
func (s *BookingService) rolesByID(ctx context.Context, eventID string) (map[string]model.Role, error) {
	roles, err := s.store.ListRoles(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	byID := make(map[string]model.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}
	return byID, nil
}

// joinDetails attaches shift, role and optionally user to each booking.
// Bookings whose shift no longer exists are dropped.
func (s *BookingService) joinDetails(ctx context.Context, bookings []model.Booking, withUser bool) ([]BookingDetail, error) {
	details := make([]BookingDetail, 0, len(bookings))
	for _, b := range bookings {
		shift, err := s.store.GetShift(ctx, b.ShiftID)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get shift: %w", err)
		}

		detail := BookingDetail{Booking: b, Shift: *shift}

		role, err := s.store.GetRole(ctx, shift.RoleID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to get role: %w", err)
		}
		if role != nil {
			detail.Role = *role
		}

		if withUser {
			user, err := s.store.GetUser(ctx, b.UserID)
			if err != nil && !errors.Is(err, db.ErrNotFound) {
				return nil, fmt.Errorf("failed to get user: %w", err)
			}
			detail.User = user
		}

		details = append(details, detail)
	}
	return details, nil
}
