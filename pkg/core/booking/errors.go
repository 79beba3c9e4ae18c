package booking

import (
	"errors"
	"fmt"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

var (
	ErrShiftNotFound          = errors.New("shift not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrEventNotFound          = errors.New("event not found")
	ErrRoleNotFound           = errors.New("role not found")
	ErrCapacityExceeded       = errors.New("shift has no vacancies left")
	ErrDuplicateBooking       = errors.New("user already booked this shift")
	ErrTimeSlotConflict       = errors.New("user already has a booking in this time slot")
	ErrInvalidTransition      = errors.New("invalid booking status transition")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrCapacityBelowOccupancy = errors.New("capacity is below the number of occupied vacancies")
	ErrEventDates             = errors.New("event end date is before its start date")
	ErrTooManyActiveEvents    = errors.New("maximum number of active events reached")
	ErrDuplicateSlug          = errors.New("event slug already in use")
	ErrDuplicateShift         = errors.New("shift already exists for this date, time slot and role")
	ErrInvalidAttendance      = errors.New("invalid attendance mark")
	ErrEventArchived          = errors.New("event is archived")
	ErrShiftOutsideEvent      = errors.New("shift date is outside the event dates")
	ErrShiftHasBookings       = errors.New("shift still has active bookings")
	ErrUserNotFound           = errors.New("user not found")
)

// TransitionError describes a rejected status change
type TransitionError struct {
	BookingID string
	From      model.BookingStatus
	Action    Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s booking %s in status %s", e.Action, e.BookingID, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// UserMessage maps an error returned by the booking core to the text shown to volunteers
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrShiftNotFound):
		return "This shift does not exist."
	case errors.Is(err, ErrBookingNotFound):
		return "This booking does not exist."
	case errors.Is(err, ErrEventNotFound):
		return "This event does not exist."
	case errors.Is(err, ErrRoleNotFound):
		return "This role does not exist."
	case errors.Is(err, ErrCapacityExceeded):
		return "There are no vacancies left on this shift."
	case errors.Is(err, ErrDuplicateBooking):
		return "You are already registered for this shift."
	case errors.Is(err, ErrTimeSlotConflict):
		return "You already have a conflicting commitment in this time slot."
	case errors.Is(err, ErrInvalidTransition):
		return "This action cannot be performed right now."
	case errors.Is(err, ErrUnauthorized):
		return "You are not allowed to perform this action."
	case errors.Is(err, ErrCapacityBelowOccupancy):
		return "Capacity cannot be lower than the number of booked volunteers."
	case errors.Is(err, ErrEventDates):
		return "The end date must be on or after the start date."
	case errors.Is(err, ErrTooManyActiveEvents):
		return "The maximum number of active events has been reached."
	case errors.Is(err, ErrDuplicateSlug):
		return "Another event already uses this slug."
	case errors.Is(err, ErrDuplicateShift):
		return "This shift already exists."
	case errors.Is(err, ErrInvalidAttendance):
		return "Attendance must be pending, attended or absent."
	case errors.Is(err, ErrEventArchived):
		return "This event is archived and can no longer be changed."
	case errors.Is(err, ErrShiftOutsideEvent):
		return "The shift date must fall within the event dates."
	case errors.Is(err, ErrShiftHasBookings):
		return "This shift still has volunteers booked. Cancel their bookings first."
	case errors.Is(err, ErrUserNotFound):
		return "This user does not exist."
	default:
		return "Something went wrong. Please try again later."
	}
}
