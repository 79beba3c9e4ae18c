package notify

import (
	"context"
	"errors"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// Kind identifies what happened to a booking
type Kind string

const (
	KindBookingCreated        Kind = "booking_created"
	KindRequestPending        Kind = "request_pending"
	KindRequestApproved       Kind = "request_approved"
	KindRequestRejected       Kind = "request_rejected"
	KindCancellationRequested Kind = "cancellation_requested"
	KindCancellationApproved  Kind = "cancellation_approved"
	KindCancellationRejected  Kind = "cancellation_rejected"
	KindAttendanceMarked      Kind = "attendance_marked"
	KindShiftRescheduled      Kind = "shift_rescheduled"
)

// ForStaff reports whether the kind needs action from an admin or coordinator
func (k Kind) ForStaff() bool {
	return k == KindRequestPending || k == KindCancellationRequested
}

// ForVolunteer reports whether the volunteer who owns the booking is told.
// A cancellation request goes to both sides.
func (k Kind) ForVolunteer() bool {
	return k != KindRequestPending
}

// Notification carries a committed booking change and its context
type Notification struct {
	Kind    Kind
	Booking model.Booking
	Shift   model.Shift
	Role    model.Role
	Event   model.Event
	User    *model.User // nil if the user record could not be loaded

	// Previous is the shift before a reschedule, set only for KindShiftRescheduled
	Previous *model.Shift
}

// Notifier delivers notifications after a booking change is committed
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Nop discards every notification
type Nop struct{}

func (Nop) Notify(ctx context.Context, n Notification) error {
	return nil
}

// Multi fans a notification out to every notifier and joins their errors
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
