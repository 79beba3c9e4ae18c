package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// EmailSender sends a plain-text email. *gmailclient.Client implements it.
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// EmailNotifier emails volunteers about changes to their own bookings
type EmailNotifier struct {
	sender EmailSender
	logger *zap.Logger
}

func NewEmailNotifier(sender EmailSender, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{sender: sender, logger: logger}
}

func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	if !n.Kind.ForVolunteer() {
		return nil
	}
	if n.User == nil || n.User.Email == "" {
		e.logger.Debug("Skipping email, no address on file",
			zap.String("kind", string(n.Kind)),
			zap.String("booking_id", n.Booking.ID))
		return nil
	}

	subject, body := composeEmail(n)
	if err := e.sender.SendEmail(n.User.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send %s email: %w", n.Kind, err)
	}

	e.logger.Debug("Email sent",
		zap.String("kind", string(n.Kind)),
		zap.String("booking_id", n.Booking.ID),
		zap.String("to", n.User.Email))
	return nil
}

func composeEmail(n Notification) (string, string) {
	var subject, intro string
	switch n.Kind {
	case KindBookingCreated:
		if n.Role.RequiresApproval {
			subject = "Shift request received"
			intro = "We have received your request. An organiser will review it shortly."
		} else {
			subject = "Shift confirmed"
			intro = "Your shift is confirmed. Thank you for volunteering!"
		}
	case KindRequestApproved:
		subject = "Shift request approved"
		intro = "Your request has been approved and your shift is confirmed."
	case KindRequestRejected:
		subject = "Shift request declined"
		intro = "Unfortunately your request could not be accepted this time."
	case KindCancellationRequested:
		subject = "Cancellation request received"
		intro = "We have received your cancellation request. You remain booked until an organiser approves it."
	case KindCancellationApproved:
		subject = "Cancellation approved"
		intro = "Your cancellation has been approved. The shift is no longer in your schedule."
	case KindCancellationRejected:
		subject = "Cancellation not approved"
		intro = "Your cancellation request was not approved. You are still booked on this shift."
	case KindAttendanceMarked:
		if n.Booking.Attendance == model.AttendanceAbsent {
			subject = "We missed you"
			intro = "You were marked as absent from your shift. If something came up, please let the organisers know so we can keep your place for future shifts."
		} else {
			subject = "Thank you for volunteering"
			intro = "Thank you for coming to your shift! Your attendance has been recorded."
		}
	case KindShiftRescheduled:
		subject = "Shift changed"
		intro = "The organisers have changed the date or time of your shift. Please check the new details below."
		if n.Previous != nil {
			intro += fmt.Sprintf("\nIt was previously on %s at %s.", n.Previous.Date, n.Previous.TimeSlot)
		}
	default:
		subject = "Booking update"
		intro = "There is an update on your booking."
	}

	var body strings.Builder
	name := "volunteer"
	if n.User != nil && n.User.FullName != "" {
		name = n.User.FullName
	}
	fmt.Fprintf(&body, "Hi %s,\n\n%s\n\n", name, intro)
	fmt.Fprintf(&body, "Event: %s\n", n.Event.Name)
	fmt.Fprintf(&body, "Role:  %s\n", n.Role.Name)
	fmt.Fprintf(&body, "Date:  %s\n", n.Shift.Date)
	fmt.Fprintf(&body, "Time:  %s\n", n.Shift.TimeSlot)

	return fmt.Sprintf("%s - %s", subject, n.Event.Name), body.String()
}
