package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
)

// toHTTPError maps a booking core error to a huma status error carrying the
// user-facing message. Unknown errors are logged and hidden behind a 500.
func toHTTPError(logger *zap.Logger, err error) error {
	msg := booking.UserMessage(err)

	switch {
	case errors.Is(err, booking.ErrShiftNotFound),
		errors.Is(err, booking.ErrBookingNotFound),
		errors.Is(err, booking.ErrEventNotFound),
		errors.Is(err, booking.ErrRoleNotFound),
		errors.Is(err, booking.ErrUserNotFound):
		return huma.Error404NotFound(msg)
	case errors.Is(err, booking.ErrUnauthorized):
		return huma.Error403Forbidden(msg)
	case errors.Is(err, booking.ErrCapacityExceeded),
		errors.Is(err, booking.ErrDuplicateBooking),
		errors.Is(err, booking.ErrTimeSlotConflict),
		errors.Is(err, booking.ErrCapacityBelowOccupancy),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrEventArchived),
		errors.Is(err, booking.ErrDuplicateShift),
		errors.Is(err, booking.ErrShiftHasBookings):
		return huma.Error409Conflict(msg)
	case errors.Is(err, booking.ErrInvalidAttendance),
		errors.Is(err, booking.ErrShiftOutsideEvent):
		return huma.Error422UnprocessableEntity(msg)
	}

	logger.Error("Request failed", zap.Error(err))
	return huma.Error500InternalServerError(msg)
}
