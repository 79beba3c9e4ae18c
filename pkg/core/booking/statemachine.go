package booking

import (
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// Action is an event that moves a booking between statuses
type Action string

const (
	ActionApproveRequest      Action = "approve_request"
	ActionRejectRequest       Action = "reject_request"
	ActionRequestCancellation Action = "request_cancellation"
	ActionApproveCancellation Action = "approve_cancellation"
	ActionRejectCancellation  Action = "reject_cancellation"
)

// transitions lists every legal (status, action) pair.
// cancelled and waitlist have no outgoing edges.
var transitions = map[model.BookingStatus]map[Action]model.BookingStatus{
	model.StatusPendingApproval: {
		ActionApproveRequest: model.StatusConfirmed,
		ActionRejectRequest:  model.StatusCancelled,
	},
	model.StatusConfirmed: {
		ActionRequestCancellation: model.StatusCancellationRequested,
	},
	model.StatusCancellationRequested: {
		ActionApproveCancellation: model.StatusCancelled,
		ActionRejectCancellation:  model.StatusConfirmed,
	},
}

// Next returns the status reached by applying action to a booking in status from
func Next(from model.BookingStatus, action Action) (model.BookingStatus, bool) {
	next, ok := transitions[from][action]
	return next, ok
}

// Apply moves the booking to its next status or returns a *TransitionError
func Apply(b *model.Booking, action Action) error {
	next, ok := Next(b.Status, action)
	if !ok {
		return &TransitionError{BookingID: b.ID, From: b.Status, Action: action}
	}
	b.Status = next
	return nil
}

// InitialStatus is the status of a new booking on a shift of the given role
func InitialStatus(role model.Role) model.BookingStatus {
	if role.RequiresApproval {
		return model.StatusPendingApproval
	}
	return model.StatusConfirmed
}

// Occupies reports whether a booking in this status holds a vacancy
func Occupies(status model.BookingStatus) bool {
	switch status {
	case model.StatusConfirmed, model.StatusPendingApproval, model.StatusCancellationRequested:
		return true
	}
	return false
}

// OccupyingStatuses are the statuses counted against shift capacity
var OccupyingStatuses = []model.BookingStatus{
	model.StatusConfirmed,
	model.StatusPendingApproval,
	model.StatusCancellationRequested,
}
