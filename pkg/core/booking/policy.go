package booking

import (
	"slices"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// CanApprove reports whether the actor may approve or reject bookings and
// manage shifts of the event
func CanApprove(actor model.Actor, eventID string) bool {
	switch actor.Role {
	case model.UserSuperAdmin:
		return true
	case model.UserAdmin:
		return slices.Contains(actor.ManagedEventIDs, eventID)
	}
	return false
}

// CanMarkAttendance reports whether the actor may record attendance and food
// delivery on the shift
func CanMarkAttendance(actor model.Actor, shift model.Shift) bool {
	if CanApprove(actor, shift.EventID) {
		return true
	}
	return actor.UserID != "" && shift.HasCoordinator(actor.UserID)
}

// CanActFor reports whether the actor may book or cancel on behalf of userID
func CanActFor(actor model.Actor, userID, eventID string) bool {
	return actor.UserID == userID || CanApprove(actor, eventID)
}
