package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

func TestCanApprove(t *testing.T) {
	tests := []struct {
		name  string
		actor model.Actor
		want  bool
	}{
		{"superadmin", model.Actor{UserID: "u", Role: model.UserSuperAdmin}, true},
		{"admin of event", model.Actor{UserID: "u", Role: model.UserAdmin, ManagedEventIDs: []string{"e-1"}}, true},
		{"admin of other event", model.Actor{UserID: "u", Role: model.UserAdmin, ManagedEventIDs: []string{"e-2"}}, false},
		{"coordinator", model.Actor{UserID: "u", Role: model.UserCoordinator, ManagedEventIDs: []string{"e-1"}}, false},
		{"volunteer", model.Actor{UserID: "u", Role: model.UserVolunteer}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanApprove(tt.actor, "e-1"))
		})
	}
}

func TestCanMarkAttendance(t *testing.T) {
	shift := model.Shift{ID: "s-1", EventID: "e-1", CoordinatorIDs: []string{"coord-1"}}

	assert.True(t, CanMarkAttendance(model.Actor{UserID: "coord-1", Role: model.UserCoordinator}, shift))
	assert.False(t, CanMarkAttendance(model.Actor{UserID: "coord-2", Role: model.UserCoordinator}, shift))
	assert.True(t, CanMarkAttendance(model.Actor{UserID: "a", Role: model.UserAdmin, ManagedEventIDs: []string{"e-1"}}, shift))
	assert.False(t, CanMarkAttendance(model.Actor{UserID: "v", Role: model.UserVolunteer}, shift))
	assert.False(t, CanMarkAttendance(model.Actor{}, model.Shift{EventID: "e-1", CoordinatorIDs: []string{""}}))
}

func TestCanActFor(t *testing.T) {
	assert.True(t, CanActFor(model.Actor{UserID: "u-1", Role: model.UserVolunteer}, "u-1", "e-1"))
	assert.False(t, CanActFor(model.Actor{UserID: "u-2", Role: model.UserVolunteer}, "u-1", "e-1"))
	assert.True(t, CanActFor(model.Actor{UserID: "a", Role: model.UserSuperAdmin}, "u-1", "e-1"))
}
