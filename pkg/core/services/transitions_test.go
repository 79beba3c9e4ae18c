package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

func TestRequestCancellation_KeepsSeatUntilApproved(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "u-1", shift.ID)
	env.notifier.reset()

	updated, err := env.svc.RequestCancellation(env.ctx, model.Actor{UserID: "u-1", Role: model.UserVolunteer}, b.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusCancellationRequested, updated.Status)
	require.NotNil(t, updated.CancelledAt)
	assert.Equal(t, testNow, *updated.CancelledAt)
	assert.Equal(t, 1, env.getShift(t, shift.ID).AvailableVacancies)
	env.requireCapacityInvariant(t, shift.ID)
	assert.Equal(t, []notify.Kind{notify.KindCancellationRequested}, env.notifier.kinds())
}

func TestRequestCancellation_Errors(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Coordinator", true)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	pending := env.book(t, "u-1", shift.ID)
	owner := model.Actor{UserID: "u-1", Role: model.UserVolunteer}

	t.Run("missing booking", func(t *testing.T) {
		_, err := env.svc.RequestCancellation(env.ctx, owner, "missing")
		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})

	t.Run("another volunteer", func(t *testing.T) {
		_, err := env.svc.RequestCancellation(env.ctx, model.Actor{UserID: "u-2", Role: model.UserVolunteer}, pending.ID)
		assert.ErrorIs(t, err, booking.ErrUnauthorized)
	})

	t.Run("pending booking cannot request cancellation", func(t *testing.T) {
		_, err := env.svc.RequestCancellation(env.ctx, owner, pending.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
		assert.Equal(t, "This action cannot be performed right now.", booking.UserMessage(err))

		var transitionErr *booking.TransitionError
		require.True(t, errors.As(err, &transitionErr))
		assert.Equal(t, model.StatusPendingApproval, transitionErr.From)
		assert.Equal(t, model.StatusPendingApproval, env.getBooking(t, pending.ID).Status)
	})
}

func TestApproveCancellation_FreesExactlyOneSeat(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	first := env.book(t, "u-1", shift.ID)
	env.book(t, "u-2", shift.ID)

	_, err := env.svc.CreateBooking(env.ctx, "u-3", shift.ID)
	require.ErrorIs(t, err, booking.ErrCapacityExceeded)

	_, err = env.svc.RequestCancellation(env.ctx, model.Actor{UserID: "u-1"}, first.ID)
	require.NoError(t, err)
	cancelled, err := env.svc.ApproveCancellation(env.ctx, env.admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, 1, env.getShift(t, shift.ID).AvailableVacancies)

	_, err = env.svc.CreateBooking(env.ctx, "u-3", shift.ID)
	require.NoError(t, err)
	_, err = env.svc.CreateBooking(env.ctx, "u-4", shift.ID)
	assert.ErrorIs(t, err, booking.ErrCapacityExceeded)
	env.requireCapacityInvariant(t, shift.ID)
}

func TestRejectCancellation_RestoresConfirmed(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "u-1", shift.ID)
	_, err := env.svc.RequestCancellation(env.ctx, model.Actor{UserID: "u-1"}, b.ID)
	require.NoError(t, err)
	env.notifier.reset()

	updated, err := env.svc.RejectCancellation(env.ctx, env.admin, b.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, updated.Status)
	assert.Nil(t, updated.CancelledAt)
	assert.Equal(t, 1, env.getShift(t, shift.ID).AvailableVacancies)
	assert.Equal(t, []notify.Kind{notify.KindCancellationRejected}, env.notifier.kinds())
}

func TestAdminOperations_RequireApprover(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Coordinator", true)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "u-1", shift.ID)

	actors := map[string]model.Actor{
		"volunteer":            {UserID: "u-1", Role: model.UserVolunteer},
		"coordinator":          {UserID: "c-1", Role: model.UserCoordinator},
		"admin of other event": {UserID: "a-2", Role: model.UserAdmin, ManagedEventIDs: []string{"other"}},
	}

	for name, actor := range actors {
		t.Run(name, func(t *testing.T) {
			_, err := env.svc.ApproveRequest(env.ctx, actor, b.ID)
			assert.ErrorIs(t, err, booking.ErrUnauthorized)
			_, err = env.svc.RejectRequest(env.ctx, actor, b.ID)
			assert.ErrorIs(t, err, booking.ErrUnauthorized)
			_, err = env.svc.ApproveCoordinatorRequest(env.ctx, actor, b.ID)
			assert.ErrorIs(t, err, booking.ErrUnauthorized)
			_, err = env.svc.ApproveCancellation(env.ctx, actor, b.ID)
			assert.ErrorIs(t, err, booking.ErrUnauthorized)
			_, err = env.svc.RejectCancellation(env.ctx, actor, b.ID)
			assert.ErrorIs(t, err, booking.ErrUnauthorized)
		})
	}

	assert.Equal(t, model.StatusPendingApproval, env.getBooking(t, b.ID).Status)
}

func TestStateMachineLegality_ThroughService(t *testing.T) {
	env := newTestEnv(t)
	approvalRole := env.role(t, "Coordinator", true)
	openRole := env.role(t, "Reception", false)
	pendingShift := env.shift(t, approvalRole, "2026-05-01", "09:00-13:00", 5)
	confirmedShift := env.shift(t, openRole, "2026-05-02", "09:00-13:00", 5)

	pending := env.book(t, "u-1", pendingShift.ID)
	confirmed := env.book(t, "u-2", confirmedShift.ID)

	superadmin := model.Actor{UserID: "root", Role: model.UserSuperAdmin}

	t.Run("approve cancellation on pending booking", func(t *testing.T) {
		_, err := env.svc.ApproveCancellation(env.ctx, superadmin, pending.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("reject cancellation on pending booking", func(t *testing.T) {
		_, err := env.svc.RejectCancellation(env.ctx, superadmin, pending.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("approve request on confirmed booking", func(t *testing.T) {
		_, err := env.svc.ApproveRequest(env.ctx, superadmin, confirmed.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("reject request on confirmed booking", func(t *testing.T) {
		_, err := env.svc.RejectRequest(env.ctx, superadmin, confirmed.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	t.Run("cancelled booking is terminal", func(t *testing.T) {
		rejected, err := env.svc.RejectRequest(env.ctx, superadmin, pending.ID)
		require.NoError(t, err)
		require.Equal(t, model.StatusCancelled, rejected.Status)

		_, err = env.svc.ApproveRequest(env.ctx, superadmin, pending.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
		_, err = env.svc.RequestCancellation(env.ctx, superadmin, pending.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
		_, err = env.svc.ApproveCancellation(env.ctx, superadmin, pending.ID)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})

	env.requireCapacityInvariant(t, pendingShift.ID)
	env.requireCapacityInvariant(t, confirmedShift.ID)
}

func TestApproveRequest_Confirms(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Coordinator", true)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "u-1", shift.ID)
	env.notifier.reset()

	approved, err := env.svc.ApproveRequest(env.ctx, env.admin, b.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, approved.Status)
	assert.Equal(t, 1, env.getShift(t, shift.ID).AvailableVacancies)
	assert.Equal(t, []notify.Kind{notify.KindRequestApproved}, env.notifier.kinds())
}

func TestApproveCoordinatorRequest_PromotesVolunteer(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "u-1", "Ana Garcia")
	role := env.role(t, "Coordinator", true)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "u-1", shift.ID)

	approved, err := env.svc.ApproveCoordinatorRequest(env.ctx, env.admin, b.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, approved.Status)

	updatedShift := env.getShift(t, shift.ID)
	assert.Equal(t, []string{"u-1"}, updatedShift.CoordinatorIDs)
	assert.Equal(t, 1, updatedShift.AvailableVacancies)

	user, err := env.store.GetUser(env.ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, model.UserCoordinator, user.Role)

	// The new coordinator may now mark attendance on the shift
	other := env.book(t, "u-2", shift.ID)
	_, err = env.svc.UpdateAttendance(env.ctx, model.Actor{UserID: "u-1", Role: model.UserCoordinator}, other.ID, model.AttendanceAttended)
	assert.NoError(t, err)
}

func TestApproveCoordinatorRequest_MissingUserStillApproves(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Coordinator", true)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "ghost", shift.ID)

	approved, err := env.svc.ApproveCoordinatorRequest(env.ctx, env.admin, b.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, approved.Status)
	assert.Equal(t, []string{"ghost"}, env.getShift(t, shift.ID).CoordinatorIDs)
}

func TestApproveCoordinatorRequest_RollsBackOnInvalidTransition(t *testing.T) {
	env := newTestEnv(t)
	env.user(t, "u-1", "Ana Garcia")
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "u-1", shift.ID)

	_, err := env.svc.ApproveCoordinatorRequest(env.ctx, env.admin, b.ID)

	assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	assert.Empty(t, env.getShift(t, shift.ID).CoordinatorIDs)
	user, err := env.store.GetUser(env.ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, model.UserVolunteer, user.Role)
}

// End-to-end: approval role, capacity one, reject frees the seat for the next volunteer
func TestEndToEnd_ApprovalRoleSingleSeat(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Coordinator", true)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 1)

	a, err := env.svc.CreateBooking(env.ctx, "user-a", shift.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingApproval, a.Status)
	assert.Equal(t, 0, env.getShift(t, shift.ID).AvailableVacancies)

	_, err = env.svc.CreateBooking(env.ctx, "user-b", shift.ID)
	assert.ErrorIs(t, err, booking.ErrCapacityExceeded)

	rejected, err := env.svc.RejectRequest(env.ctx, env.admin, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, rejected.Status)
	assert.Equal(t, 1, env.getShift(t, shift.ID).AvailableVacancies)

	b, err := env.svc.CreateBooking(env.ctx, "user-b", shift.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingApproval, b.Status)
	assert.Equal(t, 0, env.getShift(t, shift.ID).AvailableVacancies)
	env.requireCapacityInvariant(t, shift.ID)
}

func TestTransitions_ArchivedEventIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)
	b := env.book(t, "u-1", shift.ID)
	env.archive(t)
	env.notifier.reset()

	user := model.Actor{UserID: "u-1", Role: model.UserVolunteer}
	_, err := env.svc.RequestCancellation(env.ctx, user, b.ID)
	assert.ErrorIs(t, err, booking.ErrEventArchived)

	_, err = env.svc.ApproveCancellation(env.ctx, env.admin, b.ID)
	assert.ErrorIs(t, err, booking.ErrEventArchived)

	assert.Equal(t, model.StatusConfirmed, env.getBooking(t, b.ID).Status)
	assert.Equal(t, 1, env.getShift(t, shift.ID).AvailableVacancies)
	assert.Empty(t, env.notifier.kinds())
}
