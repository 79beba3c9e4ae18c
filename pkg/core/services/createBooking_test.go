package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

func TestCreateBooking_ConfirmedWhenNoApprovalNeeded(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 3)

	b, err := env.svc.CreateBooking(env.ctx, "u-1", shift.ID)

	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, b.Status)
	assert.Equal(t, "u-1", b.UserID)
	assert.Equal(t, env.event.ID, b.EventID)
	assert.Equal(t, testNow, b.RequestedAt)
	assert.Nil(t, b.CancelledAt)
	assert.NotEmpty(t, b.ID)

	assert.Equal(t, 2, env.getShift(t, shift.ID).AvailableVacancies)
	env.requireCapacityInvariant(t, shift.ID)
	assert.Equal(t, []notify.Kind{notify.KindBookingCreated}, env.notifier.kinds())
}

func TestCreateBooking_PendingWhenRoleRequiresApproval(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Coordinator", true)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 2)

	b := env.book(t, "u-1", shift.ID)

	assert.Equal(t, model.StatusPendingApproval, b.Status)
	assert.Equal(t, 1, env.getShift(t, shift.ID).AvailableVacancies)
	assert.Equal(t, []notify.Kind{notify.KindBookingCreated, notify.KindRequestPending}, env.notifier.kinds())
}

func TestCreateBooking_ShiftNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.CreateBooking(env.ctx, "u-1", "missing")

	assert.ErrorIs(t, err, booking.ErrShiftNotFound)
	assert.Empty(t, env.notifier.kinds())
}

func TestCreateBooking_DuplicateLeavesVacanciesUnchanged(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 3)
	env.book(t, "u-1", shift.ID)
	before := env.getShift(t, shift.ID).AvailableVacancies

	_, err := env.svc.CreateBooking(env.ctx, "u-1", shift.ID)

	assert.ErrorIs(t, err, booking.ErrDuplicateBooking)
	assert.Equal(t, before, env.getShift(t, shift.ID).AvailableVacancies)
	env.requireCapacityInvariant(t, shift.ID)
}

func TestCreateBooking_RebookAfterCancellation(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 3)
	b := env.book(t, "u-1", shift.ID)

	user := model.Actor{UserID: "u-1", Role: model.UserVolunteer}
	_, err := env.svc.RequestCancellation(env.ctx, user, b.ID)
	require.NoError(t, err)
	_, err = env.svc.ApproveCancellation(env.ctx, env.admin, b.ID)
	require.NoError(t, err)

	again, err := env.svc.CreateBooking(env.ctx, "u-1", shift.ID)

	require.NoError(t, err)
	assert.NotEqual(t, b.ID, again.ID)
	env.requireCapacityInvariant(t, shift.ID)
}

func TestCreateBooking_TimeSlotConflict(t *testing.T) {
	env := newTestEnv(t)
	reception := env.role(t, "Reception", false)
	kitchen := env.role(t, "Kitchen", false)
	shiftA := env.shift(t, reception, "2026-05-01", "09:00-13:00", 3)
	shiftB := env.shift(t, kitchen, "2026-05-01", "09:00-13:00", 3)
	env.book(t, "u-1", shiftA.ID)

	_, err := env.svc.CreateBooking(env.ctx, "u-1", shiftB.ID)

	assert.ErrorIs(t, err, booking.ErrTimeSlotConflict)
	assert.Equal(t, 3, env.getShift(t, shiftB.ID).AvailableVacancies)
}

func TestCreateBooking_DifferentSlotIsNotAConflict(t *testing.T) {
	env := newTestEnv(t)
	reception := env.role(t, "Reception", false)
	morning := env.shift(t, reception, "2026-05-01", "09:00-13:00", 3)
	afternoon := env.shift(t, reception, "2026-05-01", "13:00-16:00", 3)
	nextDay := env.shift(t, reception, "2026-05-02", "09:00-13:00", 3)
	env.book(t, "u-1", morning.ID)

	_, err := env.svc.CreateBooking(env.ctx, "u-1", afternoon.ID)
	require.NoError(t, err)
	_, err = env.svc.CreateBooking(env.ctx, "u-1", nextDay.ID)
	require.NoError(t, err)
}

func TestCreateBooking_CapacityExceeded(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 1)
	env.book(t, "u-1", shift.ID)

	_, err := env.svc.CreateBooking(env.ctx, "u-2", shift.ID)

	assert.ErrorIs(t, err, booking.ErrCapacityExceeded)
	assert.Equal(t, "There are no vacancies left on this shift.", booking.UserMessage(err))
	assert.Equal(t, 0, env.getShift(t, shift.ID).AvailableVacancies)
	env.requireCapacityInvariant(t, shift.ID)
}

func TestCreateBooking_NoOverbookingUnderConcurrency(t *testing.T) {
	const capacity = 5
	const attempts = 40

	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", capacity)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var successes, full int
	var unexpected []error

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.svc.CreateBooking(env.ctx, fmt.Sprintf("u-%d", i), shift.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, booking.ErrCapacityExceeded):
				full++
			default:
				unexpected = append(unexpected, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, unexpected)
	assert.Equal(t, capacity, successes)
	assert.Equal(t, attempts-capacity, full)
	assert.Equal(t, 0, env.getShift(t, shift.ID).AvailableVacancies)
	env.requireCapacityInvariant(t, shift.ID)
}

func TestCreateBooking_ConcurrentSameUserBooksOnce(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 10)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.CreateBooking(env.ctx, "u-1", shift.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, booking.ErrDuplicateBooking)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 9, env.getShift(t, shift.ID).AvailableVacancies)
}

func TestCreateBookingFor(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 3)

	t.Run("volunteer books for themself", func(t *testing.T) {
		b, err := env.svc.CreateBookingFor(env.ctx, model.Actor{UserID: "u-1", Role: model.UserVolunteer}, "u-1", shift.ID)
		require.NoError(t, err)
		assert.Equal(t, "u-1", b.UserID)
	})

	t.Run("volunteer cannot book for someone else", func(t *testing.T) {
		_, err := env.svc.CreateBookingFor(env.ctx, model.Actor{UserID: "u-1", Role: model.UserVolunteer}, "u-2", shift.ID)
		assert.ErrorIs(t, err, booking.ErrUnauthorized)
	})

	t.Run("event admin books for a volunteer", func(t *testing.T) {
		b, err := env.svc.CreateBookingFor(env.ctx, env.admin, "u-3", shift.ID)
		require.NoError(t, err)
		assert.Equal(t, "u-3", b.UserID)
	})

	t.Run("missing shift", func(t *testing.T) {
		_, err := env.svc.CreateBookingFor(env.ctx, env.admin, "u-3", "missing")
		assert.ErrorIs(t, err, booking.ErrShiftNotFound)
	})
}

func TestCreateBooking_ArchivedEventRejected(t *testing.T) {
	env := newTestEnv(t)
	role := env.role(t, "Reception", false)
	shift := env.shift(t, role, "2026-05-01", "09:00-13:00", 3)
	env.archive(t)

	_, err := env.svc.CreateBooking(env.ctx, "u-1", shift.ID)

	assert.ErrorIs(t, err, booking.ErrEventArchived)
	assert.Equal(t, 3, env.getShift(t, shift.ID).AvailableVacancies)
	env.requireCapacityInvariant(t, shift.ID)
	assert.Empty(t, env.notifier.kinds())
}
