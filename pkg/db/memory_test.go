package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

func TestMemoryStore_InTxCommits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.InTx(ctx, func(tx Tx) error {
		if err := tx.SaveShift(ctx, &model.Shift{ID: "shift-1", TotalVacancies: 3, AvailableVacancies: 3}); err != nil {
			return err
		}
		// Staged writes are visible inside the transaction
		shift, err := tx.LockShift(ctx, "shift-1")
		require.NoError(t, err)
		assert.Equal(t, 3, shift.TotalVacancies)
		return nil
	})
	require.NoError(t, err)

	shift, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 3, shift.AvailableVacancies)
}

func TestMemoryStore_InTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "shift-1", TotalVacancies: 3, AvailableVacancies: 3}))

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.SaveBooking(ctx, &model.Booking{ID: "b-1", ShiftID: "shift-1"}))
		require.NoError(t, tx.SaveShift(ctx, &model.Shift{ID: "shift-1", TotalVacancies: 3, AvailableVacancies: 2}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetBooking(ctx, "b-1")
	assert.ErrorIs(t, err, ErrNotFound)

	shift, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 3, shift.AvailableVacancies)
}

func TestMemoryStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetShift(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetEventBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetUser(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnedShiftIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "shift-1", CoordinatorIDs: []string{"u-1"}}))

	shift, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	shift.CoordinatorIDs[0] = "changed"

	again, err := store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u-1"}, again.CoordinatorIDs)
}

func TestMemoryStore_QueryBookings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	bookings := []model.Booking{
		{ID: "b-1", UserID: "u-1", ShiftID: "s-1", EventID: "e-1", Status: model.StatusConfirmed, RequestedAt: base},
		{ID: "b-2", UserID: "u-2", ShiftID: "s-1", EventID: "e-1", Status: model.StatusCancelled, RequestedAt: base.Add(time.Minute)},
		{ID: "b-3", UserID: "u-1", ShiftID: "s-2", EventID: "e-2", Status: model.StatusPendingApproval, RequestedAt: base.Add(2 * time.Minute)},
	}
	for i := range bookings {
		require.NoError(t, store.SaveBooking(ctx, &bookings[i]))
	}

	tests := []struct {
		name   string
		filter BookingFilter
		want   []string
	}{
		{"all", BookingFilter{}, []string{"b-1", "b-2", "b-3"}},
		{"by shift", BookingFilter{ShiftID: "s-1"}, []string{"b-1", "b-2"}},
		{"by user", BookingFilter{UserID: "u-1"}, []string{"b-1", "b-3"}},
		{"by event", BookingFilter{EventID: "e-2"}, []string{"b-3"}},
		{"by status", BookingFilter{Statuses: model.ActiveStatuses}, []string{"b-1", "b-3"}},
		{"combined", BookingFilter{ShiftID: "s-1", Statuses: []model.BookingStatus{model.StatusCancelled}}, []string{"b-2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.QueryBookings(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, len(got))
			for i, b := range got {
				ids[i] = b.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryStore_ListShiftsOrdered(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "c", EventID: "e-1", Date: "2026-05-02", TimeSlot: "09:00-13:00"}))
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "b", EventID: "e-1", Date: "2026-05-01", TimeSlot: "13:00-16:00"}))
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "a", EventID: "e-1", Date: "2026-05-01", TimeSlot: "09:00-13:00"}))
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "x", EventID: "e-2", Date: "2026-05-01", TimeSlot: "09:00-13:00"}))

	shifts, err := store.ListShifts(ctx, ShiftFilter{EventID: "e-1"})
	require.NoError(t, err)
	require.Len(t, shifts, 3)
	assert.Equal(t, "a", shifts[0].ID)
	assert.Equal(t, "b", shifts[1].ID)
	assert.Equal(t, "c", shifts[2].ID)
}

func TestMemoryStore_ListShiftsByCoordinator(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "a", EventID: "e-1", Date: "2026-05-01", CoordinatorIDs: []string{"c-1", "c-2"}}))
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "b", EventID: "e-1", Date: "2026-05-02", CoordinatorIDs: []string{"c-2"}}))
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "c", EventID: "e-1", Date: "2026-05-03"}))

	shifts, err := store.ListShifts(ctx, ShiftFilter{CoordinatorID: "c-1"})
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "a", shifts[0].ID)

	shifts, err = store.ListShifts(ctx, ShiftFilter{CoordinatorID: "c-2"})
	require.NoError(t, err)
	assert.Len(t, shifts, 2)
}

func TestMemoryStore_DeleteShift(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "shift-1", EventID: "e-1"}))
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "shift-2", EventID: "e-1"}))
	require.NoError(t, store.SaveBooking(ctx, &model.Booking{ID: "b-1", ShiftID: "shift-1", Status: model.StatusCancelled}))
	require.NoError(t, store.SaveBooking(ctx, &model.Booking{ID: "b-2", ShiftID: "shift-2", Status: model.StatusConfirmed}))

	err := store.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.DeleteShift(ctx, "shift-1"))

		// The deletion is visible inside the transaction
		_, err := tx.GetShift(ctx, "shift-1")
		assert.ErrorIs(t, err, ErrNotFound)
		bookings, err := tx.QueryBookings(ctx, BookingFilter{ShiftID: "shift-1"})
		require.NoError(t, err)
		assert.Empty(t, bookings)
		return nil
	})
	require.NoError(t, err)

	_, err = store.GetShift(ctx, "shift-1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetBooking(ctx, "b-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Other shifts keep their bookings
	_, err = store.GetBooking(ctx, "b-2")
	require.NoError(t, err)

	assert.ErrorIs(t, store.DeleteShift(ctx, "shift-1"), ErrNotFound)
}

func TestMemoryStore_DeleteShiftRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.SaveShift(ctx, &model.Shift{ID: "shift-1"}))

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.DeleteShift(ctx, "shift-1"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.GetShift(ctx, "shift-1")
	require.NoError(t, err)
}
