package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
	"github.com/jakechorley/volunteer-shifts/pkg/notify"
)

var testNow = time.Date(2026, 4, 20, 10, 0, 0, 0, time.UTC)

// recordingNotifier collects every notification sent after commit
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(r.sent))
	for _, n := range r.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

type testEnv struct {
	ctx      context.Context
	store    *db.MemoryStore
	notifier *recordingNotifier
	svc      *BookingService
	event    *model.Event
	admin    model.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	store := db.NewMemoryStore()
	notifier := &recordingNotifier{}
	svc := NewBookingService(store, notifier, testLogger(), WithClock(func() time.Time { return testNow }))

	event, err := DefineEvent(ctx, store, testLogger(), EventInput{
		Slug:      "spring-festival",
		Name:      "Spring Festival",
		Location:  "Madrid",
		Country:   "ES",
		StartDate: "2026-05-01",
		EndDate:   "2026-05-03",
	}, 5)
	require.NoError(t, err)

	return &testEnv{
		ctx:      ctx,
		store:    store,
		notifier: notifier,
		svc:      svc,
		event:    event,
		admin:    model.Actor{UserID: "admin-1", Role: model.UserAdmin, ManagedEventIDs: []string{event.ID}},
	}
}

func (e *testEnv) role(t *testing.T, name string, requiresApproval bool) *model.Role {
	t.Helper()
	role, err := DefineRole(e.ctx, e.store, testLogger(), RoleInput{
		EventID:          e.event.ID,
		Name:             name,
		RequiresApproval: requiresApproval,
	})
	require.NoError(t, err)
	return role
}

func (e *testEnv) shift(t *testing.T, role *model.Role, date, slot string, vacancies int) *model.Shift {
	t.Helper()
	shift, err := DefineShift(e.ctx, e.store, testLogger(), ShiftInput{
		EventID:        e.event.ID,
		RoleID:         role.ID,
		Date:           date,
		TimeSlot:       slot,
		TotalVacancies: vacancies,
	})
	require.NoError(t, err)
	return shift
}

func (e *testEnv) user(t *testing.T, id, name string) *model.User {
	t.Helper()
	user := &model.User{
		ID:       id,
		DNI:      "DNI-" + id,
		FullName: name,
		Email:    id + "@example.com",
		Role:     model.UserVolunteer,
		Status:   model.UserActive,
	}
	require.NoError(t, e.store.SaveUser(e.ctx, user))
	return user
}

func (e *testEnv) book(t *testing.T, userID, shiftID string) *model.Booking {
	t.Helper()
	b, err := e.svc.CreateBooking(e.ctx, userID, shiftID)
	require.NoError(t, err)
	return b
}

func (e *testEnv) getShift(t *testing.T, id string) *model.Shift {
	t.Helper()
	shift, err := e.store.GetShift(e.ctx, id)
	require.NoError(t, err)
	return shift
}

func (e *testEnv) getBooking(t *testing.T, id string) *model.Booking {
	t.Helper()
	b, err := e.store.GetBooking(e.ctx, id)
	require.NoError(t, err)
	return b
}

// archive moves the test event to the archived state
func (e *testEnv) archive(t *testing.T) {
	t.Helper()
	_, err := UpdateEventState(e.ctx, e.store, testLogger(), e.event.ID, model.EventArchived, 5)
	require.NoError(t, err)
}

// requireCapacityInvariant checks the cached vacancies against the booking set
func (e *testEnv) requireCapacityInvariant(t *testing.T, shiftID string) {
	t.Helper()
	shift := e.getShift(t, shiftID)
	occupying, err := e.store.QueryBookings(e.ctx, db.BookingFilter{
		ShiftID: shiftID,
		Statuses: []model.BookingStatus{
			model.StatusConfirmed,
			model.StatusPendingApproval,
			model.StatusCancellationRequested,
		},
	})
	require.NoError(t, err)

	require.GreaterOrEqual(t, shift.AvailableVacancies, 0)
	require.LessOrEqual(t, shift.AvailableVacancies, shift.TotalVacancies)
	require.Equal(t, shift.TotalVacancies-len(occupying), shift.AvailableVacancies)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
