package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

const testSecret = "test-secret-0123456789"

type apiEnv struct {
	router   *chi.Mux
	identity *Identity
	store    *db.MemoryStore
	event    *model.Event
	shift    *model.Shift
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := db.NewMemoryStore()

	event, err := services.DefineEvent(ctx, store, logger, services.EventInput{
		Slug:      "river-cleanup",
		Name:      "River Cleanup",
		StartDate: "2026-06-06",
		EndDate:   "2026-06-07",
	}, 0)
	require.NoError(t, err)

	role, err := services.DefineRole(ctx, store, logger, services.RoleInput{EventID: event.ID, Name: "Litter picker"})
	require.NoError(t, err)

	shift, err := services.DefineShift(ctx, store, logger, services.ShiftInput{
		EventID:        event.ID,
		RoleID:         role.ID,
		Date:           "2026-06-06",
		TimeSlot:       "10:00-13:00",
		TotalVacancies: 1,
	})
	require.NoError(t, err)

	identity := NewIdentity(testSecret, time.Hour, logger)
	svc := services.NewBookingService(store, nil, logger)

	return &apiEnv{
		router:   NewRouter(identity, NewBookingHandler(svc, logger)),
		identity: identity,
		store:    store,
		event:    event,
		shift:    shift,
	}
}

func (e *apiEnv) token(t *testing.T, actor model.Actor) string {
	t.Helper()
	token, err := e.identity.IssueToken(actor)
	require.NoError(t, err)
	return token
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func TestIdentity_IssueAndParse(t *testing.T) {
	identity := NewIdentity(testSecret, time.Hour, zap.NewNop())
	actor := model.Actor{UserID: "u-1", Role: model.UserAdmin, ManagedEventIDs: []string{"e-1"}}

	token, err := identity.IssueToken(actor)
	require.NoError(t, err)

	got, err := identity.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestIdentity_ParseErrors(t *testing.T) {
	identity := NewIdentity(testSecret, time.Hour, zap.NewNop())

	otherKey, err := NewIdentity("another-secret-0123456789", time.Hour, zap.NewNop()).
		IssueToken(model.Actor{UserID: "u-1", Role: model.UserVolunteer})
	require.NoError(t, err)

	expired := NewIdentity(testSecret, time.Hour, zap.NewNop())
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.IssueToken(model.Actor{UserID: "u-1", Role: model.UserVolunteer})
	require.NoError(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "pirate",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject, err := identity.IssueToken(model.Actor{Role: model.UserVolunteer})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", otherKey},
		{"expired", expiredToken},
		{"unknown role", badRole},
		{"no subject", noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := identity.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIdentityMiddleware(t *testing.T) {
	identity := NewIdentity(testSecret, time.Hour, zap.NewNop())
	token, err := identity.IssueToken(model.Actor{UserID: "u-1", Role: model.UserVolunteer})
	require.NoError(t, err)

	var seen *model.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = nil
		if actor, ok := ActorFromContext(r.Context()); ok {
			seen = &actor
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := identity.Middleware(next)

	t.Run("anonymous passes through", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Nil(t, seen)
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "u-1", seen.UserID)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, seen)
		assert.Equal(t, model.UserVolunteer, seen.Role)
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("shift s-1: %w", booking.ErrShiftNotFound), http.StatusNotFound},
		{booking.ErrBookingNotFound, http.StatusNotFound},
		{booking.ErrEventNotFound, http.StatusNotFound},
		{booking.ErrUnauthorized, http.StatusForbidden},
		{booking.ErrCapacityExceeded, http.StatusConflict},
		{booking.ErrDuplicateBooking, http.StatusConflict},
		{booking.ErrTimeSlotConflict, http.StatusConflict},
		{booking.ErrCapacityBelowOccupancy, http.StatusConflict},
		{&booking.TransitionError{BookingID: "b-1", From: model.StatusCancelled, Action: booking.ActionApproveRequest}, http.StatusConflict},
		{booking.ErrInvalidAttendance, http.StatusUnprocessableEntity},
		{fmt.Errorf("event e-1: %w", booking.ErrEventArchived), http.StatusConflict},
		{booking.ErrDuplicateShift, http.StatusConflict},
		{booking.ErrShiftHasBookings, http.StatusConflict},
		{booking.ErrShiftOutsideEvent, http.StatusUnprocessableEntity},
		{booking.ErrUserNotFound, http.StatusNotFound},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := toHTTPError(zap.NewNop(), tt.err)
			var statusErr huma.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.GetStatus())
		})
	}
}

func TestRoutes_Health(t *testing.T) {
	env := newAPIEnv(t)
	rr := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestRoutes_PublicListings(t *testing.T) {
	env := newAPIEnv(t)

	rr := env.do(t, http.MethodGet, "/events", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	summaries := decode[[]struct {
		Event  model.Event `json:"event"`
		Shifts int         `json:"shifts"`
	}](t, rr)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Shifts)

	rr = env.do(t, http.MethodGet, "/events/"+env.event.ID+"/shifts?date=2026-06-06", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	listings := decode[[]services.ShiftListing](t, rr)
	require.Len(t, listings, 1)
	assert.Equal(t, "Litter picker", listings[0].Role.Name)

	rr = env.do(t, http.MethodGet, "/events/missing/shifts?date=2026-06-06", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutes_RequireIdentity(t *testing.T) {
	env := newAPIEnv(t)

	rr := env.do(t, http.MethodPost, "/bookings", "", map[string]string{"shiftId": env.shift.ID})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/me/bookings?eventId="+env.event.ID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRoutes_BookingLifecycle(t *testing.T) {
	env := newAPIEnv(t)
	volunteer := env.token(t, model.Actor{UserID: "vol-1", Role: model.UserVolunteer})
	other := env.token(t, model.Actor{UserID: "vol-2", Role: model.UserVolunteer})
	admin := env.token(t, model.Actor{UserID: "admin-1", Role: model.UserAdmin, ManagedEventIDs: []string{env.event.ID}})

	rr := env.do(t, http.MethodPost, "/bookings", volunteer, map[string]string{"shiftId": env.shift.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Booking](t, rr)
	assert.Equal(t, model.StatusConfirmed, created.Status)

	rr = env.do(t, http.MethodPost, "/bookings", volunteer, map[string]string{"shiftId": env.shift.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "You are already registered for this shift.", decode[problem](t, rr).Detail)

	rr = env.do(t, http.MethodPost, "/bookings", other, map[string]string{"shiftId": env.shift.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "There are no vacancies left on this shift.", decode[problem](t, rr).Detail)

	rr = env.do(t, http.MethodGet, "/me/bookings?eventId="+env.event.ID, volunteer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]services.BookingDetail](t, rr), 1)

	cancelPath := "/bookings/" + created.ID + "/cancellation"
	rr = env.do(t, http.MethodPost, cancelPath, other, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, cancelPath, volunteer, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.StatusCancellationRequested, decode[model.Booking](t, rr).Status)

	rr = env.do(t, http.MethodGet, "/events/"+env.event.ID+"/pending-cancellations", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]services.BookingDetail](t, rr), 1)

	rr = env.do(t, http.MethodPost, cancelPath+"/approve", volunteer, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, cancelPath+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.StatusCancelled, decode[model.Booking](t, rr).Status)

	// A cancelled booking cannot be approved again
	rr = env.do(t, http.MethodPost, cancelPath+"/approve", admin, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "This action cannot be performed right now.", decode[problem](t, rr).Detail)

	shift, err := env.store.GetShift(context.Background(), env.shift.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, shift.AvailableVacancies)

	rr = env.do(t, http.MethodPost, "/bookings/missing/approve", admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRoutes_StaffOperations(t *testing.T) {
	env := newAPIEnv(t)
	volunteer := env.token(t, model.Actor{UserID: "vol-1", Role: model.UserVolunteer})
	admin := env.token(t, model.Actor{UserID: "admin-1", Role: model.UserAdmin, ManagedEventIDs: []string{env.event.ID}})

	rr := env.do(t, http.MethodPost, "/bookings", admin, map[string]string{"shiftId": env.shift.ID, "userId": "vol-1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[model.Booking](t, rr)
	assert.Equal(t, "vol-1", created.UserID)

	rr = env.do(t, http.MethodPut, "/bookings/"+created.ID+"/attendance", volunteer, map[string]string{"mark": "attended"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPut, "/bookings/"+created.ID+"/attendance", admin, map[string]string{"mark": "attended"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.AttendanceAttended, decode[model.Booking](t, rr).Attendance)

	rr = env.do(t, http.MethodPut, "/bookings/"+created.ID+"/attendance", admin, map[string]string{"mark": "late"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPut, "/bookings/"+created.ID+"/food", admin, map[string]bool{"delivered": true})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.True(t, decode[model.Booking](t, rr).FoodDelivered)

	rr = env.do(t, http.MethodPut, "/shifts/"+env.shift.ID+"/capacity", admin, map[string]int{"totalVacancies": 0})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = env.do(t, http.MethodPut, "/shifts/"+env.shift.ID+"/capacity", admin, map[string]int{"totalVacancies": 4})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	shift := decode[model.Shift](t, rr)
	assert.Equal(t, 4, shift.TotalVacancies)
	assert.Equal(t, 3, shift.AvailableVacancies)

	rr = env.do(t, http.MethodGet, "/events/"+env.event.ID+"/metrics", volunteer, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodGet, "/events/"+env.event.ID+"/metrics", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	dashboard := decode[struct {
		OccupiedVacancies    int `json:"occupiedVacancies"`
		AttendancePercentage int `json:"attendancePercentage"`
	}](t, rr)
	assert.Equal(t, 1, dashboard.OccupiedVacancies)
	assert.Equal(t, 100, dashboard.AttendancePercentage)

	rr = env.do(t, http.MethodGet, "/events/"+env.event.ID+"/roster?date=2026-06-06&timeSlot=10:00-13:00", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	roster := decode[[]services.RosterEntry](t, rr)
	require.Len(t, roster, 1)
	assert.Equal(t, "Litter picker", roster[0].RoleName)

	rr = env.do(t, http.MethodGet, "/events/"+env.event.ID+"/pending-requests", admin, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]services.BookingDetail](t, rr))
}

func TestRoutes_MyBookingsWithoutEventFilter(t *testing.T) {
	env := newAPIEnv(t)
	volunteer := env.token(t, model.Actor{UserID: "vol-1", Role: model.UserVolunteer})

	rr := env.do(t, http.MethodPost, "/bookings", volunteer, map[string]string{"shiftId": env.shift.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/me/bookings", volunteer, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Len(t, decode[[]services.BookingDetail](t, rr), 1)
}

func TestRoutes_ArchivedEventConflicts(t *testing.T) {
	env := newAPIEnv(t)
	volunteer := env.token(t, model.Actor{UserID: "vol-1", Role: model.UserVolunteer})

	_, err := services.UpdateEventState(context.Background(), env.store, zap.NewNop(), env.event.ID, model.EventArchived, 0)
	require.NoError(t, err)

	rr := env.do(t, http.MethodPost, "/bookings", volunteer, map[string]string{"shiftId": env.shift.ID})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "This event is archived and can no longer be changed.", decode[problem](t, rr).Detail)
}

func TestRoutes_ShiftManagement(t *testing.T) {
	env := newAPIEnv(t)
	ctx := context.Background()
	volunteer := env.token(t, model.Actor{UserID: "vol-1", Role: model.UserVolunteer})
	admin := env.token(t, model.Actor{UserID: "admin-1", Role: model.UserAdmin, ManagedEventIDs: []string{env.event.ID}})
	require.NoError(t, env.store.SaveUser(ctx, &model.User{ID: "vol-2", FullName: "Dani", Role: model.UserVolunteer, Status: model.UserActive}))

	coordinatorPath := "/shifts/" + env.shift.ID + "/coordinators/vol-2"
	rr := env.do(t, http.MethodPost, coordinatorPath, volunteer, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, coordinatorPath, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"vol-2"}, decode[model.Shift](t, rr).CoordinatorIDs)

	rr = env.do(t, http.MethodPost, "/shifts/"+env.shift.ID+"/coordinators/nobody", admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodDelete, coordinatorPath, admin, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode[model.Shift](t, rr).CoordinatorIDs)

	schedulePath := "/shifts/" + env.shift.ID + "/schedule"
	rr = env.do(t, http.MethodPut, schedulePath, admin, map[string]string{"date": "2026-07-01", "timeSlot": "10:00-13:00"})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = env.do(t, http.MethodPut, schedulePath, admin, map[string]string{"date": "2026-06-07", "timeSlot": "15:00-18:00"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	moved := decode[model.Shift](t, rr)
	assert.Equal(t, "2026-06-07", moved.Date)
	assert.Equal(t, "15:00-18:00", moved.TimeSlot)

	rr = env.do(t, http.MethodPost, "/bookings", volunteer, map[string]string{"shiftId": env.shift.ID})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodDelete, "/shifts/"+env.shift.ID, admin, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "This shift still has volunteers booked. Cancel their bookings first.", decode[problem](t, rr).Detail)

	bookings, err := env.store.QueryBookings(ctx, db.BookingFilter{ShiftID: env.shift.ID})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	bookings[0].Status = model.StatusCancelled
	require.NoError(t, env.store.SaveBooking(ctx, &bookings[0]))

	rr = env.do(t, http.MethodDelete, "/shifts/"+env.shift.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodDelete, "/shifts/"+env.shift.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
