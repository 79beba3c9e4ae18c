package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with every API route registered
func NewRouter(identity *Identity, bookingHandler *BookingHandler) *chi.Mux {
	r := chi.NewRouter()
	RegisterRoutes(r, identity, bookingHandler)
	return r
}

func RegisterRoutes(r *chi.Mux, identity *Identity, bookingHandler *BookingHandler) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(identity.Middleware)

	// Initialize Huma API
	config := huma.DefaultConfig("Volunteer Shifts API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: TokenCookie,
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	huma.Get(api, "/events", bookingHandler.HandleListEvents)
	huma.Get(api, "/events/{eventId}/shifts", bookingHandler.HandleShiftsForDate)

	// Authenticated routes
	huma.Get(api, "/me/bookings", bookingHandler.HandleMyBookings, secured)
	huma.Post(api, "/bookings", bookingHandler.HandleCreateBooking, secured, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})

	huma.Post(api, "/bookings/{bookingId}/cancellation", bookingHandler.handleBookingAction(bookingHandler.svc.RequestCancellation), secured, operationID("request-cancellation"))
	huma.Post(api, "/bookings/{bookingId}/cancellation/approve", bookingHandler.handleBookingAction(bookingHandler.svc.ApproveCancellation), secured, operationID("approve-cancellation"))
	huma.Post(api, "/bookings/{bookingId}/cancellation/reject", bookingHandler.handleBookingAction(bookingHandler.svc.RejectCancellation), secured, operationID("reject-cancellation"))
	huma.Post(api, "/bookings/{bookingId}/approve", bookingHandler.handleBookingAction(bookingHandler.svc.ApproveRequest), secured, operationID("approve-request"))
	huma.Post(api, "/bookings/{bookingId}/reject", bookingHandler.handleBookingAction(bookingHandler.svc.RejectRequest), secured, operationID("reject-request"))
	huma.Post(api, "/bookings/{bookingId}/approve-coordinator", bookingHandler.handleBookingAction(bookingHandler.svc.ApproveCoordinatorRequest), secured, operationID("approve-coordinator-request"))

	huma.Put(api, "/bookings/{bookingId}/attendance", bookingHandler.HandleUpdateAttendance, secured)
	huma.Put(api, "/bookings/{bookingId}/food", bookingHandler.HandleUpdateFood, secured)
	huma.Put(api, "/shifts/{shiftId}/capacity", bookingHandler.HandleUpdateCapacity, secured)
	huma.Put(api, "/shifts/{shiftId}/schedule", bookingHandler.HandleRescheduleShift, secured)
	huma.Delete(api, "/shifts/{shiftId}", bookingHandler.HandleDeleteShift, secured, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusNoContent
	})
	huma.Post(api, "/shifts/{shiftId}/coordinators/{userId}", bookingHandler.handleShiftCoordinator(bookingHandler.svc.AssignCoordinator), secured, operationID("assign-coordinator"))
	huma.Delete(api, "/shifts/{shiftId}/coordinators/{userId}", bookingHandler.handleShiftCoordinator(bookingHandler.svc.RemoveCoordinator), secured, operationID("remove-coordinator"))

	huma.Get(api, "/events/{eventId}/metrics", bookingHandler.HandleDashboard, secured)
	huma.Get(api, "/events/{eventId}/pending-cancellations", bookingHandler.handleEventQueue(bookingHandler.svc.PendingCancellations), secured, operationID("pending-cancellations"))
	huma.Get(api, "/events/{eventId}/pending-requests", bookingHandler.handleEventQueue(bookingHandler.svc.PendingRequests), secured, operationID("pending-requests"))
	huma.Get(api, "/events/{eventId}/roster", bookingHandler.HandleRoster, secured)
}

func secured(o *huma.Operation) {
	o.Security = []map[string][]string{{"bearerAuth": {}}, {"cookieAuth": {}}}
}

func operationID(id string) func(o *huma.Operation) {
	return func(o *huma.Operation) {
		o.OperationID = id
	}
}
