package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/metrics"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/core/services"
)

// BookingHandler exposes the booking service over HTTP
type BookingHandler struct {
	svc    *services.BookingService
	logger *zap.Logger
}

func NewBookingHandler(svc *services.BookingService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

// requireActor returns the authenticated caller or a 401
func requireActor(ctx context.Context) (model.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return model.Actor{}, huma.Error401Unauthorized("Unauthorized")
	}
	return actor, nil
}

type EventPath struct {
	EventID string `path:"eventId" doc:"Event id"`
}

type BookingPath struct {
	BookingID string `path:"bookingId" doc:"Booking id"`
}

type BookingResponse struct {
	Body *model.Booking
}

type EventSummariesResponse struct {
	Body []metrics.Summary
}

func (h *BookingHandler) HandleListEvents(ctx context.Context, input *struct{}) (*EventSummariesResponse, error) {
	summaries, err := h.svc.EventSummaries(ctx)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &EventSummariesResponse{Body: summaries}, nil
}

type ShiftsForDateRequest struct {
	EventPath
	Date string `query:"date" required:"true" doc:"Calendar day (YYYY-MM-DD)"`
}

type ShiftsResponse struct {
	Body []services.ShiftListing
}

func (h *BookingHandler) HandleShiftsForDate(ctx context.Context, input *ShiftsForDateRequest) (*ShiftsResponse, error) {
	// Anonymous callers see the public shift list
	actor, _ := ActorFromContext(ctx)
	shifts, err := h.svc.ShiftsForDate(ctx, actor, input.EventID, input.Date)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &ShiftsResponse{Body: shifts}, nil
}

type MyBookingsRequest struct {
	EventID string `query:"eventId" required:"false" doc:"Only bookings of this event; all events when empty"`
}

type BookingDetailsResponse struct {
	Body []services.BookingDetail
}

func (h *BookingHandler) HandleMyBookings(ctx context.Context, input *MyBookingsRequest) (*BookingDetailsResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	details, err := h.svc.MyBookings(ctx, actor.UserID, input.EventID)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &BookingDetailsResponse{Body: details}, nil
}

type CreateBookingRequest struct {
	Body struct {
		ShiftID string `json:"shiftId" doc:"Shift to book"`
		UserID  string `json:"userId,omitempty" required:"false" doc:"Volunteer to book on behalf of (staff only)"`
	}
}

func (h *BookingHandler) HandleCreateBooking(ctx context.Context, input *CreateBookingRequest) (*BookingResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	var b *model.Booking
	if input.Body.UserID == "" || input.Body.UserID == actor.UserID {
		b, err = h.svc.CreateBooking(ctx, actor.UserID, input.Body.ShiftID)
	} else {
		b, err = h.svc.CreateBookingFor(ctx, actor, input.Body.UserID, input.Body.ShiftID)
	}
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &BookingResponse{Body: b}, nil
}

// bookingAction is any service operation acting on one booking
type bookingAction func(ctx context.Context, actor model.Actor, bookingID string) (*model.Booking, error)

// handleBookingAction adapts a booking action to a huma handler
func (h *BookingHandler) handleBookingAction(action bookingAction) func(ctx context.Context, input *BookingPath) (*BookingResponse, error) {
	return func(ctx context.Context, input *BookingPath) (*BookingResponse, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		b, err := action(ctx, actor, input.BookingID)
		if err != nil {
			return nil, toHTTPError(h.logger, err)
		}
		return &BookingResponse{Body: b}, nil
	}
}

type AttendanceRequest struct {
	BookingPath
	Body struct {
		Mark model.Attendance `json:"mark" enum:"pending,attended,absent" doc:"Attendance mark"`
	}
}

func (h *BookingHandler) HandleUpdateAttendance(ctx context.Context, input *AttendanceRequest) (*BookingResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	b, err := h.svc.UpdateAttendance(ctx, actor, input.BookingID, input.Body.Mark)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &BookingResponse{Body: b}, nil
}

type FoodRequest struct {
	BookingPath
	Body struct {
		Delivered bool `json:"delivered" doc:"Whether the meal was handed out"`
	}
}

func (h *BookingHandler) HandleUpdateFood(ctx context.Context, input *FoodRequest) (*BookingResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	b, err := h.svc.UpdateFoodStatus(ctx, actor, input.BookingID, input.Body.Delivered)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &BookingResponse{Body: b}, nil
}

type CapacityRequest struct {
	ShiftPath
	Body struct {
		TotalVacancies int `json:"totalVacancies" minimum:"0" doc:"New seat count"`
	}
}

type ShiftResponse struct {
	Body *model.Shift
}

func (h *BookingHandler) HandleUpdateCapacity(ctx context.Context, input *CapacityRequest) (*ShiftResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	shift, err := h.svc.UpdateShiftCapacity(ctx, actor, input.ShiftID, input.Body.TotalVacancies)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &ShiftResponse{Body: shift}, nil
}

type ShiftPath struct {
	ShiftID string `path:"shiftId" doc:"Shift id"`
}

type ShiftCoordinatorPath struct {
	ShiftPath
	UserID string `path:"userId" doc:"Coordinator user id"`
}

// shiftCoordinatorAction adds or removes a shift coordinator
type shiftCoordinatorAction func(ctx context.Context, actor model.Actor, shiftID, userID string) (*model.Shift, error)

func (h *BookingHandler) handleShiftCoordinator(action shiftCoordinatorAction) func(ctx context.Context, input *ShiftCoordinatorPath) (*ShiftResponse, error) {
	return func(ctx context.Context, input *ShiftCoordinatorPath) (*ShiftResponse, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		shift, err := action(ctx, actor, input.ShiftID, input.UserID)
		if err != nil {
			return nil, toHTTPError(h.logger, err)
		}
		return &ShiftResponse{Body: shift}, nil
	}
}

func (h *BookingHandler) HandleDeleteShift(ctx context.Context, input *ShiftPath) (*struct{}, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.svc.DeleteShift(ctx, actor, input.ShiftID); err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return nil, nil
}

type RescheduleRequest struct {
	ShiftPath
	Body struct {
		Date     string `json:"date" format:"date" doc:"New calendar day (YYYY-MM-DD)"`
		TimeSlot string `json:"timeSlot" minLength:"1" doc:"New time slot, e.g. 09:00-13:00"`
	}
}

func (h *BookingHandler) HandleRescheduleShift(ctx context.Context, input *RescheduleRequest) (*ShiftResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	shift, err := h.svc.RescheduleShift(ctx, actor, input.ShiftID, input.Body.Date, input.Body.TimeSlot)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &ShiftResponse{Body: shift}, nil
}

type DashboardResponse struct {
	Body *metrics.Dashboard
}

func (h *BookingHandler) HandleDashboard(ctx context.Context, input *EventPath) (*DashboardResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	dashboard, err := h.svc.Dashboard(ctx, actor, input.EventID)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &DashboardResponse{Body: dashboard}, nil
}

// eventQueue is a staff queue listing bookings of one event
type eventQueue func(ctx context.Context, actor model.Actor, eventID string) ([]services.BookingDetail, error)

func (h *BookingHandler) handleEventQueue(queue eventQueue) func(ctx context.Context, input *EventPath) (*BookingDetailsResponse, error) {
	return func(ctx context.Context, input *EventPath) (*BookingDetailsResponse, error) {
		actor, err := requireActor(ctx)
		if err != nil {
			return nil, err
		}
		details, err := queue(ctx, actor, input.EventID)
		if err != nil {
			return nil, toHTTPError(h.logger, err)
		}
		return &BookingDetailsResponse{Body: details}, nil
	}
}

type RosterRequest struct {
	EventPath
	Date     string `query:"date" required:"true" doc:"Calendar day (YYYY-MM-DD)"`
	TimeSlot string `query:"timeSlot" required:"true" doc:"Time slot, e.g. 09:00-13:00"`
}

type RosterResponse struct {
	Body []services.RosterEntry
}

func (h *BookingHandler) HandleRoster(ctx context.Context, input *RosterRequest) (*RosterResponse, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	roster, err := h.svc.Roster(ctx, actor, input.EventID, input.Date, input.TimeSlot)
	if err != nil {
		return nil, toHTTPError(h.logger, err)
	}
	return &RosterResponse{Body: roster}, nil
}
