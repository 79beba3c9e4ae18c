package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

const eventsLockKey = "events"

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
}

// EventInput describes a new event
type EventInput struct {
	Slug        string           `yaml:"slug" json:"slug" validate:"required,slug"`
	Name        string           `yaml:"name" json:"name" validate:"required"`
	Location    string           `yaml:"location" json:"location"`
	Country     string           `yaml:"country" json:"country"`
	StartDate   string           `yaml:"startDate" json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string           `yaml:"endDate" json:"endDate" validate:"required,datetime=2006-01-02"`
	Description string           `yaml:"description,omitempty" json:"description,omitempty"`
	State       model.EventState `yaml:"state,omitempty" json:"state,omitempty" validate:"omitempty,oneof=active inactive archived"`
}

// RoleInput describes a new role of an event
type RoleInput struct {
	EventID          string                `yaml:"eventId" json:"eventId" validate:"required"`
	Name             string                `yaml:"name" json:"name" validate:"required"`
	Description      string                `yaml:"description,omitempty" json:"description,omitempty"`
	DetailedTasks    string                `yaml:"detailedTasks,omitempty" json:"detailedTasks,omitempty"`
	YouTubeURL       string                `yaml:"youtubeUrl,omitempty" json:"youtubeUrl,omitempty" validate:"omitempty,url"`
	ExperienceLevel  model.ExperienceLevel `yaml:"experienceLevel,omitempty" json:"experienceLevel,omitempty" validate:"omitempty,oneof=new intermediate advanced"`
	RequiresApproval bool                  `yaml:"requiresApproval" json:"requiresApproval"`
	Hidden           bool                  `yaml:"hidden" json:"hidden"`
}

// ShiftInput describes a new shift of an event role
type ShiftInput struct {
	EventID        string   `yaml:"eventId" json:"eventId" validate:"required"`
	RoleID         string   `yaml:"roleId" json:"roleId" validate:"required"`
	Date           string   `yaml:"date" json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot       string   `yaml:"timeSlot" json:"timeSlot" validate:"required"`
	TotalVacancies int      `yaml:"totalVacancies" json:"totalVacancies" validate:"min=0"`
	CoordinatorIDs []string `yaml:"coordinatorIds,omitempty" json:"coordinatorIds,omitempty"`
}

// DefineEvent creates an event. At most maxActive events may be active at
// once; maxActive <= 0 disables the limit.
func DefineEvent(ctx context.Context, store db.Store, logger *zap.Logger, input EventInput, maxActive int) (*model.Event, error) {
	if input.State == "" {
		input.State = model.EventActive
	}

	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("invalid event definition: %w", err)
	}
	if input.EndDate < input.StartDate {
		return nil, fmt.Errorf("event %s ends %s before it starts %s: %w", input.Slug, input.EndDate, input.StartDate, booking.ErrEventDates)
	}

	logger.Debug("Defining event",
		zap.String("slug", input.Slug),
		zap.String("start", input.StartDate),
		zap.String("end", input.EndDate))

	event := model.Event{
		ID:          uuid.New().String(),
		Slug:        input.Slug,
		Name:        input.Name,
		Location:    input.Location,
		Country:     input.Country,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		Description: input.Description,
		State:       input.State,
		CreatedAt:   time.Now().UTC(),
	}

	err := store.InTx(ctx, func(tx db.Tx) error {
		// Serialize event definitions so the slug and active-count checks hold
		if err := tx.Lock(ctx, eventsLockKey); err != nil {
			return fmt.Errorf("failed to lock events: %w", err)
		}

		_, err := tx.GetEventBySlug(ctx, event.Slug)
		if err == nil {
			return fmt.Errorf("slug %s: %w", event.Slug, booking.ErrDuplicateSlug)
		}
		if !errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("failed to check slug: %w", err)
		}

		if event.State == model.EventActive {
			if err := checkActiveLimit(ctx, tx, event.ID, maxActive); err != nil {
				return err
			}
		}

		if err := tx.SaveEvent(ctx, &event); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Event defined",
		zap.String("event_id", event.ID),
		zap.String("slug", event.Slug),
		zap.String("state", string(event.State)))

	return &event, nil
}

// UpdateEventState moves an event between active, inactive and archived
func UpdateEventState(ctx context.Context, store db.Store, logger *zap.Logger, eventID string, state model.EventState, maxActive int) (*model.Event, error) {
	if !state.IsValid() {
		return nil, fmt.Errorf("invalid event state %q", state)
	}

	logger.Debug("Updating event state",
		zap.String("event_id", eventID),
		zap.String("state", string(state)))

	var result model.Event
	err := store.InTx(ctx, func(tx db.Tx) error {
		if err := tx.Lock(ctx, eventsLockKey); err != nil {
			return fmt.Errorf("failed to lock events: %w", err)
		}

		event, err := getEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}

		if event.State != model.EventActive && state == model.EventActive {
			if err := checkActiveLimit(ctx, tx, event.ID, maxActive); err != nil {
				return err
			}
		}

		event.State = state
		if err := tx.SaveEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to save event: %w", err)
		}

		result = *event
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Event state updated",
		zap.String("event_id", result.ID),
		zap.String("state", string(result.State)))

	return &result, nil
}

// DefineRole creates a role within an existing, non-archived event
func DefineRole(ctx context.Context, store db.Store, logger *zap.Logger, input RoleInput) (*model.Role, error) {
	if input.ExperienceLevel == "" {
		input.ExperienceLevel = model.ExperienceNew
	}

	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("invalid role definition: %w", err)
	}

	logger.Debug("Defining role",
		zap.String("event_id", input.EventID),
		zap.String("name", input.Name))

	role := model.Role{
		ID:               uuid.New().String(),
		EventID:          input.EventID,
		Name:             input.Name,
		Description:      input.Description,
		DetailedTasks:    input.DetailedTasks,
		YouTubeURL:       input.YouTubeURL,
		ExperienceLevel:  input.ExperienceLevel,
		RequiresApproval: input.RequiresApproval,
		Hidden:           input.Hidden,
		CreatedAt:        time.Now().UTC(),
	}

	err := store.InTx(ctx, func(tx db.Tx) error {
		if _, err := editableEvent(ctx, tx, input.EventID); err != nil {
			return err
		}

		if err := tx.SaveRole(ctx, &role); err != nil {
			return fmt.Errorf("failed to save role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Role defined",
		zap.String("role_id", role.ID),
		zap.String("event_id", role.EventID),
		zap.String("name", role.Name),
		zap.Bool("requires_approval", role.RequiresApproval))

	return &role, nil
}

// DefineShift creates a shift for a role of the event. The shift starts
// with all its vacancies available.
func DefineShift(ctx context.Context, store db.Store, logger *zap.Logger, input ShiftInput) (*model.Shift, error) {
	if err := validate.Struct(&input); err != nil {
		return nil, fmt.Errorf("invalid shift definition: %w", err)
	}

	logger.Debug("Defining shift",
		zap.String("event_id", input.EventID),
		zap.String("role_id", input.RoleID),
		zap.String("date", input.Date),
		zap.String("time_slot", input.TimeSlot))

	var result model.Shift
	err := store.InTx(ctx, func(tx db.Tx) error {
		if err := tx.Lock(ctx, shiftsLockKey(input.EventID)); err != nil {
			return fmt.Errorf("failed to lock event shifts: %w", err)
		}

		event, role, err := shiftOwners(ctx, tx, input.EventID, input.RoleID)
		if err != nil {
			return err
		}

		shift, err := insertShift(ctx, tx, *event, *role, input)
		if err != nil {
			return err
		}

		result = *shift
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift defined",
		zap.String("shift_id", result.ID),
		zap.String("date", result.Date),
		zap.String("time_slot", result.TimeSlot),
		zap.Int("total_vacancies", result.TotalVacancies))

	return &result, nil
}

// shiftOwners loads the event and role a new shift belongs to
func shiftOwners(ctx context.Context, tx db.Tx, eventID, roleID string) (*model.Event, *model.Role, error) {
	event, err := editableEvent(ctx, tx, eventID)
	if err != nil {
		return nil, nil, err
	}

	role, err := getRole(ctx, tx, roleID)
	if err != nil {
		return nil, nil, err
	}
	if role.EventID != event.ID {
		return nil, nil, fmt.Errorf("role %s does not belong to event %s: %w", role.ID, event.ID, booking.ErrRoleNotFound)
	}

	return event, role, nil
}

// insertShift checks the date range and uniqueness then saves the shift.
// The caller holds the event's shift lock.
func insertShift(ctx context.Context, tx db.Tx, event model.Event, role model.Role, input ShiftInput) (*model.Shift, error) {
	if input.Date < event.StartDate || input.Date > event.EndDate {
		return nil, fmt.Errorf("date %s not in %s..%s: %w", input.Date, event.StartDate, event.EndDate, booking.ErrShiftOutsideEvent)
	}

	existing, err := tx.ListShifts(ctx, db.ShiftFilter{
		EventID:  event.ID,
		Date:     input.Date,
		TimeSlot: input.TimeSlot,
		RoleID:   role.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%s %s %s: %w", input.Date, input.TimeSlot, role.Name, booking.ErrDuplicateShift)
	}

	shift := model.Shift{
		ID:                 uuid.New().String(),
		EventID:            event.ID,
		Date:               input.Date,
		TimeSlot:           input.TimeSlot,
		RoleID:             role.ID,
		TotalVacancies:     input.TotalVacancies,
		AvailableVacancies: input.TotalVacancies,
		CoordinatorIDs:     input.CoordinatorIDs,
	}
	if shift.CoordinatorIDs == nil {
		shift.CoordinatorIDs = []string{}
	}

	if err := tx.SaveShift(ctx, &shift); err != nil {
		return nil, fmt.Errorf("failed to save shift: %w", err)
	}
	return &shift, nil
}

// checkActiveLimit fails when activating another event would exceed maxActive
func checkActiveLimit(ctx context.Context, tx db.Tx, eventID string, maxActive int) error {
	if maxActive <= 0 {
		return nil
	}

	events, err := tx.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	active := 0
	for _, e := range events {
		if e.State == model.EventActive && e.ID != eventID {
			active++
		}
	}
	if active >= maxActive {
		return fmt.Errorf("%d active events: %w", active, booking.ErrTooManyActiveEvents)
	}
	return nil
}

func shiftsLockKey(eventID string) string {
	return "shifts:" + eventID
}
