package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

// Seed is a YAML fixture of users and events with their roles and shifts
type Seed struct {
	Users  []SeedUser  `yaml:"users"`
	Events []SeedEvent `yaml:"events"`
}

type SeedUser struct {
	ID               string           `yaml:"id" validate:"required"`
	DNI              string           `yaml:"dni" validate:"required"`
	FullName         string           `yaml:"fullName" validate:"required"`
	Email            string           `yaml:"email" validate:"omitempty,email"`
	Phone            string           `yaml:"phone,omitempty"`
	TShirtSize       string           `yaml:"tshirtSize,omitempty"`
	IsMember         bool             `yaml:"isMember"`
	AttendedPrevious bool             `yaml:"attendedPrevious"`
	IsOver18         bool             `yaml:"isOver18"`
	HowTheyHeard     string           `yaml:"howTheyHeard,omitempty"`
	Role             model.UserRole   `yaml:"role" validate:"omitempty,oneof=volunteer coordinator admin superadmin"`
	Status           model.UserStatus `yaml:"status" validate:"omitempty,oneof=active suspended deleted"`
}

type SeedEvent struct {
	EventInput `yaml:",inline"`
	Roles      []SeedRole `yaml:"roles"`
}

type SeedRole struct {
	Name             string                `yaml:"name"`
	Description      string                `yaml:"description,omitempty"`
	DetailedTasks    string                `yaml:"detailedTasks,omitempty"`
	YouTubeURL       string                `yaml:"youtubeUrl,omitempty"`
	ExperienceLevel  model.ExperienceLevel `yaml:"experienceLevel,omitempty"`
	RequiresApproval bool                  `yaml:"requiresApproval"`
	Hidden           bool                  `yaml:"hidden"`
	Shifts           []SeedShift           `yaml:"shifts"`
}

type SeedShift struct {
	Date           string   `yaml:"date"`
	TimeSlot       string   `yaml:"timeSlot"`
	TotalVacancies int      `yaml:"totalVacancies"`
	CoordinatorIDs []string `yaml:"coordinatorIds,omitempty"`
}

// SeedResult counts what ApplySeed wrote
type SeedResult struct {
	Users         int
	Events        int
	Roles         int
	Shifts        int
	SkippedShifts int
}

// LoadSeed reads a seed fixture from a YAML file
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i := range seed.Users {
		if err := validate.Struct(&seed.Users[i]); err != nil {
			return nil, fmt.Errorf("invalid seed user %d: %w", i, err)
		}
	}

	return &seed, nil
}

// ApplySeed writes the fixture. Users are upserted by id; events that
// already exist by slug are reused, as are their roles by name, and existing
// shifts are skipped, so applying a seed twice creates nothing new.
func ApplySeed(ctx context.Context, store db.Store, logger *zap.Logger, seed *Seed, maxActive int) (*SeedResult, error) {
	result := &SeedResult{}

	for _, u := range seed.Users {
		user := seedUser(u)
		if err := store.SaveUser(ctx, &user); err != nil {
			return nil, fmt.Errorf("failed to save user %s: %w", u.ID, err)
		}
		result.Users++
	}
	logger.Debug("Seeded users", zap.Int("count", result.Users))

	for _, se := range seed.Events {
		event, err := store.GetEventBySlug(ctx, se.Slug)
		if errors.Is(err, db.ErrNotFound) {
			event, err = DefineEvent(ctx, store, logger, se.EventInput, maxActive)
			if err != nil {
				return nil, err
			}
			result.Events++
		} else if err != nil {
			return nil, fmt.Errorf("failed to get event %s: %w", se.Slug, err)
		}

		existingRoles, err := store.ListRoles(ctx, event.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list roles: %w", err)
		}
		rolesByName := make(map[string]model.Role, len(existingRoles))
		for _, r := range existingRoles {
			rolesByName[r.Name] = r
		}

		for _, sr := range se.Roles {
			role, ok := rolesByName[sr.Name]
			if !ok {
				created, err := DefineRole(ctx, store, logger, RoleInput{
					EventID:          event.ID,
					Name:             sr.Name,
					Description:      sr.Description,
					DetailedTasks:    sr.DetailedTasks,
					YouTubeURL:       sr.YouTubeURL,
					ExperienceLevel:  sr.ExperienceLevel,
					RequiresApproval: sr.RequiresApproval,
					Hidden:           sr.Hidden,
				})
				if err != nil {
					return nil, err
				}
				role = *created
				rolesByName[role.Name] = role
				result.Roles++
			}

			for _, ss := range sr.Shifts {
				_, err := DefineShift(ctx, store, logger, ShiftInput{
					EventID:        event.ID,
					RoleID:         role.ID,
					Date:           ss.Date,
					TimeSlot:       ss.TimeSlot,
					TotalVacancies: ss.TotalVacancies,
					CoordinatorIDs: ss.CoordinatorIDs,
				})
				if errors.Is(err, booking.ErrDuplicateShift) {
					result.SkippedShifts++
					continue
				}
				if err != nil {
					return nil, err
				}
				result.Shifts++
			}
		}
	}

	logger.Info("Seed applied",
		zap.Int("users", result.Users),
		zap.Int("events", result.Events),
		zap.Int("roles", result.Roles),
		zap.Int("shifts", result.Shifts),
		zap.Int("skipped_shifts", result.SkippedShifts))

	return result, nil
}

func seedUser(u SeedUser) model.User {
	user := model.User{
		ID:               u.ID,
		DNI:              u.DNI,
		FullName:         u.FullName,
		Email:            u.Email,
		Phone:            u.Phone,
		TShirtSize:       u.TShirtSize,
		IsMember:         u.IsMember,
		AttendedPrevious: u.AttendedPrevious,
		IsOver18:         u.IsOver18,
		HowTheyHeard:     u.HowTheyHeard,
		Role:             u.Role,
		Status:           u.Status,
		CreatedAt:        time.Now().UTC(),
	}
	if user.Role == "" {
		user.Role = model.UserVolunteer
	}
	if user.Status == "" {
		user.Status = model.UserActive
	}
	return user
}
