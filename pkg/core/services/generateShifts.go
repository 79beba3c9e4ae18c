package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-shifts/internal/config"
	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

// GenerateResult reports the shifts created from a pattern
type GenerateResult struct {
	Created []model.Shift
	Skipped int
}

// GenerateShifts creates one shift per (date, time slot) the pattern's rrule
// yields between the event's start and end dates. Shifts that already exist
// for the role are skipped.
func GenerateShifts(ctx context.Context, store db.Store, logger *zap.Logger, eventID, roleID string, pattern config.ShiftPattern) (*GenerateResult, error) {
	logger.Debug("Generating shifts",
		zap.String("event_id", eventID),
		zap.String("role_id", roleID),
		zap.String("pattern", pattern.Name))

	rule, err := rrule.StrToRRule(pattern.RRule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rrule for pattern %s: %w", pattern.Name, err)
	}

	result := &GenerateResult{}
	// Hold the event's shift lock so concurrent generators skip each other's shifts
	err = store.InTx(ctx, func(tx db.Tx) error {
		if err := tx.Lock(ctx, shiftsLockKey(eventID)); err != nil {
			return fmt.Errorf("failed to lock event shifts: %w", err)
		}

		event, role, err := shiftOwners(ctx, tx, eventID, roleID)
		if err != nil {
			return err
		}

		dates, err := patternDates(rule, *event)
		if err != nil {
			return err
		}

		logger.Debug("Expanded pattern dates",
			zap.Int("dates", len(dates)),
			zap.Int("time_slots", len(pattern.TimeSlots)))

		// Create one shift per date and time slot, skipping existing ones
		for _, date := range dates {
			for _, slot := range pattern.TimeSlots {
				shift, err := insertShift(ctx, tx, *event, *role, ShiftInput{
					EventID:        event.ID,
					RoleID:         role.ID,
					Date:           date,
					TimeSlot:       slot,
					TotalVacancies: pattern.Vacancies,
				})
				if errors.Is(err, booking.ErrDuplicateShift) {
					result.Skipped++
					continue
				}
				if err != nil {
					return err
				}
				result.Created = append(result.Created, *shift)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Generated shifts",
		zap.String("event_id", eventID),
		zap.String("pattern", pattern.Name),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", result.Skipped))

	return result, nil
}

// patternDates returns the rrule occurrences within the event's dates, inclusive, in UTC
func patternDates(rule *rrule.RRule, event model.Event) ([]string, error) {
	start, err := time.Parse(model.DateLayout, event.StartDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event start date: %w", err)
	}
	end, err := time.Parse(model.DateLayout, event.EndDate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event end date: %w", err)
	}

	rule.DTStart(start)
	occurrences := rule.Between(start, end, true)

	dates := make([]string, 0, len(occurrences))
	for _, occurrence := range occurrences {
		dates = append(dates, occurrence.UTC().Format(model.DateLayout))
	}
	return dates, nil
}
