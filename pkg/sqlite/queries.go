package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
	"github.com/jakechorley/volunteer-shifts/pkg/db"
)

// gormQueries implements db.Reader and db.Writer on a gorm handle
type gormQueries struct {
	db *gorm.DB
}

// first loads one record by primary key, mapping a miss to db.ErrNotFound
func first[T any](ctx context.Context, gdb *gorm.DB, kind, id string) (*T, error) {
	var rec T
	err := gdb.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s %s: %w", kind, id, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", kind, err)
	}
	return &rec, nil
}

// upsert inserts the record or replaces every column on primary key conflict
func upsert(ctx context.Context, gdb *gorm.DB, kind string, rec any) error {
	if err := gdb.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return nil
}

func (q gormQueries) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	rec, err := first[eventRecord](ctx, q.db, "event", id)
	if err != nil {
		return nil, err
	}
	e := rec.toModel()
	return &e, nil
}

func (q gormQueries) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	var rec eventRecord
	err := q.db.WithContext(ctx).Where("slug = ?", slug).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("event %s: %w", slug, db.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	e := rec.toModel()
	return &e, nil
}

func (q gormQueries) ListEvents(ctx context.Context) ([]model.Event, error) {
	var recs []eventRecord
	if err := q.db.WithContext(ctx).Order("start_date, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	events := make([]model.Event, 0, len(recs))
	for _, r := range recs {
		events = append(events, r.toModel())
	}
	return events, nil
}

func (q gormQueries) GetRole(ctx context.Context, id string) (*model.Role, error) {
	rec, err := first[roleRecord](ctx, q.db, "role", id)
	if err != nil {
		return nil, err
	}
	r := rec.toModel()
	return &r, nil
}

func (q gormQueries) ListRoles(ctx context.Context, eventID string) ([]model.Role, error) {
	var recs []roleRecord
	if err := q.db.WithContext(ctx).Where("event_id = ?", eventID).Order("name, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	roles := make([]model.Role, 0, len(recs))
	for _, r := range recs {
		roles = append(roles, r.toModel())
	}
	return roles, nil
}

func (q gormQueries) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	rec, err := first[shiftRecord](ctx, q.db, "shift", id)
	if err != nil {
		return nil, err
	}
	s := rec.toModel()
	return &s, nil
}

func (q gormQueries) ListShifts(ctx context.Context, filter db.ShiftFilter) ([]model.Shift, error) {
	query := q.db.WithContext(ctx).Model(&shiftRecord{})
	if filter.EventID != "" {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if filter.Date != "" {
		query = query.Where("date = ?", filter.Date)
	}
	if filter.TimeSlot != "" {
		query = query.Where("time_slot = ?", filter.TimeSlot)
	}
	if filter.RoleID != "" {
		query = query.Where("role_id = ?", filter.RoleID)
	}
	if filter.CoordinatorID != "" {
		query = query.Where("EXISTS (SELECT 1 FROM json_each(shifts.coordinator_ids) WHERE json_each.value = ?)", filter.CoordinatorID)
	}

	var recs []shiftRecord
	if err := query.Order("date, time_slot, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	shifts := make([]model.Shift, 0, len(recs))
	for _, r := range recs {
		shifts = append(shifts, r.toModel())
	}
	return shifts, nil
}

func (q gormQueries) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	rec, err := first[bookingRecord](ctx, q.db, "booking", id)
	if err != nil {
		return nil, err
	}
	b := rec.toModel()
	return &b, nil
}

func (q gormQueries) QueryBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error) {
	query := q.db.WithContext(ctx).Model(&bookingRecord{})
	if filter.ShiftID != "" {
		query = query.Where("shift_id = ?", filter.ShiftID)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.EventID != "" {
		query = query.Where("event_id = ?", filter.EventID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query = query.Where("status IN ?", statuses)
	}

	var recs []bookingRecord
	if err := query.Order("requested_at, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	bookings := make([]model.Booking, 0, len(recs))
	for _, r := range recs {
		bookings = append(bookings, r.toModel())
	}
	return bookings, nil
}

func (q gormQueries) GetUser(ctx context.Context, id string) (*model.User, error) {
	rec, err := first[userRecord](ctx, q.db, "user", id)
	if err != nil {
		return nil, err
	}
	u := rec.toModel()
	return &u, nil
}

func (q gormQueries) ListUsers(ctx context.Context, ids []string) ([]model.User, error) {
	query := q.db.WithContext(ctx).Model(&userRecord{})
	if ids != nil {
		if len(ids) == 0 {
			return []model.User{}, nil
		}
		query = query.Where("id IN ?", ids)
	}

	var recs []userRecord
	if err := query.Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	users := make([]model.User, 0, len(recs))
	for _, r := range recs {
		users = append(users, r.toModel())
	}
	return users, nil
}

func (q gormQueries) SaveEvent(ctx context.Context, e *model.Event) error {
	rec := toEventRecord(e)
	return upsert(ctx, q.db, "event", &rec)
}

func (q gormQueries) SaveRole(ctx context.Context, r *model.Role) error {
	rec := toRoleRecord(r)
	return upsert(ctx, q.db, "role", &rec)
}

func (q gormQueries) SaveShift(ctx context.Context, s *model.Shift) error {
	rec := toShiftRecord(s)
	return upsert(ctx, q.db, "shift", &rec)
}

func (q gormQueries) SaveBooking(ctx context.Context, b *model.Booking) error {
	rec := toBookingRecord(b)
	return upsert(ctx, q.db, "booking", &rec)
}

func (q gormQueries) SaveUser(ctx context.Context, u *model.User) error {
	rec := toUserRecord(u)
	return upsert(ctx, q.db, "user", &rec)
}

// DeleteShift removes the shift and its bookings. gorm nests the
// transaction as a savepoint when already inside one.
func (q gormQueries) DeleteShift(ctx context.Context, id string) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("shift_id = ?", id).Delete(&bookingRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete bookings of shift: %w", err)
		}

		res := tx.Where("id = ?", id).Delete(&shiftRecord{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete shift: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("shift %s: %w", id, db.ErrNotFound)
		}
		return nil
	})
}
