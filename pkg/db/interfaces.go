package db

import (
	"context"
	"errors"
	"slices"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// ErrNotFound is returned by every store when a record does not exist
var ErrNotFound = errors.New("record not found")

// BookingFilter selects bookings. Empty fields match everything.
type BookingFilter struct {
	ShiftID  string
	UserID   string
	EventID  string
	Statuses []model.BookingStatus
}

// Matches reports whether the booking satisfies the filter
func (f BookingFilter) Matches(b model.Booking) bool {
	if f.ShiftID != "" && b.ShiftID != f.ShiftID {
		return false
	}
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.EventID != "" && b.EventID != f.EventID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, b.Status) {
		return false
	}
	return true
}

// ShiftFilter selects shifts. Empty fields match everything.
type ShiftFilter struct {
	EventID       string
	Date          string
	TimeSlot      string
	RoleID        string
	CoordinatorID string
}

// Matches reports whether the shift satisfies the filter
func (f ShiftFilter) Matches(s model.Shift) bool {
	if f.EventID != "" && s.EventID != f.EventID {
		return false
	}
	if f.Date != "" && s.Date != f.Date {
		return false
	}
	if f.TimeSlot != "" && s.TimeSlot != f.TimeSlot {
		return false
	}
	if f.RoleID != "" && s.RoleID != f.RoleID {
		return false
	}
	if f.CoordinatorID != "" && !s.HasCoordinator(f.CoordinatorID) {
		return false
	}
	return true
}

// Reader defines read operations shared by stores and transactions
type Reader interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetRole(ctx context.Context, id string) (*model.Role, error)
	ListRoles(ctx context.Context, eventID string) ([]model.Role, error)
	GetShift(ctx context.Context, id string) (*model.Shift, error)
	ListShifts(ctx context.Context, filter ShiftFilter) ([]model.Shift, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	QueryBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, ids []string) ([]model.User, error)
}

// Writer defines upsert operations shared by stores and transactions
type Writer interface {
	SaveEvent(ctx context.Context, event *model.Event) error
	SaveRole(ctx context.Context, role *model.Role) error
	SaveShift(ctx context.Context, shift *model.Shift) error
	SaveBooking(ctx context.Context, booking *model.Booking) error
	SaveUser(ctx context.Context, user *model.User) error

	// DeleteShift removes the shift and every booking that references it.
	// Callers check that no active booking remains.
	DeleteShift(ctx context.Context, id string) error
}

// Tx is a unit of work. Nothing written through it is visible to other
// callers until the enclosing InTx returns nil.
type Tx interface {
	Reader
	Writer

	// LockShift returns the shift and holds its lock until the transaction ends.
	LockShift(ctx context.Context, id string) (*model.Shift, error)
	// Lock serializes transactions on an arbitrary key until the transaction
	// ends. Callers take key locks before any shift lock.
	Lock(ctx context.Context, key string) error
}

// Store defines the persistence contract used by the booking core.
// The memory, postgres and sqlite stores all implement it.
type Store interface {
	Reader
	Writer

	// InTx runs fn atomically. fn must only use the Tx it is given.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
