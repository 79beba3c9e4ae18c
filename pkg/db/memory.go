package db

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// MemoryStore is an in-process Store used by tests and the "memory" driver.
// A single mutex is held for the whole of each transaction; transaction writes
// are staged and only applied when fn succeeds.
type MemoryStore struct {
	mu     sync.RWMutex
	tables *memTables
}

type memTables struct {
	events   map[string]model.Event
	roles    map[string]model.Role
	shifts   map[string]model.Shift
	bookings map[string]model.Booking
	users    map[string]model.User

	// Rows removed by a transaction, applied on commit
	deletedShifts   map[string]struct{}
	deletedBookings map[string]struct{}
}

func newMemTables() *memTables {
	return &memTables{
		events:          make(map[string]model.Event),
		roles:           make(map[string]model.Role),
		shifts:          make(map[string]model.Shift),
		bookings:        make(map[string]model.Booking),
		users:           make(map[string]model.User),
		deletedShifts:   make(map[string]struct{}),
		deletedBookings: make(map[string]struct{}),
	}
}

func (t *memTables) apply(staged *memTables) {
	for id, v := range staged.events {
		t.events[id] = v
	}
	for id, v := range staged.roles {
		t.roles[id] = v
	}
	for id, v := range staged.shifts {
		t.shifts[id] = v
	}
	for id, v := range staged.bookings {
		t.bookings[id] = v
	}
	for id, v := range staged.users {
		t.users[id] = v
	}
	for id := range staged.deletedShifts {
		delete(t.shifts, id)
	}
	for id := range staged.deletedBookings {
		delete(t.bookings, id)
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: newMemTables()}
}

// InTx runs fn while holding the store lock
func (s *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{memView{base: s.tables, staged: newMemTables()}}
	if err := fn(tx); err != nil {
		return err
	}

	s.tables.apply(tx.staged)
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}

// committed returns a read view over committed data. Callers hold s.mu.
func (s *MemoryStore) committed() memView {
	return memView{base: s.tables, staged: &memTables{}}
}

func (s *MemoryStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().GetEvent(ctx, id)
}

func (s *MemoryStore) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().GetEventBySlug(ctx, slug)
}

func (s *MemoryStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().ListEvents(ctx)
}

func (s *MemoryStore) GetRole(ctx context.Context, id string) (*model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().GetRole(ctx, id)
}

func (s *MemoryStore) ListRoles(ctx context.Context, eventID string) ([]model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().ListRoles(ctx, eventID)
}

func (s *MemoryStore) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().GetShift(ctx, id)
}

func (s *MemoryStore) ListShifts(ctx context.Context, filter ShiftFilter) ([]model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().ListShifts(ctx, filter)
}

func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().GetBooking(ctx, id)
}

func (s *MemoryStore) QueryBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().QueryBookings(ctx, filter)
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().GetUser(ctx, id)
}

func (s *MemoryStore) ListUsers(ctx context.Context, ids []string) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed().ListUsers(ctx, ids)
}

func (s *MemoryStore) SaveEvent(ctx context.Context, event *model.Event) error {
	return s.InTx(ctx, func(tx Tx) error { return tx.SaveEvent(ctx, event) })
}

func (s *MemoryStore) SaveRole(ctx context.Context, role *model.Role) error {
	return s.InTx(ctx, func(tx Tx) error { return tx.SaveRole(ctx, role) })
}

func (s *MemoryStore) SaveShift(ctx context.Context, shift *model.Shift) error {
	return s.InTx(ctx, func(tx Tx) error { return tx.SaveShift(ctx, shift) })
}

func (s *MemoryStore) SaveBooking(ctx context.Context, booking *model.Booking) error {
	return s.InTx(ctx, func(tx Tx) error { return tx.SaveBooking(ctx, booking) })
}

func (s *MemoryStore) SaveUser(ctx context.Context, user *model.User) error {
	return s.InTx(ctx, func(tx Tx) error { return tx.SaveUser(ctx, user) })
}

func (s *MemoryStore) DeleteShift(ctx context.Context, id string) error {
	return s.InTx(ctx, func(tx Tx) error { return tx.DeleteShift(ctx, id) })
}

// memView reads staged rows first, then committed rows
type memView struct {
	base   *memTables
	staged *memTables
}

// lookup and scan skip ids in gone, the rows deleted by the transaction
func lookup[T any](base, staged map[string]T, gone map[string]struct{}, id string) (T, bool) {
	if v, ok := staged[id]; ok {
		return v, true
	}
	if _, deleted := gone[id]; deleted {
		var zero T
		return zero, false
	}
	v, ok := base[id]
	return v, ok
}

func scan[T any](base, staged map[string]T, gone map[string]struct{}, keep func(T) bool) []T {
	var out []T
	for id, v := range base {
		if s, ok := staged[id]; ok {
			v = s
		} else if _, deleted := gone[id]; deleted {
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	for id, v := range staged {
		if _, ok := base[id]; !ok && keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (v memView) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	e, ok := lookup(v.base.events, v.staged.events, nil, id)
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return &e, nil
}

func (v memView) GetEventBySlug(ctx context.Context, slug string) (*model.Event, error) {
	events := scan(v.base.events, v.staged.events, nil, func(e model.Event) bool { return e.Slug == slug })
	if len(events) == 0 {
		return nil, fmt.Errorf("event %s: %w", slug, ErrNotFound)
	}
	return &events[0], nil
}

func (v memView) ListEvents(ctx context.Context) ([]model.Event, error) {
	events := scan(v.base.events, v.staged.events, nil, func(model.Event) bool { return true })
	slices.SortFunc(events, func(a, b model.Event) int {
		return cmp.Or(cmp.Compare(a.StartDate, b.StartDate), cmp.Compare(a.ID, b.ID))
	})
	return events, nil
}

func (v memView) GetRole(ctx context.Context, id string) (*model.Role, error) {
	r, ok := lookup(v.base.roles, v.staged.roles, nil, id)
	if !ok {
		return nil, fmt.Errorf("role %s: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (v memView) ListRoles(ctx context.Context, eventID string) ([]model.Role, error) {
	roles := scan(v.base.roles, v.staged.roles, nil, func(r model.Role) bool {
		return eventID == "" || r.EventID == eventID
	})
	slices.SortFunc(roles, func(a, b model.Role) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return roles, nil
}

func (v memView) GetShift(ctx context.Context, id string) (*model.Shift, error) {
	s, ok := lookup(v.base.shifts, v.staged.shifts, v.staged.deletedShifts, id)
	if !ok {
		return nil, fmt.Errorf("shift %s: %w", id, ErrNotFound)
	}
	s = s.Clone()
	return &s, nil
}

func (v memView) ListShifts(ctx context.Context, filter ShiftFilter) ([]model.Shift, error) {
	shifts := scan(v.base.shifts, v.staged.shifts, v.staged.deletedShifts, filter.Matches)
	for i := range shifts {
		shifts[i] = shifts[i].Clone()
	}
	slices.SortFunc(shifts, func(a, b model.Shift) int {
		return cmp.Or(
			cmp.Compare(a.Date, b.Date),
			cmp.Compare(a.TimeSlot, b.TimeSlot),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return shifts, nil
}

func (v memView) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, ok := lookup(v.base.bookings, v.staged.bookings, v.staged.deletedBookings, id)
	if !ok {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return &b, nil
}

func (v memView) QueryBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	bookings := scan(v.base.bookings, v.staged.bookings, v.staged.deletedBookings, filter.Matches)
	slices.SortFunc(bookings, func(a, b model.Booking) int {
		return cmp.Or(a.RequestedAt.Compare(b.RequestedAt), cmp.Compare(a.ID, b.ID))
	})
	return bookings, nil
}

func (v memView) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, ok := lookup(v.base.users, v.staged.users, nil, id)
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (v memView) ListUsers(ctx context.Context, ids []string) ([]model.User, error) {
	users := scan(v.base.users, v.staged.users, nil, func(u model.User) bool {
		return ids == nil || slices.Contains(ids, u.ID)
	})
	slices.SortFunc(users, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	return users, nil
}

// memTx stages writes on top of a memView
type memTx struct {
	memView
}

func (tx *memTx) LockShift(ctx context.Context, id string) (*model.Shift, error) {
	return tx.GetShift(ctx, id)
}

func (tx *memTx) Lock(ctx context.Context, key string) error {
	return nil
}

func (tx *memTx) SaveEvent(ctx context.Context, event *model.Event) error {
	tx.staged.events[event.ID] = *event
	return nil
}

func (tx *memTx) SaveRole(ctx context.Context, role *model.Role) error {
	tx.staged.roles[role.ID] = *role
	return nil
}

func (tx *memTx) SaveShift(ctx context.Context, shift *model.Shift) error {
	delete(tx.staged.deletedShifts, shift.ID)
	tx.staged.shifts[shift.ID] = shift.Clone()
	return nil
}

func (tx *memTx) SaveBooking(ctx context.Context, booking *model.Booking) error {
	delete(tx.staged.deletedBookings, booking.ID)
	tx.staged.bookings[booking.ID] = *booking
	return nil
}

func (tx *memTx) DeleteShift(ctx context.Context, id string) error {
	if _, err := tx.GetShift(ctx, id); err != nil {
		return err
	}

	// Drop the shift's bookings along with it
	bookings := scan(tx.base.bookings, tx.staged.bookings, tx.staged.deletedBookings, func(b model.Booking) bool {
		return b.ShiftID == id
	})
	for _, b := range bookings {
		delete(tx.staged.bookings, b.ID)
		tx.staged.deletedBookings[b.ID] = struct{}{}
	}

	delete(tx.staged.shifts, id)
	tx.staged.deletedShifts[id] = struct{}{}
	return nil
}

func (tx *memTx) SaveUser(ctx context.Context, user *model.User) error {
	tx.staged.users[user.ID] = *user
	return nil
}
