package sqlite

import (
	"time"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

type eventRecord struct {
	ID          string `gorm:"primaryKey"`
	Slug        string `gorm:"uniqueIndex"`
	Name        string
	Location    string
	Country     string
	StartDate   string `gorm:"index"`
	EndDate     string
	Description string
	State       string
	CreatedAt   time.Time
}

func (eventRecord) TableName() string { return "events" }

type roleRecord struct {
	ID               string `gorm:"primaryKey"`
	EventID          string `gorm:"index"`
	Name             string
	Description      string
	DetailedTasks    string
	YouTubeURL       string
	ExperienceLevel  string
	RequiresApproval bool
	Hidden           bool
	CreatedAt        time.Time
}

func (roleRecord) TableName() string { return "roles" }

type shiftRecord struct {
	ID                 string `gorm:"primaryKey"`
	EventID            string `gorm:"uniqueIndex:idx_shift_slot;index:idx_shift_event_date"`
	Date               string `gorm:"uniqueIndex:idx_shift_slot;index:idx_shift_event_date"`
	TimeSlot           string `gorm:"uniqueIndex:idx_shift_slot"`
	RoleID             string `gorm:"uniqueIndex:idx_shift_slot"`
	TotalVacancies     int
	AvailableVacancies int
	CoordinatorIDs     []string `gorm:"serializer:json;type:text"`
}

func (shiftRecord) TableName() string { return "shifts" }

type bookingRecord struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"index:idx_booking_user_status"`
	ShiftID       string `gorm:"index:idx_booking_shift_status"`
	EventID       string `gorm:"index"`
	Status        string `gorm:"index:idx_booking_user_status;index:idx_booking_shift_status"`
	Attendance    string
	FoodDelivered bool
	RequestedAt   time.Time
	CancelledAt   *time.Time
}

func (bookingRecord) TableName() string { return "bookings" }

type userRecord struct {
	ID               string `gorm:"primaryKey"`
	DNI              string
	FullName         string
	Email            string
	Phone            string
	TShirtSize       string
	IsMember         bool
	AttendedPrevious bool
	IsOver18         bool
	HowTheyHeard     string
	Role             string
	Status           string
	CreatedAt        time.Time
}

func (userRecord) TableName() string { return "users" }

func toEventRecord(e *model.Event) eventRecord {
	return eventRecord{
		ID:          e.ID,
		Slug:        e.Slug,
		Name:        e.Name,
		Location:    e.Location,
		Country:     e.Country,
		StartDate:   e.StartDate,
		EndDate:     e.EndDate,
		Description: e.Description,
		State:       string(e.State),
		CreatedAt:   e.CreatedAt,
	}
}

func (r eventRecord) toModel() model.Event {
	return model.Event{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		Location:    r.Location,
		Country:     r.Country,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Description: r.Description,
		State:       model.EventState(r.State),
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

func toRoleRecord(r *model.Role) roleRecord {
	return roleRecord{
		ID:               r.ID,
		EventID:          r.EventID,
		Name:             r.Name,
		Description:      r.Description,
		DetailedTasks:    r.DetailedTasks,
		YouTubeURL:       r.YouTubeURL,
		ExperienceLevel:  string(r.ExperienceLevel),
		RequiresApproval: r.RequiresApproval,
		Hidden:           r.Hidden,
		CreatedAt:        r.CreatedAt,
	}
}

func (r roleRecord) toModel() model.Role {
	return model.Role{
		ID:               r.ID,
		EventID:          r.EventID,
		Name:             r.Name,
		Description:      r.Description,
		DetailedTasks:    r.DetailedTasks,
		YouTubeURL:       r.YouTubeURL,
		ExperienceLevel:  model.ExperienceLevel(r.ExperienceLevel),
		RequiresApproval: r.RequiresApproval,
		Hidden:           r.Hidden,
		CreatedAt:        r.CreatedAt.UTC(),
	}
}

func toShiftRecord(s *model.Shift) shiftRecord {
	coordinators := s.CoordinatorIDs
	if coordinators == nil {
		coordinators = []string{}
	}
	return shiftRecord{
		ID:                 s.ID,
		EventID:            s.EventID,
		Date:               s.Date,
		TimeSlot:           s.TimeSlot,
		RoleID:             s.RoleID,
		TotalVacancies:     s.TotalVacancies,
		AvailableVacancies: s.AvailableVacancies,
		CoordinatorIDs:     coordinators,
	}
}

func (r shiftRecord) toModel() model.Shift {
	coordinators := r.CoordinatorIDs
	if coordinators == nil {
		coordinators = []string{}
	}
	return model.Shift{
		ID:                 r.ID,
		EventID:            r.EventID,
		Date:               r.Date,
		TimeSlot:           r.TimeSlot,
		RoleID:             r.RoleID,
		TotalVacancies:     r.TotalVacancies,
		AvailableVacancies: r.AvailableVacancies,
		CoordinatorIDs:     coordinators,
	}
}

func toBookingRecord(b *model.Booking) bookingRecord {
	return bookingRecord{
		ID:            b.ID,
		UserID:        b.UserID,
		ShiftID:       b.ShiftID,
		EventID:       b.EventID,
		Status:        string(b.Status),
		Attendance:    string(b.Attendance),
		FoodDelivered: b.FoodDelivered,
		RequestedAt:   b.RequestedAt,
		CancelledAt:   b.CancelledAt,
	}
}

func (r bookingRecord) toModel() model.Booking {
	b := model.Booking{
		ID:            r.ID,
		UserID:        r.UserID,
		ShiftID:       r.ShiftID,
		EventID:       r.EventID,
		Status:        model.BookingStatus(r.Status),
		Attendance:    model.Attendance(r.Attendance),
		FoodDelivered: r.FoodDelivered,
		RequestedAt:   r.RequestedAt.UTC(),
	}
	if r.CancelledAt != nil {
		t := r.CancelledAt.UTC()
		b.CancelledAt = &t
	}
	return b
}

func toUserRecord(u *model.User) userRecord {
	return userRecord{
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
		Role:             string(u.Role),
		Status:           string(u.Status),
		CreatedAt:        u.CreatedAt,
	}
}

func (r userRecord) toModel() model.User {
	return model.User{
		ID:               r.ID,
		DNI:              r.DNI,
		FullName:         r.FullName,
		Email:            r.Email,
		Phone:            r.Phone,
		TShirtSize:       r.TShirtSize,
		IsMember:         r.IsMember,
		AttendedPrevious: r.AttendedPrevious,
		IsOver18:         r.IsOver18,
		HowTheyHeard:     r.HowTheyHeard,
		Role:             model.UserRole(r.Role),
		Status:           model.UserStatus(r.Status),
		CreatedAt:        r.CreatedAt.UTC(),
	}
}
