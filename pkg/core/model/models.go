package model

import (
	"slices"
	"time"
)

// DateLayout is the calendar-day format used for event and shift dates
const DateLayout = "2006-01-02"

type EventState string

const (
	EventActive   EventState = "active"
	EventInactive EventState = "inactive"
	EventArchived EventState = "archived"
)

func (s EventState) IsValid() bool {
	return s == EventActive || s == EventInactive || s == EventArchived
}

// Event represents a volunteering event with its own roles and shifts
type Event struct {
	ID          string     `json:"id"`
	Slug        string     `json:"slug"`
	Name        string     `json:"name"`
	Location    string     `json:"location"`
	Country     string     `json:"country"`
	StartDate   string     `json:"startDate"` // Date format
	EndDate     string     `json:"endDate"`   // Date format
	Description string     `json:"description,omitempty"`
	State       EventState `json:"state"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type ExperienceLevel string

const (
	ExperienceNew          ExperienceLevel = "new"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// Role is a job description within an event (e.g. "Receptionist")
type Role struct {
	ID               string          `json:"id"`
	EventID          string          `json:"eventId"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	DetailedTasks    string          `json:"detailedTasks,omitempty"`
	YouTubeURL       string          `json:"youtubeUrl,omitempty"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel"`
	RequiresApproval bool            `json:"requiresApproval"`
	Hidden           bool            `json:"hidden"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Shift is a bookable (event, date, time slot, role) unit with finite capacity
type Shift struct {
	ID                 string   `json:"id"`
	EventID            string   `json:"eventId"`
	Date               string   `json:"date"`     // Date format
	TimeSlot           string   `json:"timeSlot"` // e.g. "13:00-16:00"
	RoleID             string   `json:"roleId"`
	TotalVacancies     int      `json:"totalVacancies"`
	AvailableVacancies int      `json:"availableVacancies"`
	CoordinatorIDs     []string `json:"coordinatorIds"`
}

// HasCoordinator reports whether the user coordinates this shift
func (s Shift) HasCoordinator(userID string) bool {
	return slices.Contains(s.CoordinatorIDs, userID)
}

// SameSlot reports whether two shifts happen at the same date and time slot
func (s Shift) SameSlot(other Shift) bool {
	return s.Date == other.Date && s.TimeSlot == other.TimeSlot
}

// Clone returns a copy that does not share the coordinator slice
func (s Shift) Clone() Shift {
	s.CoordinatorIDs = slices.Clone(s.CoordinatorIDs)
	return s
}

type BookingStatus string

const (
	StatusPendingApproval       BookingStatus = "pending_approval"
	StatusConfirmed             BookingStatus = "confirmed"
	StatusCancellationRequested BookingStatus = "cancellation_requested"
	StatusCancelled             BookingStatus = "cancelled"
	StatusWaitlist              BookingStatus = "waitlist"
)

// ActiveStatuses are all booking statuses except cancelled
var ActiveStatuses = []BookingStatus{
	StatusPendingApproval,
	StatusConfirmed,
	StatusCancellationRequested,
	StatusWaitlist,
}

type Attendance string

const (
	AttendanceUnset    Attendance = ""
	AttendancePending  Attendance = "pending"
	AttendanceAttended Attendance = "attended"
	AttendanceAbsent   Attendance = "absent"
)

func (a Attendance) IsValid() bool {
	return a == AttendancePending || a == AttendanceAttended || a == AttendanceAbsent
}

// Marked reports whether attendance has been recorded as attended or absent
func (a Attendance) Marked() bool {
	return a == AttendanceAttended || a == AttendanceAbsent
}

// Booking is a volunteer's claim on one shift
type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	ShiftID       string        `json:"shiftId"`
	EventID       string        `json:"eventId"`
	Status        BookingStatus `json:"status"`
	Attendance    Attendance    `json:"attendance,omitempty"`
	FoodDelivered bool          `json:"foodDelivered"`
	RequestedAt   time.Time     `json:"requestedAt"`
	CancelledAt   *time.Time    `json:"cancelledAt,omitempty"`
}

type UserRole string

const (
	UserVolunteer   UserRole = "volunteer"
	UserCoordinator UserRole = "coordinator"
	UserAdmin       UserRole = "admin"
	UserSuperAdmin  UserRole = "superadmin"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserVolunteer, UserCoordinator, UserAdmin, UserSuperAdmin:
		return true
	}
	return false
}

type UserStatus string

const (
	UserActive    UserStatus = "active"
	UserSuspended UserStatus = "suspended"
	UserDeleted   UserStatus = "deleted"
)

// User represents a registered volunteer or staff member
type User struct {
	ID               string     `json:"id"`
	DNI              string     `json:"dni"`
	FullName         string     `json:"fullName"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone,omitempty"`
	TShirtSize       string     `json:"tshirtSize,omitempty"`
	IsMember         bool       `json:"isMember"`
	AttendedPrevious bool       `json:"attendedPrevious"`
	IsOver18         bool       `json:"isOver18"`
	HowTheyHeard     string     `json:"howTheyHeard,omitempty"`
	Role             UserRole   `json:"role"`
	Status           UserStatus `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Actor is the caller identity asserted by the identity provider
type Actor struct {
	UserID          string
	Role            UserRole
	ManagedEventIDs []string
}

// SystemActor is used for operator actions issued from the CLI
var SystemActor = Actor{UserID: "system", Role: UserSuperAdmin}
