package metrics

import (
	"cmp"
	"math"
	"slices"

	"github.com/jakechorley/volunteer-shifts/pkg/core/booking"
	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// RoleCount is the number of occupied seats for one role
type RoleCount struct {
	RoleName string `json:"roleName"`
	Count    int    `json:"count"`
}

// DailyOccupation is the occupancy percentage of one calendar day
type DailyOccupation struct {
	Date       string `json:"date"`
	Occupation int    `json:"occupation"`
}

// Dashboard holds the read-only statistics of one event
type Dashboard struct {
	EventID                      string            `json:"eventId"`
	TotalVacancies               int               `json:"totalVacancies"`
	OccupiedVacancies            int               `json:"occupiedVacancies"`
	AvailableVacancies           int               `json:"availableVacancies"`
	OccupationPercentage         int               `json:"occupationPercentage"`
	UniqueVolunteers             int               `json:"uniqueVolunteers"`
	AvgShiftsPerVolunteer        float64           `json:"avgShiftsPerVolunteer"`
	TotalShifts                  int               `json:"totalShifts"`
	ShiftOccupation              map[string]int    `json:"shiftOccupation"`
	DailyOccupation              []DailyOccupation `json:"dailyOccupation"`
	RoleDistribution             []RoleCount       `json:"roleDistribution"`
	AttendancePercentage         int               `json:"attendancePercentage"`
	PreviousExperiencePercentage int               `json:"previousExperiencePercentage"`
	PendingCancellations         int               `json:"pendingCancellations"`
	PendingCoordinatorRequests   int               `json:"pendingCoordinatorRequests"`
	WaitlistCount                int               `json:"waitlistCount"`
}

// Input is the snapshot of one event the dashboard is computed from.
// Bookings on shifts outside Shifts are ignored.
type Input struct {
	EventID  string
	Shifts   []model.Shift
	Bookings []model.Booking
	Roles    []model.Role
	Users    []model.User
}

// Compute derives the dashboard. It never modifies its input.
func Compute(in Input) Dashboard {
	d := Dashboard{
		EventID:          in.EventID,
		TotalShifts:      len(in.Shifts),
		ShiftOccupation:  make(map[string]int),
		DailyOccupation:  []DailyOccupation{},
		RoleDistribution: []RoleCount{},
	}

	shifts := make(map[string]model.Shift, len(in.Shifts))
	for _, s := range in.Shifts {
		shifts[s.ID] = s
		d.TotalVacancies += s.TotalVacancies
	}
	roles := make(map[string]model.Role, len(in.Roles))
	for _, r := range in.Roles {
		roles[r.ID] = r
	}

	slotTotals := make(map[string]int)
	slotOccupied := make(map[string]int)
	dayTotals := make(map[string]int)
	dayOccupied := make(map[string]int)
	for _, s := range in.Shifts {
		slotTotals[s.TimeSlot] += s.TotalVacancies
		dayTotals[s.Date] += s.TotalVacancies
	}

	roleCounts := make(map[string]int)
	volunteers := make(map[string]bool)
	active := 0
	attended, absent := 0, 0

	for _, b := range in.Bookings {
		shift, ok := shifts[b.ShiftID]
		if !ok {
			continue
		}

		switch b.Status {
		case model.StatusCancellationRequested:
			d.PendingCancellations++
		case model.StatusPendingApproval:
			if roles[shift.RoleID].RequiresApproval {
				d.PendingCoordinatorRequests++
			}
		case model.StatusWaitlist:
			d.WaitlistCount++
		}

		if b.Status == model.StatusCancelled {
			continue
		}
		active++
		volunteers[b.UserID] = true

		switch b.Attendance {
		case model.AttendanceAttended:
			attended++
		case model.AttendanceAbsent:
			absent++
		}

		if !booking.Occupies(b.Status) {
			continue
		}
		d.OccupiedVacancies++
		slotOccupied[shift.TimeSlot]++
		dayOccupied[shift.Date]++
		if role, ok := roles[shift.RoleID]; ok {
			roleCounts[role.Name]++
		}
	}

	d.AvailableVacancies = booking.Available(d.TotalVacancies, d.OccupiedVacancies)
	d.OccupationPercentage = percentage(d.OccupiedVacancies, d.TotalVacancies)
	d.UniqueVolunteers = len(volunteers)
	if d.UniqueVolunteers > 0 {
		d.AvgShiftsPerVolunteer = math.Round(float64(active)/float64(d.UniqueVolunteers)*10) / 10
	}
	d.AttendancePercentage = percentage(attended, attended+absent)

	for slot, total := range slotTotals {
		d.ShiftOccupation[slot] = percentage(slotOccupied[slot], total)
	}

	days := make([]string, 0, len(dayTotals))
	for day := range dayTotals {
		days = append(days, day)
	}
	slices.Sort(days)
	for _, day := range days {
		d.DailyOccupation = append(d.DailyOccupation, DailyOccupation{
			Date:       day,
			Occupation: percentage(dayOccupied[day], dayTotals[day]),
		})
	}

	for name, count := range roleCounts {
		d.RoleDistribution = append(d.RoleDistribution, RoleCount{RoleName: name, Count: count})
	}
	slices.SortFunc(d.RoleDistribution, func(a, b RoleCount) int {
		return cmp.Or(cmp.Compare(b.Count, a.Count), cmp.Compare(a.RoleName, b.RoleName))
	})

	experienced := 0
	for _, u := range in.Users {
		if volunteers[u.ID] && u.AttendedPrevious {
			experienced++
		}
	}
	d.PreviousExperiencePercentage = percentage(experienced, d.UniqueVolunteers)

	return d
}

// Summary holds the list-view counters of an event, derived on read
type Summary struct {
	Event                model.Event `json:"event"`
	Volunteers           int         `json:"volunteers"`
	Shifts               int         `json:"shifts"`
	OccupationPercentage int         `json:"occupationPercentage"`
}

// Summarize derives the counters shown next to an event
func Summarize(event model.Event, shifts []model.Shift, bookings []model.Booking) Summary {
	d := Compute(Input{EventID: event.ID, Shifts: shifts, Bookings: bookings})
	return Summary{
		Event:                event,
		Volunteers:           d.UniqueVolunteers,
		Shifts:               d.TotalShifts,
		OccupationPercentage: d.OccupationPercentage,
	}
}

// percentage returns part/total*100 rounded to an integer, or 0 when total is 0
func percentage(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
