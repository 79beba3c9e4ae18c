package commands

import (
	"fmt"
	"strconv"

	"github.com/jakechorley/volunteer-shifts/pkg/core/model"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

// parseCount parses a non-negative integer argument
func parseCount(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, value)
	}
	return n, nil
}

// vacancyColor picks the color of an availability cell
func vacancyColor(shift model.Shift) string {
	switch {
	case shift.AvailableVacancies == 0:
		return colorRed
	case shift.TotalVacancies > 0 && shift.AvailableVacancies*4 <= shift.TotalVacancies:
		return colorYellow
	default:
		return colorGreen
	}
}

// statusColor picks the color of a booking status
func statusColor(status model.BookingStatus) string {
	switch status {
	case model.StatusConfirmed:
		return colorGreen
	case model.StatusCancelled:
		return colorDim
	case model.StatusPendingApproval, model.StatusCancellationRequested, model.StatusWaitlist:
		return colorYellow
	}
	return colorReset
}

// parseAttendance accepts the attendance marks staff can record
func parseAttendance(value string) (model.Attendance, error) {
	mark := model.Attendance(value)
	if !mark.IsValid() {
		return "", fmt.Errorf("attendance must be pending, attended or absent, got %q", value)
	}
	return mark, nil
}
