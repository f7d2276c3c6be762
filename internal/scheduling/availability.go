package scheduling

import (
	"context"

	"telehealth-server/internal/models"
)

// IsAvailable reports whether start-end is free on the doctor's calendar.
// Outside WithSlotLock the answer is advisory only.
func IsAvailable(ctx context.Context, repo Repository, doctorID, date, start, end string) (bool, error) {
	return IsAvailableExcluding(ctx, repo, doctorID, date, start, end, "")
}

// IsAvailableExcluding is IsAvailable ignoring the appointment with id
// exclude, which is about to release its reservation.
func IsAvailableExcluding(ctx context.Context, repo Repository, doctorID, date, start, end, exclude string) (bool, error) {
	taken, err := repo.ListForSlot(ctx, doctorID, date, ActiveStatuses)
	if err != nil {
		return false, err
	}
	return !conflicts(taken, start, end, exclude), nil
}

func conflicts(taken []models.Appointment, start, end, exclude string) bool {
	for _, a := range taken {
		if exclude != "" && a.ID == exclude {
			continue
		}
		if Overlaps(start, end, a.StartTime, a.EndTime) {
			return true
		}
	}
	return false
}
