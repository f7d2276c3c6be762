package scheduling

import (
	"telehealth-server/internal/apperr"
	"telehealth-server/internal/models"
)

// transitions lists, per status, the statuses it may move to. Statuses absent
// from the map are terminal.
var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusRequested: {
		models.StatusApproved,
		models.StatusCancelled,
		models.StatusRescheduled,
		models.StatusCompleted,
	},
	models.StatusApproved: {
		models.StatusCompleted,
		models.StatusCancelled,
		models.StatusRescheduled,
	},
}

// ActiveStatuses hold a slot on the doctor's calendar.
var ActiveStatuses = []models.AppointmentStatus{
	models.StatusRequested,
	models.StatusApproved,
	models.StatusBlocked,
}

// UpcomingStatuses are the patient-facing statuses of a booking still ahead.
var UpcomingStatuses = []models.AppointmentStatus{
	models.StatusRequested,
	models.StatusApproved,
}

// doctorSettable are the targets a doctor may request through UpdateStatus.
var doctorSettable = map[models.AppointmentStatus]bool{
	models.StatusApproved:  true,
	models.StatusCompleted: true,
	models.StatusCancelled: true,
}

// historyStatuses may be used with ListByStatus.
var historyStatuses = map[models.AppointmentStatus]bool{
	models.StatusCompleted: true,
	models.StatusCancelled: true,
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func IsTerminal(s models.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}

func checkTransition(from, to models.AppointmentStatus) error {
	if !CanTransition(from, to) {
		return apperr.Validationf("cannot move appointment from %s to %s", from, to)
	}
	return nil
}
