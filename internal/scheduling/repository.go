package scheduling

import (
	"context"
	"sort"

	"telehealth-server/internal/models"
)

// SlotKey identifies one doctor's calendar on one date.
type SlotKey struct {
	DoctorID string
	Date     string
}

// CountFilter narrows CountByDoctor. Empty fields do not filter.
type CountFilter struct {
	Date     string
	Statuses []models.AppointmentStatus
}

// Repository is the appointment record store.
//
// Filters are conjunctive equality or IN predicates. Records are never
// deleted; retired appointments keep their row with a terminal status.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Appointment, error)
	Create(ctx context.Context, a *models.Appointment) error

	// Update applies fields to the appointment only while its status still
	// equals expect, and fails with a Conflict otherwise. An empty expect
	// skips the status guard.
	Update(ctx context.Context, id string, expect models.AppointmentStatus, fields map[string]any) error

	ListForSlot(ctx context.Context, doctorID, date string, statuses []models.AppointmentStatus) ([]models.Appointment, error)
	ListByDoctorDate(ctx context.Context, doctorID, date string) ([]models.Appointment, error)
	ListByDoctorStatus(ctx context.Context, doctorID string, status models.AppointmentStatus) ([]models.Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error)
	ListPatientsOfDoctor(ctx context.Context, doctorID string) ([]string, error)
	CountByDoctor(ctx context.Context, doctorID string, filter CountFilter) (int64, error)

	// WithSlotLock runs fn inside one transaction holding an exclusive lock
	// on every key. Writers that check availability and then insert must do
	// both inside fn, using the Repository passed to it.
	WithSlotLock(ctx context.Context, keys []SlotKey, fn func(Repository) error) error
}

// normalizeKeys dedupes keys and sorts them so that every writer acquires
// locks in the same order.
func normalizeKeys(keys []SlotKey) []SlotKey {
	seen := make(map[SlotKey]struct{}, len(keys))
	out := make([]SlotKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DoctorID != out[j].DoctorID {
			return out[i].DoctorID < out[j].DoctorID
		}
		return out[i].Date < out[j].Date
	})
	return out
}
