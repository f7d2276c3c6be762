package scheduling

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/models"
)

// GormRepository stores appointments through gorm.
type GormRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormRepository creates a repository bound to db. Each call is limited
// to timeout; zero means the caller's context alone governs it.
func NewGormRepository(db *gorm.DB, timeout time.Duration) *GormRepository {
	return &GormRepository{db: db, timeout: timeout}
}

func (r *GormRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if r.timeout <= 0 {
		return r.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

func (r *GormRepository) Get(ctx context.Context, id string) (*models.Appointment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var appt models.Appointment
	if err := db.First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Appointment not found")
		}
		return nil, apperr.Dependency("load appointment", err)
	}
	return &appt, nil
}

func (r *GormRepository) Create(ctx context.Context, a *models.Appointment) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	return apperr.Dependency("create appointment", db.Create(a).Error)
}

func (r *GormRepository) Update(ctx context.Context, id string, expect models.AppointmentStatus, fields map[string]any) error {
	db, cancel := r.conn(ctx)
	defer cancel()

	q := db.Model(&models.Appointment{}).Where("id = ?", id)
	if expect != "" {
		q = q.Where("status = ?", expect)
	}
	res := q.Updates(fields)
	if res.Error != nil {
		return apperr.Dependency("update appointment", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("Appointment was modified concurrently")
	}
	return nil
}

func (r *GormRepository) ListForSlot(ctx context.Context, doctorID, date string, statuses []models.AppointmentStatus) ([]models.Appointment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var appts []models.Appointment
	err := db.Where("doctor_id = ? AND appointment_date = ? AND status IN ?", doctorID, date, statuses).
		Order("start_time asc").
		Find(&appts).Error
	return appts, apperr.Dependency("list appointments for slot", err)
}

func (r *GormRepository) ListByDoctorDate(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var appts []models.Appointment
	err := db.Where("doctor_id = ? AND appointment_date = ? AND status IN ?", doctorID, date, UpcomingStatuses).
		Order("start_time asc").Order("id asc").
		Find(&appts).Error
	return appts, apperr.Dependency("list doctor appointments", err)
}

func (r *GormRepository) ListByDoctorStatus(ctx context.Context, doctorID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var appts []models.Appointment
	err := db.Where("doctor_id = ? AND status = ?", doctorID, status).
		Order("appointment_date desc").Order("start_time asc").Order("id asc").
		Find(&appts).Error
	return appts, apperr.Dependency("list doctor appointments", err)
}

func (r *GormRepository) ListByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var appts []models.Appointment
	err := db.Where("patient_id = ? AND status IN ?", patientID, UpcomingStatuses).
		Order("appointment_date asc").Order("start_time asc").Order("id asc").
		Find(&appts).Error
	return appts, apperr.Dependency("list patient appointments", err)
}

func (r *GormRepository) ListPatientsOfDoctor(ctx context.Context, doctorID string) ([]string, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var ids []string
	err := db.Model(&models.Appointment{}).
		Where("doctor_id = ? AND patient_id IS NOT NULL", doctorID).
		Distinct().Order("patient_id asc").
		Pluck("patient_id", &ids).Error
	return ids, apperr.Dependency("list doctor patients", err)
}

func (r *GormRepository) CountByDoctor(ctx context.Context, doctorID string, filter CountFilter) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	q := db.Model(&models.Appointment{}).Where("doctor_id = ?", doctorID)
	if filter.Date != "" {
		q = q.Where("appointment_date = ?", filter.Date)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	var n int64
	err := q.Count(&n).Error
	return n, apperr.Dependency("count appointments", err)
}

// WithSlotLock makes sure a schedule_locks row exists for every key, then
// takes SELECT ... FOR UPDATE on them in sorted order. Backends without row
// locks (SQLite) serialize the whole transaction instead.
func (r *GormRepository) WithSlotLock(ctx context.Context, keys []SlotKey, fn func(Repository) error) error {
	keys = normalizeKeys(keys)
	db, cancel := r.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, k := range keys {
			lock := models.ScheduleLock{DoctorID: k.DoctorID, Date: k.Date}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock).Error; err != nil {
				return apperr.Dependency("create slot lock", err)
			}
		}
		for _, k := range keys {
			var lock models.ScheduleLock
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("doctor_id = ? AND date = ?", k.DoctorID, k.Date).
				Take(&lock).Error
			if err != nil {
				return apperr.Dependency("acquire slot lock", err)
			}
		}
		return fn(&GormRepository{db: tx})
	})
	return apperr.Dependency("commit appointment", err)
}
