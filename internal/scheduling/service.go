package scheduling

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/models"
)

const defaultBlockReason = "Doctor unavailable"

// Notifier delivers a templated message to an email address. Implementations
// must not block the caller and must swallow their own failures.
type Notifier interface {
	Notify(to, subject string, fields map[string]string)
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, map[string]string) {}

// Service implements the appointment lifecycle on top of a Repository.
type Service struct {
	repo     Repository
	dir      Directory
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time

	readAttempts int
	readBackoff  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for dashboard stats.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithReadRetry overrides how idempotent reads are retried.
func WithReadRetry(attempts int, backoff time.Duration) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.readAttempts = attempts
		}
		s.readBackoff = backoff
	}
}

// NewService wires the lifecycle manager. A nil notifier drops notifications.
func NewService(repo Repository, dir Directory, notifier Notifier, logger zerolog.Logger, opts ...Option) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &Service{
		repo:         repo,
		dir:          dir,
		notifier:     notifier,
		log:          logger.With().Str("component", "scheduling").Logger(),
		now:          time.Now,
		readAttempts: readAttempts,
		readBackoff:  readBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is a patient's booking request.
type CreateInput struct {
	DoctorID       string
	Date           string
	StartTime      string
	EndTime        string
	Reason         string
	IsRecurring    bool
	RecurrenceType models.RecurrenceType
}

// RescheduleInput names the new slot for an existing appointment.
type RescheduleInput struct {
	Date      string
	StartTime string
	EndTime   string
}

// BlockInput is a range a doctor withholds from booking.
type BlockInput struct {
	Date      string
	StartTime string
	EndTime   string
	Reason    string
}

// PatientSummary is one patient seen by a doctor.
type PatientSummary struct {
	ID   string `json:"patientId"`
	Name string `json:"patientName"`
}

// DashboardStats summarizes a doctor's calendar.
type DashboardStats struct {
	Today     int64 `json:"today"`
	Upcoming  int64 `json:"upcoming"`
	Completed int64 `json:"completed"`
}

func validateSlot(date, start, end string) error {
	if !ValidDate(date) {
		return apperr.Validation("Invalid date")
	}
	if !ValidTime(start) || !ValidTime(end) {
		return apperr.Validation("Invalid time")
	}
	if start >= end {
		return apperr.Validation("Start time must be before end time")
	}
	return nil
}

// Create books a requested appointment for patientID.
func (s *Service) Create(ctx context.Context, patientID string, in CreateInput) (*models.Appointment, error) {
	if strings.TrimSpace(in.DoctorID) == "" {
		return nil, apperr.Validation("Doctor ID required")
	}
	if err := validateSlot(in.Date, in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	recurrence := in.RecurrenceType
	if recurrence == "" {
		recurrence = models.RecurrenceNone
	}
	if recurrence != models.RecurrenceNone && recurrence != models.RecurrenceWeekly {
		return nil, apperr.Validation("Invalid recurrence type")
	}

	doctor, err := s.dir.FindUser(ctx, in.DoctorID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	patientName := displayName(ctx, s.dir, patientID, models.RolePatient, placeholderPatient)
	doctorName := doctor.DisplayName()
	if doctorName == "" {
		doctorName = placeholderDoctor
	}

	appt := &models.Appointment{
		PatientID:       &patientID,
		PatientName:     patientName,
		DoctorID:        doctor.ID,
		DoctorName:      doctorName,
		AppointmentDate: in.Date,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Status:          models.StatusRequested,
		Reason:          in.Reason,
		IsRecurring:     in.IsRecurring,
		RecurrenceType:  recurrence,
		Origin:          models.OriginDirect,
		CreatedBy:       models.RolePatient,
	}
	key := SlotKey{DoctorID: doctor.ID, Date: in.Date}
	err = s.repo.WithSlotLock(ctx, []SlotKey{key}, func(tx Repository) error {
		if err := s.ensureAvailable(ctx, tx, key, in.StartTime, in.EndTime, ""); err != nil {
			return err
		}
		return tx.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("appointment_id", appt.ID).Str("doctor_id", doctor.ID).
		Str("date", in.Date).Msg("appointment requested")
	s.notifier.Notify(doctor.Email, "New Appointment Request", appointmentFields(appt,
		"New Appointment", "You have a new appointment request."))
	return appt, nil
}

// UpdateStatus moves an appointment owned by doctorID to status.
func (s *Service) UpdateStatus(ctx context.Context, doctorID, id string, status models.AppointmentStatus) error {
	if !doctorSettable[status] {
		return apperr.Validation("Invalid status")
	}
	appt, err := s.ownedByDoctor(ctx, doctorID, id)
	if err != nil {
		return err
	}
	if err := checkTransition(appt.Status, status); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, appt.Status, map[string]any{"status": status}); err != nil {
		return err
	}

	appt.Status = status
	s.notifyPatient(ctx, appt, "Appointment "+string(status), "Appointment Update",
		"Your appointment is now "+string(status)+".")
	return nil
}

// AttachReport stores a clinical report and completes the appointment.
func (s *Service) AttachReport(ctx context.Context, doctorID, id, report string) error {
	if strings.TrimSpace(report) == "" {
		return apperr.Validation("Report required")
	}
	appt, err := s.ownedByDoctor(ctx, doctorID, id)
	if err != nil {
		return err
	}
	if appt.Status != models.StatusCompleted {
		if err := checkTransition(appt.Status, models.StatusCompleted); err != nil {
			return err
		}
	}
	return s.repo.Update(ctx, id, appt.Status, map[string]any{
		"report": report,
		"status": models.StatusCompleted,
	})
}

// Reschedule moves an appointment to a new slot. The successor is created and
// the original retired in one transaction.
func (s *Service) Reschedule(ctx context.Context, doctorID, id string, in RescheduleInput) (*models.Appointment, error) {
	if err := validateSlot(in.Date, in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	orig, err := s.ownedByDoctor(ctx, doctorID, id)
	if err != nil {
		return nil, err
	}
	if err := checkTransition(orig.Status, models.StatusRescheduled); err != nil {
		return nil, err
	}

	origID := orig.ID
	var succ *models.Appointment
	target := SlotKey{DoctorID: orig.DoctorID, Date: in.Date}
	keys := []SlotKey{{DoctorID: orig.DoctorID, Date: orig.AppointmentDate}, target}
	err = s.repo.WithSlotLock(ctx, keys, func(tx Repository) error {
		cur, err := tx.Get(ctx, origID)
		if err != nil {
			return err
		}
		if cur.Status != orig.Status {
			return apperr.Conflict("Appointment was modified concurrently")
		}
		if err := s.ensureAvailable(ctx, tx, target, in.StartTime, in.EndTime, origID); err != nil {
			return err
		}

		succ = derive(cur, in.Date, models.OriginReschedule)
		succ.StartTime = in.StartTime
		succ.EndTime = in.EndTime
		succ.RescheduledFrom = &origID
		if err := tx.Create(ctx, succ); err != nil {
			return err
		}
		return tx.Update(ctx, origID, cur.Status, map[string]any{
			"status":         models.StatusRescheduled,
			"rescheduled_to": succ.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("appointment_id", origID).Str("successor_id", succ.ID).Msg("appointment rescheduled")
	s.notifyPatient(ctx, succ, "Appointment Rescheduled", "Appointment Rescheduled",
		"Your appointment has been moved to a new time.")
	return succ, nil
}

// GenerateWeekly creates the next weekly instance of a recurring appointment.
func (s *Service) GenerateWeekly(ctx context.Context, doctorID, sourceID string) (*models.Appointment, error) {
	src, err := s.ownedByDoctor(ctx, doctorID, sourceID)
	if err != nil {
		return nil, err
	}
	if !src.IsRecurring || src.RecurrenceType != models.RecurrenceWeekly {
		return nil, apperr.Validation("Not weekly recurring")
	}
	next, err := NextWeekly(src.AppointmentDate)
	if err != nil {
		return nil, apperr.Validation("Invalid date")
	}

	inst := derive(src, next, models.OriginRecurrence)
	key := SlotKey{DoctorID: src.DoctorID, Date: next}
	err = s.repo.WithSlotLock(ctx, []SlotKey{key}, func(tx Repository) error {
		if err := s.ensureAvailable(ctx, tx, key, inst.StartTime, inst.EndTime, ""); err != nil {
			return err
		}
		return tx.Create(ctx, inst)
	})
	if err != nil {
		return nil, err
	}

	s.notifyPatient(ctx, inst, "Recurring Appointment Scheduled", "Next Appointment",
		"Your next weekly appointment has been scheduled.")
	return inst, nil
}

// BlockCalendar withholds a range on the doctor's calendar.
func (s *Service) BlockCalendar(ctx context.Context, doctorID string, in BlockInput) (*models.Appointment, error) {
	if err := validateSlot(in.Date, in.StartTime, in.EndTime); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = defaultBlockReason
	}

	block := &models.Appointment{
		DoctorID:        doctorID,
		DoctorName:      displayName(ctx, s.dir, doctorID, models.RoleDoctor, placeholderDoctor),
		AppointmentDate: in.Date,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Status:          models.StatusBlocked,
		Reason:          reason,
		RecurrenceType:  models.RecurrenceNone,
		Origin:          models.OriginBlock,
		CreatedBy:       models.RoleDoctor,
	}
	key := SlotKey{DoctorID: doctorID, Date: in.Date}
	err := s.repo.WithSlotLock(ctx, []SlotKey{key}, func(tx Repository) error {
		if err := s.ensureAvailable(ctx, tx, key, in.StartTime, in.EndTime, ""); err != nil {
			return err
		}
		return tx.Create(ctx, block)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// CheckAvailability is the advisory availability read.
func (s *Service) CheckAvailability(ctx context.Context, doctorID, date, start, end string) (bool, error) {
	if strings.TrimSpace(doctorID) == "" {
		return false, apperr.Validation("Doctor ID required")
	}
	if err := validateSlot(date, start, end); err != nil {
		return false, err
	}
	return retryRead(ctx, s.readAttempts, s.readBackoff, func(ctx context.Context) (bool, error) {
		return IsAvailable(ctx, s.repo, doctorID, date, start, end)
	})
}

// Get returns one appointment visible to callerID.
func (s *Service) Get(ctx context.Context, callerID, id string) (*models.Appointment, error) {
	appt, err := retryRead(ctx, s.readAttempts, s.readBackoff, func(ctx context.Context) (*models.Appointment, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != callerID && (appt.PatientID == nil || *appt.PatientID != callerID) {
		return nil, apperr.Forbidden("Not your appointment")
	}
	return appt, nil
}

// ListForDoctorByDate returns the doctor's requested and approved
// appointments on date, earliest first.
func (s *Service) ListForDoctorByDate(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	if !ValidDate(date) {
		return nil, apperr.Validation("Invalid date")
	}
	appts, err := retryRead(ctx, s.readAttempts, s.readBackoff, func(ctx context.Context) ([]models.Appointment, error) {
		return s.repo.ListByDoctorDate(ctx, doctorID, date)
	})
	if err != nil {
		return nil, err
	}
	s.enrichPatients(ctx, appts)
	return appts, nil
}

// ListForDoctorByStatus returns the doctor's completed or cancelled
// appointments, newest date first.
func (s *Service) ListForDoctorByStatus(ctx context.Context, doctorID string, status models.AppointmentStatus) ([]models.Appointment, error) {
	if !historyStatuses[status] {
		return nil, apperr.Validation("Invalid status")
	}
	appts, err := retryRead(ctx, s.readAttempts, s.readBackoff, func(ctx context.Context) ([]models.Appointment, error) {
		return s.repo.ListByDoctorStatus(ctx, doctorID, status)
	})
	if err != nil {
		return nil, err
	}
	s.enrichPatients(ctx, appts)
	return appts, nil
}

// ListForPatient returns the patient's upcoming appointments in date order.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	appts, err := retryRead(ctx, s.readAttempts, s.readBackoff, func(ctx context.Context) ([]models.Appointment, error) {
		return s.repo.ListByPatient(ctx, patientID)
	})
	if err != nil {
		return nil, err
	}
	s.enrichDoctors(ctx, appts)
	return appts, nil
}

// PatientsOfDoctor lists every patient who ever booked with doctorID.
func (s *Service) PatientsOfDoctor(ctx context.Context, doctorID string) ([]PatientSummary, error) {
	ids, err := retryRead(ctx, s.readAttempts, s.readBackoff, func(ctx context.Context) ([]string, error) {
		return s.repo.ListPatientsOfDoctor(ctx, doctorID)
	})
	if err != nil {
		return nil, err
	}
	names := s.resolveNames(ctx, ids, models.RolePatient, placeholderPatient)
	out := make([]PatientSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, PatientSummary{ID: id, Name: names[id]})
	}
	return out, nil
}

// Dashboard counts today's, upcoming and completed appointments.
func (s *Service) Dashboard(ctx context.Context, doctorID string) (DashboardStats, error) {
	today := s.now().Format(dateLayout)
	filters := []CountFilter{
		{Date: today, Statuses: []models.AppointmentStatus{
			models.StatusRequested, models.StatusApproved, models.StatusCompleted,
		}},
		{Statuses: UpcomingStatuses},
		{Statuses: []models.AppointmentStatus{models.StatusCompleted}},
	}
	counts := make([]int64, len(filters))
	for i, f := range filters {
		n, err := retryRead(ctx, s.readAttempts, s.readBackoff, func(ctx context.Context) (int64, error) {
			return s.repo.CountByDoctor(ctx, doctorID, f)
		})
		if err != nil {
			return DashboardStats{}, err
		}
		counts[i] = n
	}
	return DashboardStats{Today: counts[0], Upcoming: counts[1], Completed: counts[2]}, nil
}

func (s *Service) ownedByDoctor(ctx context.Context, doctorID, id string) (*models.Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("Appointment ID required")
	}
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.DoctorID != doctorID {
		return nil, apperr.Forbidden("Not your appointment")
	}
	return appt, nil
}

func (s *Service) ensureAvailable(ctx context.Context, tx Repository, key SlotKey, start, end, exclude string) error {
	ok, err := IsAvailableExcluding(ctx, tx, key.DoctorID, key.Date, start, end, exclude)
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info().Str("doctor_id", key.DoctorID).Str("date", key.Date).
			Str("start", start).Str("end", end).Msg("slot conflict")
		return apperr.SlotUnavailable("Time slot not available")
	}
	return nil
}

// derive copies the booking fields of src into a fresh requested record.
func derive(src *models.Appointment, date string, origin models.Origin) *models.Appointment {
	parent := src.ID
	return &models.Appointment{
		PatientID:           src.PatientID,
		PatientName:         src.PatientName,
		DoctorID:            src.DoctorID,
		DoctorName:          src.DoctorName,
		AppointmentDate:     date,
		StartTime:           src.StartTime,
		EndTime:             src.EndTime,
		Status:              models.StatusRequested,
		Reason:              src.Reason,
		IsRecurring:         src.IsRecurring,
		RecurrenceType:      src.RecurrenceType,
		Origin:              origin,
		ParentAppointmentID: &parent,
		CreatedBy:           src.CreatedBy,
	}
}

func (s *Service) enrichPatients(ctx context.Context, appts []models.Appointment) {
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		if a.PatientID != nil {
			ids = append(ids, *a.PatientID)
		}
	}
	names := s.resolveNames(ctx, ids, models.RolePatient, placeholderPatient)
	for i := range appts {
		if appts[i].PatientID != nil {
			appts[i].PatientName = names[*appts[i].PatientID]
		}
	}
}

func (s *Service) enrichDoctors(ctx context.Context, appts []models.Appointment) {
	ids := make([]string, 0, len(appts))
	for _, a := range appts {
		ids = append(ids, a.DoctorID)
	}
	names := s.resolveNames(ctx, ids, models.RoleDoctor, placeholderDoctor)
	for i := range appts {
		appts[i].DoctorName = names[appts[i].DoctorID]
	}
}

// resolveNames looks up each distinct id once, a few at a time.
func (s *Service) resolveNames(ctx context.Context, ids []string, role models.Role, fallback string) map[string]string {
	names := make(map[string]string, len(ids))
	distinct := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, seen := names[id]; seen {
			continue
		}
		names[id] = fallback
		distinct = append(distinct, id)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, id := range distinct {
		g.Go(func() error {
			name := displayName(gctx, s.dir, id, role, fallback)
			mu.Lock()
			names[id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return names
}

func (s *Service) notifyPatient(ctx context.Context, appt *models.Appointment, subject, title, message string) {
	if appt.PatientID == nil {
		return
	}
	patient, err := s.dir.FindUser(ctx, *appt.PatientID, models.RolePatient)
	if err != nil {
		s.log.Warn().Err(err).Str("appointment_id", appt.ID).Msg("skipping patient notification")
		return
	}
	s.notifier.Notify(patient.Email, subject, appointmentFields(appt, title, message))
}

func appointmentFields(appt *models.Appointment, title, message string) map[string]string {
	return map[string]string{
		"title":           title,
		"message":         message,
		"doctorName":      appt.DoctorName,
		"patientName":     appt.PatientName,
		"appointmentDate": appt.AppointmentDate,
		"startTime":       appt.StartTime,
		"endTime":         appt.EndTime,
		"status":          string(appt.Status),
	}
}
