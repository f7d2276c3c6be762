package handlers

import (
	"github.com/gin-gonic/gin"

	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/scheduling"
	"telehealth-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Scheduler *scheduling.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(scheduler *scheduling.Service) *AppointmentHandler {
	return &AppointmentHandler{Scheduler: scheduler}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	DoctorID        string                `json:"doctorId" binding:"required"`
	AppointmentDate string                `json:"appointmentDate" binding:"required,ymd"`
	StartTime       string                `json:"startTime" binding:"required,hhmm"`
	EndTime         string                `json:"endTime" binding:"required,hhmm"`
	Reason          string                `json:"reason"`
	IsRecurring     bool                  `json:"isRecurring"`
	RecurrenceType  models.RecurrenceType `json:"recurrenceType" binding:"omitempty,oneof=none weekly"`
}

// CreateAppointment books a slot for the calling patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.Scheduler.Create(c.Request.Context(), caller.ID, scheduling.CreateInput{
		DoctorID:       req.DoctorID,
		Date:           req.AppointmentDate,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Reason:         req.Reason,
		IsRecurring:    req.IsRecurring,
		RecurrenceType: req.RecurrenceType,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Appointment requested", gin.H{"appointmentId": appt.ID})
}

// AvailabilityQuery is the query string of CheckAvailability.
type AvailabilityQuery struct {
	DoctorID  string `form:"doctorId" binding:"required"`
	Date      string `form:"date" binding:"required,ymd"`
	StartTime string `form:"startTime" binding:"required,hhmm"`
	EndTime   string `form:"endTime" binding:"required,hhmm"`
}

// CheckAvailability reports whether a slot is currently free. The answer is
// advisory; CreateAppointment re-checks under lock.
func (h *AppointmentHandler) CheckAvailability(c *gin.Context) {
	if _, err := middleware.ResolveCaller(c, models.RolePatient, models.RoleDoctor); err != nil {
		utils.RespondError(c, err)
		return
	}
	var q AvailabilityQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	available, err := h.Scheduler.CheckAvailability(c.Request.Context(), q.DoctorID, q.Date, q.StartTime, q.EndTime)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "", gin.H{"available": available})
}

// GetDoctorAppointmentsByDate lists the doctor's upcoming appointments on ?date=.
func (h *AppointmentHandler) GetDoctorAppointmentsByDate(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	appts, err := h.Scheduler.ListForDoctorByDate(c.Request.Context(), caller.ID, c.Query("date"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "", gin.H{"appointments": appts})
}

// GetDoctorAppointmentsByStatus lists completed or cancelled appointments.
func (h *AppointmentHandler) GetDoctorAppointmentsByStatus(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	status := models.AppointmentStatus(c.Query("status"))
	appts, err := h.Scheduler.ListForDoctorByStatus(c.Request.Context(), caller.ID, status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "", gin.H{"appointments": appts})
}

// GetPatientAppointments lists the calling patient's upcoming appointments.
func (h *AppointmentHandler) GetPatientAppointments(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	appts, err := h.Scheduler.ListForPatient(c.Request.Context(), caller.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "", gin.H{"appointments": appts})
}

// GetAppointmentByID returns one appointment to its doctor or patient.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RolePatient, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	appt, err := h.Scheduler.Get(c.Request.Context(), caller.ID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "", gin.H{"appointment": appt})
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
}

// UpdateAppointmentStatus approves, completes or cancels an appointment.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := h.Scheduler.UpdateStatus(c.Request.Context(), caller.ID, c.Param("id"), req.Status); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Status updated", nil)
}

// AddReportRequest carries the clinical report for an appointment.
type AddReportRequest struct {
	Report string `json:"report"`
}

// AddAppointmentReport attaches a report and completes the appointment.
func (h *AppointmentHandler) AddAppointmentReport(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req AddReportRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := h.Scheduler.AttachReport(c.Request.Context(), caller.ID, c.Param("id"), req.Report); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Report added", nil)
}

// RescheduleAppointmentRequest represents the request body for rescheduling an appointment.
type RescheduleAppointmentRequest struct {
	NewDate      string `json:"newDate" binding:"required,ymd"`
	NewStartTime string `json:"newStartTime" binding:"required,hhmm"`
	NewEndTime   string `json:"newEndTime" binding:"required,hhmm"`
}

// RescheduleAppointment moves an appointment to a new slot.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	succ, err := h.Scheduler.Reschedule(c.Request.Context(), caller.ID, c.Param("id"), scheduling.RescheduleInput{
		Date:      req.NewDate,
		StartTime: req.NewStartTime,
		EndTime:   req.NewEndTime,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Appointment rescheduled", gin.H{"newAppointmentId": succ.ID})
}

// GenerateWeeklyAppointment creates next week's instance of a recurring appointment.
func (h *AppointmentHandler) GenerateWeeklyAppointment(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	next, err := h.Scheduler.GenerateWeekly(c.Request.Context(), caller.ID, c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "", gin.H{"appointmentId": next.ID, "appointmentDate": next.AppointmentDate})
}

// BlockCalendarRequest is a range the doctor withholds from booking.
type BlockCalendarRequest struct {
	Date      string `json:"date" binding:"required,ymd"`
	StartTime string `json:"startTime" binding:"required,hhmm"`
	EndTime   string `json:"endTime" binding:"required,hhmm"`
	Reason    string `json:"reason"`
}

// BlockDoctorCalendar reserves time on the calling doctor's calendar.
func (h *AppointmentHandler) BlockDoctorCalendar(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req BlockCalendarRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	block, err := h.Scheduler.BlockCalendar(c.Request.Context(), caller.ID, scheduling.BlockInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    req.Reason,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Created(c, "Calendar blocked", gin.H{"blockId": block.ID})
}

// GetDoctorPatients lists every patient who booked with the calling doctor.
func (h *AppointmentHandler) GetDoctorPatients(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	patients, err := h.Scheduler.PatientsOfDoctor(c.Request.Context(), caller.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "", gin.H{"patients": patients})
}

// GetDoctorDashboard returns today's, upcoming and completed counts.
func (h *AppointmentHandler) GetDoctorDashboard(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	stats, err := h.Scheduler.Dashboard(c.Request.Context(), caller.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "", gin.H{"stats": stats})
}
