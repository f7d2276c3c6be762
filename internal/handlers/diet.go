package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/config"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/scheduling"
	"telehealth-server/internal/utils"
)

// DietHandler handles weekly diet plans.
type DietHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewDietHandler creates a new DietHandler.
func NewDietHandler(db *gorm.DB, cfg *config.Config) *DietHandler {
	return &DietHandler{DB: db, Cfg: cfg}
}

// findPlan returns the patient's plan, or nil when none has been saved.
func findPlan(db *gorm.DB, patientID string) (*models.DietPlan, error) {
	var plan models.DietPlan
	err := db.Where("patient_id = ?", patientID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Dependency("load diet plan", err)
	}
	return &plan, nil
}

// SaveDietPlanRequest is a full weekly plan for one patient.
type SaveDietPlanRequest struct {
	PatientID  string            `json:"patientId" binding:"required"`
	WeeklyDiet models.WeeklyDiet `json:"weeklyDiet" binding:"required"`
}

// SaveDietPlan creates or replaces a patient's plan and clears its progress.
// A plan written by another doctor cannot be overwritten.
func (h *DietHandler) SaveDietPlan(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req SaveDietPlanRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	for _, day := range models.DietDays {
		if _, ok := req.WeeklyDiet[day]; !ok {
			utils.BadRequest(c, "Missing day: "+day)
			return
		}
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var patient models.User
	err = h.DB.WithContext(ctx).Where("id = ? AND role = ?", req.PatientID, models.RolePatient).First(&patient).Error
	if err != nil {
		utils.RespondError(c, lookupError("load patient", err, "Patient not found"))
		return
	}

	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findPlan(tx.Clauses(clause.Locking{Strength: "UPDATE"}), patient.ID)
		if err != nil {
			return err
		}
		if existing != nil && existing.DoctorID != caller.ID {
			return apperr.Forbidden("Not your patient diet")
		}
		plan := models.DietPlan{
			PatientID:    patient.ID,
			DoctorID:     caller.ID,
			WeeklyDiet:   req.WeeklyDiet,
			WeeklyStatus: models.EmptyWeeklyStatus(),
		}
		if existing != nil {
			plan.CreatedAt = existing.CreatedAt
		}
		return tx.Save(&plan).Error
	})
	if err != nil {
		utils.RespondError(c, apperr.Dependency("save diet plan", err))
		return
	}
	utils.Success(c, "Diet plan saved successfully", nil)
}

// GetDietForDoctor returns ?patientId='s plan to the doctor who wrote it.
func (h *DietHandler) GetDietForDoctor(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	patientID := c.Query("patientId")
	if patientID == "" {
		utils.BadRequest(c, "patientId required")
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	plan, err := findPlan(h.DB.WithContext(ctx), patientID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if plan == nil {
		utils.Success(c, "", gin.H{"diet": nil})
		return
	}
	if plan.DoctorID != caller.ID {
		utils.RespondError(c, apperr.Forbidden("Not your patient diet"))
		return
	}
	utils.Success(c, "", gin.H{"diet": plan.WeeklyDiet, "status": plan.WeeklyStatus})
}

// GetDietForPatient returns the caller's own plan.
func (h *DietHandler) GetDietForPatient(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	plan, err := findPlan(h.DB.WithContext(ctx), caller.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if plan == nil {
		utils.Success(c, "", gin.H{"diet": nil})
		return
	}
	utils.Success(c, "", gin.H{"diet": plan.WeeklyDiet, "status": plan.WeeklyStatus})
}

// UpdateDietStatusRequest ticks or unticks one meal slot.
type UpdateDietStatusRequest struct {
	Day       string `json:"day" binding:"required"`
	Slot      string `json:"slot" binding:"required"`
	Completed *bool  `json:"completed" binding:"required"`
}

// UpdateDietStatus records the patient's progress on one slot.
func (h *DietHandler) UpdateDietStatus(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req UpdateDietStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !models.IsDietDay(req.Day) || !models.IsDietSlot(req.Slot) {
		utils.BadRequest(c, "Invalid day or slot")
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	err = h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan, err := findPlan(tx.Clauses(clause.Locking{Strength: "UPDATE"}), caller.ID)
		if err != nil {
			return err
		}
		if plan == nil {
			return apperr.NotFound("Diet plan not found")
		}
		if plan.WeeklyStatus == nil {
			plan.WeeklyStatus = models.EmptyWeeklyStatus()
		}
		if plan.WeeklyStatus[req.Day] == nil {
			plan.WeeklyStatus[req.Day] = map[string]bool{}
		}
		plan.WeeklyStatus[req.Day][req.Slot] = *req.Completed
		return tx.Model(plan).Select("weekly_status", "updated_at").Updates(plan).Error
	})
	if err != nil {
		utils.RespondError(c, apperr.Dependency("update diet status", err))
		return
	}
	utils.Success(c, "Diet status updated", nil)
}

// GetDietStatus returns the progress grid. Patients see their own; doctors
// pass ?patientId= and must own the plan.
func (h *DietHandler) GetDietStatus(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor, models.RolePatient)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	patientID := caller.ID
	if caller.Role == models.RoleDoctor {
		patientID = c.Query("patientId")
		if patientID == "" {
			utils.BadRequest(c, "patientId required")
			return
		}
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	plan, err := findPlan(h.DB.WithContext(ctx), patientID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if plan == nil {
		utils.Success(c, "", gin.H{"weeklyStatus": models.WeeklyStatus{}})
		return
	}
	if caller.Role == models.RoleDoctor && plan.DoctorID != caller.ID {
		utils.RespondError(c, apperr.Forbidden("Not your patient diet"))
		return
	}
	utils.Success(c, "", gin.H{"weeklyStatus": plan.WeeklyStatus})
}

// GetDoctorDietPatients lists patients the doctor has a chat with, most
// recently active first.
func (h *DietHandler) GetDoctorDietPatients(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var chats []models.Chat
	err = h.DB.WithContext(ctx).
		Where("doctor_id = ?", caller.ID).
		Order("updated_at desc, id asc").
		Find(&chats).Error
	if err != nil {
		utils.RespondError(c, apperr.Dependency("list chats", err))
		return
	}

	seen := make(map[string]bool, len(chats))
	patients := make([]scheduling.PatientSummary, 0, len(chats))
	for _, chat := range chats {
		if seen[chat.PatientID] {
			continue
		}
		seen[chat.PatientID] = true
		patients = append(patients, scheduling.PatientSummary{ID: chat.PatientID, Name: chat.PatientName})
	}
	utils.Success(c, "", gin.H{"patients": patients})
}
