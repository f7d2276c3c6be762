package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/config"
	"telehealth-server/internal/middleware"
	"telehealth-server/internal/models"
	"telehealth-server/internal/scheduling"
	"telehealth-server/internal/utils"
)

var weekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true,
}

// UserHandler handles profile and doctor directory requests.
type UserHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, cfg *config.Config) *UserHandler {
	return &UserHandler{DB: db, Cfg: cfg}
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", caller.ID).Error; err != nil {
		utils.RespondError(c, lookupError("load profile", err, "User profile not found"))
		return
	}

	utils.Success(c, "", gin.H{"data": user.Sanitize()})
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	DateOfBirth    string `json:"dob" binding:"omitempty,ymd"`
	Age            int    `json:"age" binding:"omitempty,min=0,max=150"`
	Address        string `json:"address"`
	ProfilePicture string `json:"profilePicture" binding:"omitempty,url"`
}

// UpdateProfile completes the caller's profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RolePatient, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, "id = ?", caller.ID).Error; err != nil {
		utils.RespondError(c, lookupError("load profile", err, "User not found"))
		return
	}

	user.DateOfBirth = req.DateOfBirth
	user.Age = req.Age
	user.Address = strings.TrimSpace(req.Address)
	if caller.Role == models.RoleDoctor {
		user.ProfilePicture = req.ProfilePicture
	}
	user.ProfileCompleted = true

	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		utils.RespondError(c, apperr.Dependency("update profile", err))
		return
	}

	utils.Success(c, "Profile updated", gin.H{"data": user.Sanitize()})
}

// DoctorListing is the public view of a doctor.
type DoctorListing struct {
	UID            string `json:"uid"`
	Name           string `json:"name"`
	Specialisation string `json:"specialisation,omitempty"`
}

// GetDoctors lists every registered doctor.
func (h *UserHandler) GetDoctors(c *gin.Context) {
	if _, err := middleware.ResolveCaller(c); err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var doctors []models.User
	err := h.DB.WithContext(ctx).
		Where("role = ?", models.RoleDoctor).
		Order("first_name asc, last_name asc, id asc").
		Find(&doctors).Error
	if err != nil {
		utils.RespondError(c, apperr.Dependency("list doctors", err))
		return
	}

	listing := make([]DoctorListing, 0, len(doctors))
	for _, d := range doctors {
		listing = append(listing, DoctorListing{
			UID:            d.ID,
			Name:           d.DisplayName(),
			Specialisation: d.Specialisation,
		})
	}
	utils.Success(c, "", gin.H{"doctors": listing})
}

// GetDoctorProfile returns one doctor's public profile.
func (h *UserHandler) GetDoctorProfile(c *gin.Context) {
	if _, err := middleware.ResolveCaller(c); err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var doctor models.User
	err := h.DB.WithContext(ctx).
		Where("id = ? AND role = ?", c.Param("id"), models.RoleDoctor).
		First(&doctor).Error
	if err != nil {
		utils.RespondError(c, lookupError("load doctor", err, "Doctor not found"))
		return
	}
	utils.Success(c, "", gin.H{"data": doctor.Sanitize()})
}

// SetAvailabilityRequest is a doctor's recurring working hours.
type SetAvailabilityRequest struct {
	WeeklySchedule map[string][]string `json:"weeklySchedule" binding:"required"`
	SlotDuration   int                 `json:"slotDuration" binding:"required,min=5,max=240"`
}

// SetAvailability stores the caller's weekly schedule and slot length.
func (h *UserHandler) SetAvailability(c *gin.Context) {
	caller, err := middleware.ResolveCaller(c, models.RoleDoctor)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req SetAvailabilityRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if err := validateWeeklySchedule(req.WeeklySchedule); err != nil {
		utils.RespondError(c, err)
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	res := h.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND role = ?", caller.ID, models.RoleDoctor).
		Updates(&models.User{WeeklySchedule: req.WeeklySchedule, SlotDuration: req.SlotDuration})
	if res.Error != nil {
		utils.RespondError(c, apperr.Dependency("update availability", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondError(c, apperr.NotFound("Doctor not found"))
		return
	}
	utils.Success(c, "Availability updated", nil)
}

// validateWeeklySchedule accepts {"mon": ["10:00-13:00", ...], ...}.
func validateWeeklySchedule(schedule map[string][]string) error {
	for day, ranges := range schedule {
		if !weekdays[day] {
			return apperr.Validationf("Invalid weekday %q", day)
		}
		for _, r := range ranges {
			start, end, ok := strings.Cut(r, "-")
			if !ok || !scheduling.ValidTime(start) || !scheduling.ValidTime(end) || start >= end {
				return apperr.Validationf("Invalid time range %q for %s", r, day)
			}
		}
	}
	return nil
}
