package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/config"
	"telehealth-server/internal/models"
	"telehealth-server/internal/utils"
)

// OTPMailer delivers a password reset code.
type OTPMailer interface {
	SendOTP(ctx context.Context, to, code string, validFor time.Duration) error
}

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer OTPMailer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, mailer OTPMailer) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, Mailer: mailer}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	MiddleName     string `json:"middleName"`
	LastName       string `json:"lastName"`
	Phone          string `json:"phone" binding:"required,phone"`
	Email          string `json:"email" binding:"required,email"`
	Gender         string `json:"gender"`
	Password       string `json:"password" binding:"required,password"`
	Specialisation string `json:"specialisation"`
}

// RegisterPatient creates a patient account.
func (h *AuthHandler) RegisterPatient(c *gin.Context) {
	h.register(c, models.RolePatient)
}

// RegisterDoctor creates a doctor account. Doctors must name a specialisation.
func (h *AuthHandler) RegisterDoctor(c *gin.Context) {
	h.register(c, models.RoleDoctor)
}

func (h *AuthHandler) register(c *gin.Context, role models.Role) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if role == models.RoleDoctor && strings.TrimSpace(req.Specialisation) == "" {
		utils.BadRequest(c, "Invalid request payload: specialisation is required")
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := utils.E164Phone(req.Phone)

	var existing models.User
	err := h.DB.WithContext(ctx).Where("email = ? OR phone = ?", email, phone).First(&existing).Error
	if err == nil {
		utils.RespondError(c, apperr.Conflict("User with this email or phone already exists"))
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, apperr.Dependency("check existing user", err))
		return
	}

	user := models.User{
		FirstName:  strings.TrimSpace(req.FirstName),
		MiddleName: req.MiddleName,
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      phone,
		Email:      email,
		Gender:     req.Gender,
		Role:       role,
	}
	if role == models.RoleDoctor {
		user.Specialisation = strings.TrimSpace(req.Specialisation)
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.RespondError(c, err)
		return
	}

	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		utils.RespondError(c, apperr.Dependency("create user", err))
		return
	}

	utils.Created(c, "User registered successfully", gin.H{"uid": user.ID})
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges a phone number and password for an access token. The
// token's role is the one stored on the account.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if !utils.ValidPhone(req.Phone) {
		utils.BadRequest(c, "Invalid phone")
		return
	}

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var user models.User
	if err := h.DB.WithContext(ctx).Where("phone = ?", utils.E164Phone(req.Phone)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid phone or password")
		} else {
			utils.RespondError(c, apperr.Dependency("load user", err))
		}
		return
	}

	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Invalid phone or password")
		return
	}

	token, err := utils.GenerateAccessToken(&user, h.Cfg)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.Success(c, "Login successful", gin.H{
		"uid":   user.ID,
		"token": token,
		"user":  user.Sanitize(),
	})
}

// SendOTPRequest names the account whose password is being reset.
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SendOTP issues a fresh reset code and emails it. Unknown addresses get the
// same response so the endpoint does not reveal which emails are registered.
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(c, "OTP sent", nil)
		} else {
			utils.RespondError(c, apperr.Dependency("load user", err))
		}
		return
	}

	secret, err := utils.NewOTPSecret(email)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	now := time.Now()
	code, err := utils.OTPCode(secret, now)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	record := models.EmailOTP{
		Email:     email,
		Role:      user.Role,
		Secret:    secret,
		IssuedAt:  now,
		ExpiresAt: now.Add(h.Cfg.OTPExpiry),
	}
	err = h.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "secret", "issued_at", "expires_at", "attempts"}),
	}).Create(&record).Error
	if err != nil {
		utils.RespondError(c, apperr.Dependency("store otp", err))
		return
	}

	if err := h.Mailer.SendOTP(c.Request.Context(), email, code, h.Cfg.OTPExpiry); err != nil {
		utils.RespondError(c, apperr.Dependency("send otp", err))
		return
	}
	utils.Success(c, "OTP sent", nil)
}

// VerifyOTPRequest carries the emailed code and the replacement password.
type VerifyOTPRequest struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// VerifyOTP checks a reset code and, when it matches, replaces the password.
// A code is single use and dies after OTPMaxAttempts wrong guesses.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := storeContext(c, h.Cfg.StoreTimeout)
	defer cancel()
	db := h.DB.WithContext(ctx)

	var record models.EmailOTP
	if err := db.Where("email = ?", email).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.BadRequest(c, "OTP not found")
		} else {
			utils.RespondError(c, apperr.Dependency("load otp", err))
		}
		return
	}

	if time.Now().After(record.ExpiresAt) {
		db.Delete(&record)
		utils.BadRequest(c, "OTP expired")
		return
	}
	if h.Cfg.OTPMaxAttempts > 0 && record.Attempts >= h.Cfg.OTPMaxAttempts {
		db.Delete(&record)
		utils.BadRequest(c, "Too many attempts")
		return
	}
	if !utils.CheckOTP(req.OTP, record.Secret, record.IssuedAt) {
		db.Model(&record).Update("attempts", gorm.Expr("attempts + 1"))
		utils.BadRequest(c, "Invalid OTP")
		return
	}
	if !utils.StrongPassword(req.NewPassword) {
		utils.BadRequest(c, "Weak password")
		return
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		utils.RespondError(c, lookupError("load user", err, "User not found"))
		return
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		utils.RespondError(c, err)
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password", user.Password).Error; err != nil {
			return err
		}
		return tx.Delete(&record).Error
	})
	if err != nil {
		utils.RespondError(c, apperr.Dependency("reset password", err))
		return
	}
	utils.Success(c, "Password reset successfully", nil)
}
