package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// User represents a doctor or patient account.
type User struct {
	BaseModel
	Email            string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Phone            string `gorm:"uniqueIndex;size:20;not null" json:"phone"`
	Password         string `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName        string `gorm:"size:100" json:"firstName"`
	MiddleName       string `gorm:"size:100" json:"middleName"`
	LastName         string `gorm:"size:100" json:"lastName"`
	Gender           string `gorm:"size:20" json:"gender"`
	Role             Role   `gorm:"size:20;index;not null" json:"role"`
	Specialisation   string `gorm:"size:100" json:"specialisation,omitempty"`
	DateOfBirth      string `gorm:"size:10" json:"dob,omitempty"`
	Age              int    `json:"age,omitempty"`
	Address          string `json:"address,omitempty"`
	ProfilePicture   string `json:"profilePicture,omitempty"`
	ProfileCompleted bool   `gorm:"default:false" json:"profileCompleted"`

	// Doctor availability, e.g. {"mon": ["10:00-13:00"]}.
	WeeklySchedule map[string][]string `gorm:"serializer:json" json:"weeklySchedule,omitempty"`
	SlotDuration   int                 `json:"slotDuration,omitempty"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID               string              `json:"uid"`
	Email            string              `json:"email"`
	Phone            string              `json:"phone"`
	FirstName        string              `json:"firstName"`
	MiddleName       string              `json:"middleName,omitempty"`
	LastName         string              `json:"lastName"`
	Gender           string              `json:"gender,omitempty"`
	Role             Role                `json:"role"`
	Specialisation   string              `json:"specialisation,omitempty"`
	DateOfBirth      string              `json:"dob,omitempty"`
	Age              int                 `json:"age,omitempty"`
	Address          string              `json:"address,omitempty"`
	ProfilePicture   string              `json:"profilePicture,omitempty"`
	ProfileCompleted bool                `json:"profileCompleted"`
	WeeklySchedule   map[string][]string `json:"weeklySchedule,omitempty"`
	SlotDuration     int                 `json:"slotDuration,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// DisplayName is "First Last", trimmed. Empty when neither is set.
func (u *User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:               u.ID,
		Email:            u.Email,
		Phone:            u.Phone,
		FirstName:        u.FirstName,
		MiddleName:       u.MiddleName,
		LastName:         u.LastName,
		Gender:           u.Gender,
		Role:             u.Role,
		Specialisation:   u.Specialisation,
		DateOfBirth:      u.DateOfBirth,
		Age:              u.Age,
		Address:          u.Address,
		ProfilePicture:   u.ProfilePicture,
		ProfileCompleted: u.ProfileCompleted,
		WeeklySchedule:   u.WeeklySchedule,
		SlotDuration:     u.SlotDuration,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}
