package models

import "time"

// EmailOTP holds the pending password-reset code state for one email address.
// Secret seeds the TOTP generator; the code itself is never stored.
type EmailOTP struct {
	Email     string    `gorm:"primaryKey;size:255"`
	Role      Role      `gorm:"size:20;not null"`
	Secret    string    `gorm:"size:64;not null"`
	IssuedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
	Attempts  int       `gorm:"default:0"`
}
