package scheduling

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/models"
)

// Placeholders used when a counterpart's name cannot be resolved.
const (
	placeholderDoctor  = "Doctor"
	placeholderPatient = "Patient"
)

// Directory resolves user accounts referenced by appointments.
type Directory interface {
	FindUser(ctx context.Context, id string, role models.Role) (*models.User, error)
}

// GormDirectory reads users from the users table.
type GormDirectory struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormDirectory creates a Directory over db.
func NewGormDirectory(db *gorm.DB, timeout time.Duration) *GormDirectory {
	return &GormDirectory{db: db, timeout: timeout}
}

func (d *GormDirectory) FindUser(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	var user models.User
	err := d.db.WithContext(ctx).Where("id = ? AND role = ?", id, role).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound(string(role) + " not found")
		}
		return nil, apperr.Dependency("load "+string(role), err)
	}
	return &user, nil
}

// displayName returns the user's name, or fallback when the lookup fails for
// any reason. Errors never leave this function.
func displayName(ctx context.Context, dir Directory, id string, role models.Role, fallback string) string {
	if id == "" {
		return fallback
	}
	user, err := dir.FindUser(ctx, id, role)
	if err != nil || user == nil {
		return fallback
	}
	if name := user.DisplayName(); name != "" {
		return name
	}
	return fallback
}
