package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telehealth-server/internal/apperr"
)

// storeContext bounds a handler's database work by timeout. Zero disables it.
func storeContext(c *gin.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

// lookupError turns a First() error into NotFound(msg) or a dependency failure.
func lookupError(op string, err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return apperr.Dependency(op, err)
}
