package scheduling

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/models"
)

// slowDirectory answers "A" at once and every other id after a delay.
type slowDirectory struct {
	delay time.Duration
	calls atomic.Int32
}

func (d *slowDirectory) FindUser(_ context.Context, id string, _ models.Role) (*models.User, error) {
	d.calls.Add(1)
	if id != "A" {
		time.Sleep(d.delay)
	}
	if id == "missing" {
		return nil, apperr.NotFound("patient not found")
	}
	return &models.User{FirstName: "Name", LastName: id}, nil
}

func TestResolveNames_RepeatedIDKeepsResolvedName(t *testing.T) {
	dir := &slowDirectory{delay: 50 * time.Millisecond}
	svc := NewService(nil, dir, nil, zerolog.Nop())

	names := svc.resolveNames(context.Background(), []string{"A", "X1", "X2", "X3", "X4", "A"}, models.RolePatient, placeholderPatient)

	assert.Equal(t, "Name A", names["A"])
	assert.Equal(t, "Name X4", names["X4"])
	assert.Len(t, names, 5)
	assert.EqualValues(t, 5, dir.calls.Load(), "each distinct id is looked up once")
}

func TestResolveNames_FallsBackPerID(t *testing.T) {
	dir := &slowDirectory{}
	svc := NewService(nil, dir, nil, zerolog.Nop())

	names := svc.resolveNames(context.Background(), []string{"A", "missing", "", "A"}, models.RolePatient, placeholderPatient)

	assert.Equal(t, map[string]string{
		"A":       "Name A",
		"missing": placeholderPatient,
		"":        placeholderPatient,
	}, names)
}
