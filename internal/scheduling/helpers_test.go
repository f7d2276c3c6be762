package scheduling

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"telehealth-server/internal/apperr"
	"telehealth-server/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database shared and serializes
	// transactions the way row locks do on MySQL and PostgreSQL.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))
	return db
}

var userSeq int

func seedUser(t *testing.T, db *gorm.DB, role models.Role, first, last string) *models.User {
	t.Helper()
	userSeq++
	u := &models.User{
		Email:     fmt.Sprintf("%s%d@example.com", role, userSeq),
		Phone:     fmt.Sprintf("+9190000%05d", userSeq),
		FirstName: first,
		LastName:  last,
		Role:      role,
	}
	require.NoError(t, u.SetPassword("Secret#123"))
	require.NoError(t, db.Create(u).Error)
	return u
}

type sentMail struct {
	To      string
	Subject string
	Fields  map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *recordingNotifier) Notify(to, subject string, fields map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Fields: fields})
}

func (n *recordingNotifier) all() []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMail(nil), n.sent...)
}

// brokenDirectory fails every lookup.
type brokenDirectory struct{}

func (brokenDirectory) FindUser(context.Context, string, models.Role) (*models.User, error) {
	return nil, apperr.Dependency("load user", fmt.Errorf("connection refused"))
}

type fixture struct {
	db       *gorm.DB
	repo     *GormRepository
	svc      *Service
	notifier *recordingNotifier
	doctor   *models.User
	other    *models.User
	patient  *models.User
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:       db,
		repo:     NewGormRepository(db, 0),
		notifier: &recordingNotifier{},
		doctor:   seedUser(t, db, models.RoleDoctor, "Asha", "Rao"),
		other:    seedUser(t, db, models.RoleDoctor, "Vikram", "Sen"),
		patient:  seedUser(t, db, models.RolePatient, "Ravi", "Kumar"),
	}
	opts = append([]Option{WithReadRetry(1, 0)}, opts...)
	f.svc = NewService(f.repo, NewGormDirectory(db, 0), f.notifier, zerolog.Nop(), opts...)
	return f
}

func (f *fixture) book(t *testing.T, date, start, end string) *models.Appointment {
	t.Helper()
	appt, err := f.svc.Create(context.Background(), f.patient.ID, CreateInput{
		DoctorID:  f.doctor.ID,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Reason:    "checkup",
	})
	require.NoError(t, err)
	return appt
}

func (f *fixture) reload(t *testing.T, id string) *models.Appointment {
	t.Helper()
	var appt models.Appointment
	require.NoError(t, f.db.First(&appt, "id = ?", id).Error)
	return &appt
}
