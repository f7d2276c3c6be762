package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"telehealth-server/internal/config"
	"telehealth-server/internal/models"
	"telehealth-server/internal/notification"
	"telehealth-server/internal/routes"
	"telehealth-server/internal/utils"
)

const testPassword = "Secret#123"

type mail struct {
	To      string
	Subject string
	Body    string
}

type recordingSender struct {
	mu    sync.Mutex
	mails []mail
}

func (s *recordingSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mails = append(s.mails, mail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *recordingSender) sent() []mail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mail(nil), s.mails...)
}

type testServer struct {
	db     *gorm.DB
	cfg    *config.Config
	router *gin.Engine
	sender *recordingSender
	mailer *notification.Dispatcher
	seq    int
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		Environment:          "test",
		JWTSecret:            "test-secret",
		JWTExpirationMinutes: 60,
		NotifyTimeout:        time.Second,
		OTPExpiry:            5 * time.Minute,
		OTPRatePerMinute:     600,
		OTPMaxAttempts:       3,
	}
	sender := &recordingSender{}
	mailer := notification.NewDispatcher(sender, zerolog.Nop(), cfg.NotifyTimeout)

	router := gin.New()
	routes.SetupRoutes(router, db, cfg, mailer, zerolog.Nop())

	return &testServer{db: db, cfg: cfg, router: router, sender: sender, mailer: mailer}
}

func (s *testServer) seedUser(t *testing.T, role models.Role, first, last string) *models.User {
	t.Helper()
	s.seq++
	u := &models.User{
		Email:     fmt.Sprintf("%s%d@example.com", role, s.seq),
		Phone:     fmt.Sprintf("+9198000%05d", s.seq),
		FirstName: first,
		LastName:  last,
		Role:      role,
	}
	if role == models.RoleDoctor {
		u.Specialisation = "General Medicine"
	}
	require.NoError(t, u.SetPassword(testPassword))
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func (s *testServer) token(t *testing.T, u *models.User) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(u, s.cfg)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request. token may be empty.
func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) map[string]any {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	return decode(t, w)
}
