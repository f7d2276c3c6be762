package notification

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emailCall struct {
	To, Subject, Body string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []emailCall
	err   error
}

func (f *fakeSender) SendEmail(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, emailCall{to, subject, body})
	return f.err
}

func (f *fakeSender) Calls() []emailCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emailCall(nil), f.calls...)
}

func TestRender_Appointment(t *testing.T) {
	fields := map[string]string{
		"title":           "New Appointment",
		"message":         "You have a new appointment request.",
		"doctorName":      "Asha Rao",
		"appointmentDate": "2024-03-25",
		"startTime":       "09:00",
		"endTime":         "10:00",
	}
	data := map[string]string{"subject": "New Appointment Request", "details": appointmentDetails(fields)}
	for k, v := range fields {
		data[k] = v
	}

	subject, body, err := Render(TemplateAppointment, data)
	require.NoError(t, err)
	assert.Equal(t, "New Appointment Request", subject)
	assert.Contains(t, body, "Doctor: Asha Rao\n")
	assert.Contains(t, body, "Time: 09:00 - 10:00\n")
	assert.NotContains(t, body, "Patient:")
	assert.NotContains(t, body, "{{")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, err := Render("missing", nil)
	assert.Error(t, err)
}

func TestDispatcher_NotifySendsInBackground(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, zerolog.Nop(), time.Second)

	d.Notify("doctor@example.com", "New Appointment Request", map[string]string{"status": "requested"})
	d.Wait()

	calls := sender.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "doctor@example.com", calls[0].To)
	assert.Equal(t, "New Appointment Request", calls[0].Subject)
	assert.Contains(t, calls[0].Body, "Status: requested")
}

func TestDispatcher_NotifySwallowsFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay down")}
	d := NewDispatcher(sender, zerolog.Nop(), time.Second)

	assert.NotPanics(t, func() {
		d.Notify("doctor@example.com", "x", nil)
		d.Wait()
	})
	assert.Len(t, sender.Calls(), 1)
}

func TestDispatcher_NotifySkipsEmptyRecipient(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, zerolog.Nop(), time.Second)

	d.Notify("", "x", nil)
	d.Wait()
	assert.Empty(t, sender.Calls())
}

func TestDispatcher_SendOTPReportsErrors(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(sender, zerolog.Nop(), time.Second)

	require.NoError(t, d.SendOTP(context.Background(), "p@example.com", "123456", 5*time.Minute))
	calls := sender.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Body, "123456")
	assert.Contains(t, calls[0].Body, "5 minutes")

	sender.err = errors.New("relay down")
	assert.Error(t, d.SendOTP(context.Background(), "p@example.com", "123456", 5*time.Minute))
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "clinic@example.com", Password: "pw"})
	s.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	require.NoError(t, s.SendEmail(context.Background(), "p@example.com", "Hello", "line1\nline2"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "clinic@example.com", gotFrom)
	assert.Equal(t, []string{"p@example.com"}, gotTo)
	assert.True(t, strings.HasSuffix(string(gotMsg), "line1\r\nline2"))
	assert.Contains(t, string(gotMsg), "Subject: Hello\r\n")
}

func TestSMTPSender_HonoursCancelledContext(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: "587"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.SendEmail(ctx, "p@example.com", "x", "y"), context.Canceled)
}

func TestLogSender_KeepsBodyOutOfInfoLogs(t *testing.T) {
	var buf bytes.Buffer
	s := LogSender{Logger: zerolog.New(&buf).Level(zerolog.InfoLevel)}

	require.NoError(t, s.SendEmail(context.Background(), "p@example.com", "Password reset", "Your code is 482913"))
	assert.Contains(t, buf.String(), "p@example.com")
	assert.Contains(t, buf.String(), "Password reset")
	assert.NotContains(t, buf.String(), "482913")

	buf.Reset()
	s.Logger = s.Logger.Level(zerolog.DebugLevel)
	require.NoError(t, s.SendEmail(context.Background(), "p@example.com", "Password reset", "Your code is 482913"))
	assert.Contains(t, buf.String(), "482913")
}
