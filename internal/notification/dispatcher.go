package notification

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Dispatcher renders templates and hands them to an EmailSender.
type Dispatcher struct {
	sender  EmailSender
	log     zerolog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Each send is limited to timeout.
func NewDispatcher(sender EmailSender, logger zerolog.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		sender:  sender,
		log:     logger.With().Str("component", "notification").Logger(),
		timeout: timeout,
	}
}

// Notify sends an appointment email in the background. It never blocks and
// never reports failure; errors are logged and dropped.
func (d *Dispatcher) Notify(to, subject string, fields map[string]string) {
	if to == "" {
		d.log.Warn().Str("subject", subject).Msg("notification skipped: no recipient")
		return
	}
	data := make(map[string]string, len(fields)+2)
	for k, v := range fields {
		data[k] = v
	}
	data["subject"] = subject
	data["details"] = appointmentDetails(fields)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().Interface("panic", r).Str("to", to).Msg("notification panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.deliver(ctx, to, TemplateAppointment, data); err != nil {
			d.log.Error().Err(err).Str("to", to).Str("subject", subject).Msg("notification failed")
		}
	}()
}

// SendOTP delivers a password reset code and waits for the result.
func (d *Dispatcher) SendOTP(ctx context.Context, to, code string, validFor time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.deliver(ctx, to, TemplateOTP, map[string]string{
		"otp":     code,
		"minutes": strconv.Itoa(int(validFor.Minutes())),
	})
}

// Wait blocks until every background send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, to, tmpl string, data map[string]string) error {
	subject, body, err := Render(tmpl, data)
	if err != nil {
		return err
	}
	return d.sender.SendEmail(ctx, to, subject, body)
}
