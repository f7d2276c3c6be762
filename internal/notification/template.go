package notification

import (
	"fmt"
	"strings"
)

// Template is a subject/body pair with {{key}} placeholders.
type Template struct {
	Subject string
	Body    string
}

// Built-in template names.
const (
	TemplateAppointment = "appointment"
	TemplateOTP         = "otp"
)

var templates = map[string]Template{
	TemplateAppointment: {
		Subject: "{{subject}}",
		Body: "{{title}}\n\n{{message}}\n\n" +
			"{{details}}\n" +
			"Please check your dashboard for more details.\n\n" +
			"If you did not expect this email, you can safely ignore it.\n",
	},
	TemplateOTP: {
		Subject: "Your password reset code",
		Body: "Your one-time code is {{otp}}.\n\n" +
			"It expires in {{minutes}} minutes. If you did not ask to reset your password, ignore this email.\n",
	},
}

// detailLines lists the appointment fields rendered under the message, in order.
var detailLines = []struct{ key, label string }{
	{"doctorName", "Doctor"},
	{"patientName", "Patient"},
	{"appointmentDate", "Date"},
	{"startTime", "Time"},
	{"status", "Status"},
}

// Render fills the named template. Keys missing from data stay as-is.
func Render(name string, data map[string]string) (subject, body string, err error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("template %q not found", name)
	}
	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// appointmentDetails renders the non-empty appointment fields one per line.
func appointmentDetails(fields map[string]string) string {
	var b strings.Builder
	for _, l := range detailLines {
		v := fields[l.key]
		if v == "" {
			continue
		}
		if l.key == "startTime" && fields["endTime"] != "" {
			v += " - " + fields["endTime"]
		}
		b.WriteString(l.label + ": " + v + "\n")
	}
	return b.String()
}
