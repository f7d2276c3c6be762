package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-server/internal/models"
)

type apptFixture struct {
	*testServer
	doctor, patient       *models.User
	doctorTok, patientTok string
}

func newApptFixture(t *testing.T) *apptFixture {
	s := newTestServer(t)
	f := &apptFixture{
		testServer: s,
		doctor:     s.seedUser(t, models.RoleDoctor, "Asha", "Rao"),
		patient:    s.seedUser(t, models.RolePatient, "Ravi", "Kumar"),
	}
	f.doctorTok = s.token(t, f.doctor)
	f.patientTok = s.token(t, f.patient)
	return f
}

func (f *apptFixture) book(t *testing.T, date, start, end string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"doctorId":        f.doctor.ID,
		"appointmentDate": date,
		"startTime":       start,
		"endTime":         end,
		"reason":          "fever",
	}, f.patientTok)
	body := requireStatus(t, w, http.StatusCreated)
	id, _ := body["appointmentId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestCreateAppointment(t *testing.T) {
	f := newApptFixture(t)
	id := f.book(t, "2030-05-10", "10:00", "10:30")

	var appt models.Appointment
	require.NoError(t, f.db.First(&appt, "id = ?", id).Error)
	assert.Equal(t, models.StatusRequested, appt.Status)
	assert.Equal(t, f.patient.ID, *appt.PatientID)
	assert.Equal(t, "Asha Rao", appt.DoctorName)
	assert.Equal(t, "Ravi Kumar", appt.PatientName)

	f.mailer.Wait()
	mails := f.sender.sent()
	require.Len(t, mails, 1)
	assert.Equal(t, f.doctor.Email, mails[0].To)
	assert.Equal(t, "New Appointment Request", mails[0].Subject)
}

func TestCreateAppointment_Errors(t *testing.T) {
	f := newApptFixture(t)
	f.book(t, "2030-05-10", "10:00", "10:30")

	cases := []struct {
		name   string
		token  string
		body   map[string]any
		status int
	}{
		{"overlap", f.patientTok, map[string]any{
			"doctorId": f.doctor.ID, "appointmentDate": "2030-05-10", "startTime": "10:15", "endTime": "10:45",
		}, http.StatusConflict},
		{"doctor cannot book", f.doctorTok, map[string]any{
			"doctorId": f.doctor.ID, "appointmentDate": "2030-05-11", "startTime": "10:00", "endTime": "10:30",
		}, http.StatusForbidden},
		{"bad time", f.patientTok, map[string]any{
			"doctorId": f.doctor.ID, "appointmentDate": "2030-05-11", "startTime": "25:00", "endTime": "10:30",
		}, http.StatusBadRequest},
		{"bad date", f.patientTok, map[string]any{
			"doctorId": f.doctor.ID, "appointmentDate": "2030-02-30", "startTime": "10:00", "endTime": "10:30",
		}, http.StatusBadRequest},
		{"end before start", f.patientTok, map[string]any{
			"doctorId": f.doctor.ID, "appointmentDate": "2030-05-11", "startTime": "11:00", "endTime": "10:30",
		}, http.StatusBadRequest},
		{"unknown doctor", f.patientTok, map[string]any{
			"doctorId": "missing", "appointmentDate": "2030-05-11", "startTime": "10:00", "endTime": "10:30",
		}, http.StatusNotFound},
		{"no token", "", map[string]any{
			"doctorId": f.doctor.ID, "appointmentDate": "2030-05-11", "startTime": "10:00", "endTime": "10:30",
		}, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/appointments", tc.body, tc.token)
			body := requireStatus(t, w, tc.status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	f := newApptFixture(t)
	f.book(t, "2030-05-10", "10:00", "10:30")

	url := "/api/v1/appointments/availability?doctorId=" + f.doctor.ID + "&date=2030-05-10"
	body := requireStatus(t, f.do(t, http.MethodGet, url+"&startTime=10:20&endTime=10:40", nil, f.patientTok), http.StatusOK)
	assert.Equal(t, false, body["available"])

	body = requireStatus(t, f.do(t, http.MethodGet, url+"&startTime=10:30&endTime=11:00", nil, f.patientTok), http.StatusOK)
	assert.Equal(t, true, body["available"])

	w := f.do(t, http.MethodGet, url+"&startTime=9am&endTime=11:00", nil, f.patientTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDoctorWorkflow(t *testing.T) {
	f := newApptFixture(t)
	first := f.book(t, "2030-05-10", "11:00", "11:30")
	second := f.book(t, "2030-05-10", "09:00", "09:30")

	body := requireStatus(t, f.do(t, http.MethodGet, "/api/v1/appointments/doctor?date=2030-05-10", nil, f.doctorTok), http.StatusOK)
	appts := body["appointments"].([]any)
	require.Len(t, appts, 2)
	assert.Equal(t, second, appts[0].(map[string]any)["id"])
	assert.Equal(t, first, appts[1].(map[string]any)["id"])

	w := f.do(t, http.MethodPatch, "/api/v1/appointments/"+first+"/status", map[string]any{"status": "approved"}, f.doctorTok)
	requireStatus(t, w, http.StatusOK)

	w = f.do(t, http.MethodPatch, "/api/v1/appointments/"+first+"/status", map[string]any{"status": "rescheduled"}, f.doctorTok)
	requireStatus(t, w, http.StatusBadRequest)

	w = f.do(t, http.MethodPost, "/api/v1/appointments/"+first+"/report", map[string]any{"report": "Rest and fluids"}, f.doctorTok)
	requireStatus(t, w, http.StatusOK)

	body = requireStatus(t, f.do(t, http.MethodGet, "/api/v1/appointments/doctor/history?status=completed", nil, f.doctorTok), http.StatusOK)
	history := body["appointments"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "Rest and fluids", history[0].(map[string]any)["report"])

	w = f.do(t, http.MethodGet, "/api/v1/appointments/doctor/history?status=requested", nil, f.doctorTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = requireStatus(t, f.do(t, http.MethodGet, "/api/v1/doctors/me/dashboard", nil, f.doctorTok), http.StatusOK)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["upcoming"])
	assert.EqualValues(t, 1, stats["completed"])

	body = requireStatus(t, f.do(t, http.MethodGet, "/api/v1/doctors/me/patients", nil, f.doctorTok), http.StatusOK)
	patients := body["patients"].([]any)
	require.Len(t, patients, 1)
	assert.Equal(t, "Ravi Kumar", patients[0].(map[string]any)["patientName"])
}

func TestUpdateStatus_OtherDoctorForbidden(t *testing.T) {
	f := newApptFixture(t)
	id := f.book(t, "2030-05-10", "10:00", "10:30")
	other := f.seedUser(t, models.RoleDoctor, "Vikram", "Sen")

	w := f.do(t, http.MethodPatch, "/api/v1/appointments/"+id+"/status", map[string]any{"status": "approved"}, f.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPatch, "/api/v1/appointments/"+id+"/status", map[string]any{"status": "approved"}, f.patientTok)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPatch, "/api/v1/appointments/missing/status", map[string]any{"status": "approved"}, f.doctorTok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/appointments/"+id, nil, f.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)

	body := requireStatus(t, f.do(t, http.MethodGet, "/api/v1/appointments/"+id, nil, f.patientTok), http.StatusOK)
	assert.Equal(t, "requested", body["appointment"].(map[string]any)["status"])
}

func TestRescheduleAppointment(t *testing.T) {
	f := newApptFixture(t)
	id := f.book(t, "2030-05-10", "10:00", "10:30")
	f.book(t, "2030-05-11", "10:00", "10:30")

	w := f.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/reschedule", map[string]any{
		"newDate": "2030-05-11", "newStartTime": "10:15", "newEndTime": "10:45",
	}, f.doctorTok)
	requireStatus(t, w, http.StatusConflict)

	w = f.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/reschedule", map[string]any{
		"newDate": "2030-05-11", "newStartTime": "11:00", "newEndTime": "11:30",
	}, f.doctorTok)
	body := requireStatus(t, w, http.StatusOK)
	newID, _ := body["newAppointmentId"].(string)
	require.NotEmpty(t, newID)

	var orig, succ models.Appointment
	require.NoError(t, f.db.First(&orig, "id = ?", id).Error)
	require.NoError(t, f.db.First(&succ, "id = ?", newID).Error)
	assert.Equal(t, models.StatusRescheduled, orig.Status)
	assert.Equal(t, newID, *orig.RescheduledTo)
	assert.Equal(t, id, *succ.ParentAppointmentID)
	assert.Equal(t, models.OriginReschedule, succ.Origin)

	body = requireStatus(t, f.do(t, http.MethodGet, "/api/v1/appointments/patient", nil, f.patientTok), http.StatusOK)
	ids := []string{}
	for _, a := range body["appointments"].([]any) {
		ids = append(ids, a.(map[string]any)["id"].(string))
	}
	assert.Contains(t, ids, newID)
	assert.NotContains(t, ids, id)
}

func TestWeeklyRecurrenceAndBlocking(t *testing.T) {
	f := newApptFixture(t)
	w := f.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"doctorId":        f.doctor.ID,
		"appointmentDate": "2030-05-10",
		"startTime":       "10:00",
		"endTime":         "10:30",
		"isRecurring":     true,
		"recurrenceType":  "weekly",
	}, f.patientTok)
	id := requireStatus(t, w, http.StatusCreated)["appointmentId"].(string)

	body := requireStatus(t, f.do(t, http.MethodPost, "/api/v1/appointments/"+id+"/recurrence", nil, f.doctorTok), http.StatusCreated)
	assert.Equal(t, "2030-05-17", body["appointmentDate"])

	w = f.do(t, http.MethodPost, "/api/v1/appointments/block", map[string]any{
		"date": "2030-05-17", "startTime": "10:00", "endTime": "12:00",
	}, f.doctorTok)
	requireStatus(t, w, http.StatusConflict)

	w = f.do(t, http.MethodPost, "/api/v1/appointments/block", map[string]any{
		"date": "2030-05-17", "startTime": "13:00", "endTime": "15:00",
	}, f.doctorTok)
	blockID := requireStatus(t, w, http.StatusCreated)["blockId"].(string)

	var block models.Appointment
	require.NoError(t, f.db.First(&block, "id = ?", blockID).Error)
	assert.Equal(t, models.StatusBlocked, block.Status)
	assert.Nil(t, block.PatientID)
	assert.Equal(t, "Doctor unavailable", block.Reason)

	w = f.do(t, http.MethodPost, "/api/v1/appointments", map[string]any{
		"doctorId": f.doctor.ID, "appointmentDate": "2030-05-17", "startTime": "14:00", "endTime": "14:30",
	}, f.patientTok)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/appointments/block", map[string]any{
		"date": "2030-05-18", "startTime": "13:00", "endTime": "15:00",
	}, f.patientTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
