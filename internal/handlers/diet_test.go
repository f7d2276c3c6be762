package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-server/internal/models"
)

func fullWeek() map[string]map[string]string {
	week := map[string]map[string]string{}
	for _, day := range models.DietDays {
		week[day] = map[string]string{models.DietSlots[0]: "Oats and fruit"}
	}
	return week
}

func TestSaveDietPlan(t *testing.T) {
	s := newTestServer(t)
	doctor := s.seedUser(t, models.RoleDoctor, "Asha", "Rao")
	patient := s.seedUser(t, models.RolePatient, "Ravi", "Kumar")
	doctorTok := s.token(t, doctor)

	partial := fullWeek()
	delete(partial, "Sunday")
	w := s.do(t, http.MethodPost, "/api/v1/diet", map[string]any{"patientId": patient.ID, "weeklyDiet": partial}, doctorTok)
	body := requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Missing day: Sunday", body["error"])

	w = s.do(t, http.MethodPost, "/api/v1/diet", map[string]any{"patientId": "missing", "weeklyDiet": fullWeek()}, doctorTok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/diet", map[string]any{"patientId": patient.ID, "weeklyDiet": fullWeek()}, s.token(t, patient))
	assert.Equal(t, http.StatusForbidden, w.Code)

	requireStatus(t, s.do(t, http.MethodPost, "/api/v1/diet", map[string]any{"patientId": patient.ID, "weeklyDiet": fullWeek()}, doctorTok), http.StatusOK)

	var plan models.DietPlan
	require.NoError(t, s.db.First(&plan, "patient_id = ?", patient.ID).Error)
	assert.Equal(t, doctor.ID, plan.DoctorID)
	assert.Equal(t, "Oats and fruit", plan.WeeklyDiet["Monday"][models.DietSlots[0]])
	assert.Len(t, plan.WeeklyStatus, len(models.DietDays))
	assert.False(t, plan.WeeklyStatus["Monday"][models.DietSlots[0]])

	other := s.seedUser(t, models.RoleDoctor, "Vikram", "Sen")
	w = s.do(t, http.MethodPost, "/api/v1/diet", map[string]any{"patientId": patient.ID, "weeklyDiet": fullWeek()}, s.token(t, other))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDietProgress(t *testing.T) {
	s := newTestServer(t)
	doctor := s.seedUser(t, models.RoleDoctor, "Asha", "Rao")
	patient := s.seedUser(t, models.RolePatient, "Ravi", "Kumar")
	doctorTok, patientTok := s.token(t, doctor), s.token(t, patient)
	slot := models.DietSlots[1]

	body := requireStatus(t, s.do(t, http.MethodGet, "/api/v1/diet/patient", nil, patientTok), http.StatusOK)
	assert.Nil(t, body["diet"])

	w := s.do(t, http.MethodPatch, "/api/v1/diet/status", map[string]any{"day": "Monday", "slot": slot, "completed": true}, patientTok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	requireStatus(t, s.do(t, http.MethodPost, "/api/v1/diet", map[string]any{"patientId": patient.ID, "weeklyDiet": fullWeek()}, doctorTok), http.StatusOK)

	w = s.do(t, http.MethodPatch, "/api/v1/diet/status", map[string]any{"day": "Funday", "slot": slot, "completed": true}, patientTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/diet/status", map[string]any{"day": "Monday", "slot": slot}, patientTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	requireStatus(t, s.do(t, http.MethodPatch, "/api/v1/diet/status",
		map[string]any{"day": "Monday", "slot": slot, "completed": true}, patientTok), http.StatusOK)

	body = requireStatus(t, s.do(t, http.MethodGet, "/api/v1/diet/status?patientId="+patient.ID, nil, doctorTok), http.StatusOK)
	status := body["weeklyStatus"].(map[string]any)
	assert.Equal(t, true, status["Monday"].(map[string]any)[slot])
	assert.Equal(t, false, status["Tuesday"].(map[string]any)[slot])

	body = requireStatus(t, s.do(t, http.MethodGet, "/api/v1/diet/patient", nil, patientTok), http.StatusOK)
	assert.NotNil(t, body["diet"])
	assert.Equal(t, true, body["status"].(map[string]any)["Monday"].(map[string]any)[slot])

	body = requireStatus(t, s.do(t, http.MethodGet, "/api/v1/diet/doctor?patientId="+patient.ID, nil, doctorTok), http.StatusOK)
	assert.Equal(t, "Oats and fruit", body["diet"].(map[string]any)["Friday"].(map[string]any)[models.DietSlots[0]])

	other := s.token(t, s.seedUser(t, models.RoleDoctor, "Vikram", "Sen"))
	w = s.do(t, http.MethodGet, "/api/v1/diet/doctor?patientId="+patient.ID, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/diet/status?patientId="+patient.ID, nil, other)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/diet/status", nil, doctorTok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDoctorDietPatients(t *testing.T) {
	s := newTestServer(t)
	doctor := s.seedUser(t, models.RoleDoctor, "Asha", "Rao")
	patient := s.seedUser(t, models.RolePatient, "Ravi", "Kumar")

	requireStatus(t, s.do(t, http.MethodPost, "/api/v1/chats",
		map[string]any{"doctorId": doctor.ID, "patientId": patient.ID}, s.token(t, patient)), http.StatusOK)

	body := requireStatus(t, s.do(t, http.MethodGet, "/api/v1/diet/patients", nil, s.token(t, doctor)), http.StatusOK)
	patients := body["patients"].([]any)
	require.Len(t, patients, 1)
	assert.Equal(t, patient.ID, patients[0].(map[string]any)["patientId"])
	assert.Equal(t, "Ravi Kumar", patients[0].(map[string]any)["patientName"])
}
