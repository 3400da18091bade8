package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKeepsUnknownFields(t *testing.T) {
	body := `{"id":3,"patientId":11,"patientName":"Sami","doctorId":7,"appointmentTime":"2024-05-01T09:00:00Z","status":0,"room":"B2","flags":{"vip":true}}`

	var r AppointmentRecord
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	assert.Equal(t, int64(3), r.AppointmentID)
	assert.Equal(t, "Sami", r.PatientName)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), r.AppointmentTime)
	require.Len(t, r.Extra, 2)
	assert.JSONEq(t, `"B2"`, string(r.Extra["room"]))
	assert.JSONEq(t, `{"vip":true}`, string(r.Extra["flags"]))

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":3,"patientId":11,"patientName":"Sami","patientPhone":"","patientEmail":"","doctorId":7,"appointmentTime":"2024-05-01T09:00:00Z","status":0,"room":"B2","flags":{"vip":true}}`, string(out))
}

func TestRecordWithoutExtrasLeavesExtraNil(t *testing.T) {
	var recs []AppointmentRecord
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"PatientName":"Ann"},null]`), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "Ann", recs[0].PatientName)
	assert.Nil(t, recs[0].Extra)
	assert.Equal(t, AppointmentRecord{}, recs[1])
}

func TestRecordKnownFieldBeatsCollidingExtra(t *testing.T) {
	r := AppointmentRecord{AppointmentID: 9, Extra: map[string]json.RawMessage{"id": json.RawMessage(`"x"`), "room": json.RawMessage(`"A1"`)}}
	out, err := json.Marshal(r)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, float64(9), back["id"])
	assert.Equal(t, "A1", back["room"])
}

func TestAppointmentEndTime(t *testing.T) {
	a := Appointment{AppointmentTime: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
	assert.Equal(t, time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC), a.EndTime())
}
