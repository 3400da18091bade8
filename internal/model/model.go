package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Role names carried in tokens and used to pick the credential table.
const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"
	RoleAdmin   = "admin"
)

// Account is the login view of a doctor or patient row.
type Account struct {
	ID           int64
	Role         string
	Email        string
	PasswordHash string
	Name         string
}

type Doctor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Specialty string    `json:"specialty,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"-"`
}

type Patient struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
}

// Appointment status codes as stored by the backend.
const (
	StatusScheduled = 0
	StatusCompleted = 1
	StatusCancelled = 2
)

// AppointmentDuration is the fixed length of a booked slot.
const AppointmentDuration = time.Hour

type Appointment struct {
	ID              int64     `json:"id"`
	DoctorID        int64     `json:"doctorId"`
	PatientID       int64     `json:"patientId"`
	AppointmentTime time.Time `json:"appointmentTime"`
	Status          int       `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// EndTime is the exclusive end of the booked slot.
func (a Appointment) EndTime() time.Time {
	return a.AppointmentTime.Add(AppointmentDuration)
}

// Prescription is written by the doctor against a finished appointment. An
// appointment may carry several.
type Prescription struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointmentId"`
	PatientName   string    `json:"patientName"`
	Medication    string    `json:"medication"`
	Dosage        string    `json:"dosage"`
	DoctorNotes   string    `json:"doctorNotes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// AppointmentRecord is one row of a doctor's schedule as served to dashboards.
// It is passed through to rendering without modification; fields this
// version does not know are kept in Extra and written back out on encode.
type AppointmentRecord struct {
	AppointmentID   int64     `json:"id"`
	PatientID       int64     `json:"patientId"`
	PatientName     string    `json:"patientName"`
	PatientPhone    string    `json:"patientPhone"`
	PatientEmail    string    `json:"patientEmail"`
	DoctorID        int64     `json:"doctorId"`
	AppointmentTime time.Time `json:"appointmentTime"`
	Status          int       `json:"status"`

	Extra map[string]json.RawMessage `json:"-"`
}

type recordFields AppointmentRecord

// lower-cased, since encoding/json matches keys case-insensitively
var knownRecordKeys = map[string]bool{
	"id": true, "patientid": true, "patientname": true, "patientphone": true,
	"patientemail": true, "doctorid": true, "appointmenttime": true, "status": true,
}

func (r *AppointmentRecord) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var f recordFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	f.Extra = nil
	for k, v := range all {
		if knownRecordKeys[strings.ToLower(k)] {
			continue
		}
		if f.Extra == nil {
			f.Extra = make(map[string]json.RawMessage)
		}
		f.Extra[k] = v
	}
	*r = AppointmentRecord(f)
	return nil
}

func (r AppointmentRecord) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(recordFields(r))
	if err != nil || len(r.Extra) == 0 {
		return b, err
	}
	out := make(map[string]json.RawMessage, len(r.Extra)+len(knownRecordKeys))
	for k, v := range r.Extra {
		out[k] = v
	}
	// known fields win over a colliding extra
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return json.Marshal(out)
}
