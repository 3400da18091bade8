package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"clinic-dashboard/internal/auth"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/store"
)

type prescriptionRequest struct {
	AppointmentID int64  `json:"appointmentId"`
	PatientName   string `json:"patientName"`
	Medication    string `json:"medication"`
	Dosage        string `json:"dosage"`
	DoctorNotes   string `json:"doctorNotes"`
}

func (p prescriptionRequest) validate() string {
	switch {
	case p.AppointmentID <= 0:
		return "appointmentId required"
	case !between(p.PatientName, 3, 100):
		return "patientName must be 3 to 100 characters"
	case !between(p.Medication, 3, 100):
		return "medication must be 3 to 100 characters"
	case strings.TrimSpace(p.Dosage) == "":
		return "dosage required"
	case utf8.RuneCountInString(p.DoctorNotes) > 200:
		return "doctorNotes must be at most 200 characters"
	}
	return ""
}

func between(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(s))
	return n >= lo && n <= hi
}

// doctorAppointment loads an appointment and checks the doctor owns it.
func (h *Handler) doctorAppointment(w http.ResponseWriter, r *http.Request, doctorID, id int64) (*model.Appointment, bool) {
	apt, err := h.store.AppointmentByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return nil, false
	} else if err != nil {
		h.logger.Error("appointment lookup failed", zap.Int64("appointment_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if apt.DoctorID != doctorID {
		writeError(w, http.StatusForbidden, "appointment belongs to another doctor")
		return nil, false
	}
	return apt, true
}

// savePrescription records a prescription and marks the appointment completed.
func (h *Handler) savePrescription(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenForRole(pathParam(r, "token"), h.secret, model.RoleDoctor)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	var req prescriptionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	apt, ok := h.doctorAppointment(w, r, claims.UserID, req.AppointmentID)
	if !ok {
		return
	}
	if apt.Status == model.StatusCancelled {
		writeError(w, http.StatusConflict, "appointment was cancelled")
		return
	}

	p := &model.Prescription{
		AppointmentID: apt.ID,
		PatientName:   strings.TrimSpace(req.PatientName),
		Medication:    strings.TrimSpace(req.Medication),
		Dosage:        strings.TrimSpace(req.Dosage),
		DoctorNotes:   req.DoctorNotes,
	}
	if err := h.store.SavePrescription(r.Context(), p); err != nil {
		h.logger.Error("save prescription failed", zap.Int64("appointment_id", apt.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "success", "prescription": p})
}

// prescriptions lists what was prescribed at one appointment. None is a 404.
func (h *Handler) prescriptions(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenForRole(pathParam(r, "token"), h.secret, model.RoleDoctor)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	id, err := strconv.ParseInt(pathParam(r, "appointmentId"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	if _, ok := h.doctorAppointment(w, r, claims.UserID, id); !ok {
		return
	}

	ps, err := h.store.PrescriptionsByAppointment(r.Context(), id)
	if err != nil {
		h.logger.Error("prescription query failed", zap.Int64("appointment_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(ps) == 0 {
		writeError(w, http.StatusNotFound, "no prescriptions for this appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "prescriptions": ps})
}
