package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"clinic-dashboard/internal/auth"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/schedule"
	"clinic-dashboard/internal/store"
)

// doctorAppointments lists one doctor's appointments for a calendar day. An
// empty day is 200 with an empty array.
func (h *Handler) doctorAppointments(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenForRole(pathParam(r, "token"), h.secret, model.RoleDoctor)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	doctorID, err := strconv.ParseInt(pathParam(r, "doctorId"), 10, 64)
	if err != nil || doctorID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	day, err := schedule.ParseDate(pathParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}
	if claims.UserID != doctorID {
		writeError(w, http.StatusForbidden, "token does not belong to this doctor")
		return
	}

	name := pathParam(r, "patientName")
	if schedule.IsNoFilter(name) {
		name = ""
	}
	from, to := schedule.DayBounds(day, h.loc)

	records, err := h.store.DoctorSchedule(r.Context(), store.ScheduleFilter{
		DoctorID:    doctorID,
		From:        from,
		To:          to,
		PatientName: strings.TrimSpace(name),
	})
	if err != nil {
		h.logger.Error("schedule query failed", zap.Int64("doctor_id", doctorID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []model.AppointmentRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

type bookRequest struct {
	DoctorID        int64     `json:"doctorId"`
	AppointmentTime time.Time `json:"appointmentTime"`
}

type bookResponse struct {
	Status      string             `json:"status"`
	Appointment *model.Appointment `json:"appointment"`
}

// bookAppointment reserves a one-hour slot for the token's patient.
func (h *Handler) bookAppointment(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenForRole(pathParam(r, "token"), h.secret, model.RolePatient)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	req, ok := h.slotRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()

	apt := &model.Appointment{
		DoctorID:        req.DoctorID,
		PatientID:       claims.UserID,
		AppointmentTime: req.AppointmentTime,
		Status:          model.StatusScheduled,
	}

	// app-level overlap check; the exclusion constraint catches races
	if dup, err := h.store.HasOverlap(ctx, apt.DoctorID, apt.AppointmentTime, apt.EndTime(), 0); err != nil {
		h.logger.Error("overlap check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	} else if dup {
		writeError(w, http.StatusConflict, "time conflicts with existing appointment")
		return
	}

	if err := h.store.CreateAppointment(ctx, apt); errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "time conflicts with existing appointment")
		return
	} else if err != nil {
		h.logger.Error("create appointment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, bookResponse{Status: "success", Appointment: apt})
}

// slotRequest decodes and checks a doctor/time pair. It writes the error
// response itself and reports whether the caller may continue.
func (h *Handler) slotRequest(w http.ResponseWriter, r *http.Request) (bookRequest, bool) {
	var req bookRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.DoctorID <= 0 || req.AppointmentTime.IsZero() {
		writeError(w, http.StatusBadRequest, "doctorId and appointmentTime required")
		return req, false
	}
	if req.AppointmentTime.Before(h.now()) {
		writeError(w, http.StatusBadRequest, "cannot book in the past")
		return req, false
	}
	if _, err := h.store.DoctorByID(r.Context(), req.DoctorID); errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "doctor not found")
		return req, false
	} else if err != nil {
		h.logger.Error("doctor lookup failed", zap.Int64("doctor_id", req.DoctorID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return req, false
	}
	return req, true
}

// patientAppointment loads the appointment named by the {id} path segment and
// checks it belongs to the patient and is still scheduled.
func (h *Handler) patientAppointment(w http.ResponseWriter, r *http.Request, patientID int64) (*model.Appointment, bool) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return nil, false
	}
	apt, err := h.store.AppointmentByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return nil, false
	} else if err != nil {
		h.logger.Error("appointment lookup failed", zap.Int64("appointment_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	if apt.PatientID != patientID {
		writeError(w, http.StatusForbidden, "appointment belongs to another patient")
		return nil, false
	}
	if msg := notScheduled(apt.Status); msg != "" {
		writeError(w, http.StatusConflict, msg)
		return nil, false
	}
	return apt, true
}

func notScheduled(status int) string {
	switch status {
	case model.StatusScheduled:
		return ""
	case model.StatusCompleted:
		return "appointment already completed"
	case model.StatusCancelled:
		return "appointment was cancelled"
	default:
		return "appointment is not scheduled"
	}
}

// rescheduleAppointment moves one of the patient's appointments to another
// doctor or time. The appointment's own slot does not count as a clash.
func (h *Handler) rescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenForRole(pathParam(r, "token"), h.secret, model.RolePatient)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	apt, ok := h.patientAppointment(w, r, claims.UserID)
	if !ok {
		return
	}
	req, ok := h.slotRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	apt.DoctorID = req.DoctorID
	apt.AppointmentTime = req.AppointmentTime

	if dup, err := h.store.HasOverlap(ctx, apt.DoctorID, apt.AppointmentTime, apt.EndTime(), apt.ID); err != nil {
		h.logger.Error("overlap check failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	} else if dup {
		writeError(w, http.StatusConflict, "time conflicts with existing appointment")
		return
	}

	switch err := h.store.RescheduleAppointment(ctx, apt); {
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "time conflicts with existing appointment")
		return
	case errors.Is(err, store.ErrNotFound):
		// cancelled or completed since it was loaded
		writeError(w, http.StatusConflict, "appointment is not scheduled")
		return
	case err != nil:
		h.logger.Error("reschedule failed", zap.Int64("appointment_id", apt.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{Status: "success", Appointment: apt})
}

// cancelAppointment cancels one of the patient's scheduled appointments. The
// row is kept with StatusCancelled.
func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.ParseTokenForRole(pathParam(r, "token"), h.secret, model.RolePatient)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	apt, ok := h.patientAppointment(w, r, claims.UserID)
	if !ok {
		return
	}

	switch err := h.store.CancelAppointment(r.Context(), apt.ID); {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusConflict, "appointment is not scheduled")
		return
	case err != nil:
		h.logger.Error("cancel failed", zap.Int64("appointment_id", apt.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "appointment cancelled"})
}
