// Package handler serves the clinic REST API used by the dashboard.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clinic-dashboard/internal/auth"
	"clinic-dashboard/internal/model"
	"clinic-dashboard/internal/store"
)

// Store is what the handlers need from persistence.
type Store interface {
	AccountByEmail(ctx context.Context, role, email string) (*model.Account, error)
	DoctorByID(ctx context.Context, id int64) (*model.Doctor, error)
	DoctorSchedule(ctx context.Context, f store.ScheduleFilter) ([]model.AppointmentRecord, error)
	HasOverlap(ctx context.Context, doctorID int64, start, end time.Time, excludeID int64) (bool, error)
	AppointmentByID(ctx context.Context, id int64) (*model.Appointment, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	RescheduleAppointment(ctx context.Context, a *model.Appointment) error
	CancelAppointment(ctx context.Context, id int64) error
	SavePrescription(ctx context.Context, p *model.Prescription) error
	PrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]model.Prescription, error)
}

type Handler struct {
	store    Store
	secret   string
	tokenTTL time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Handler)

func WithTokenTTL(d time.Duration) Option {
	return func(h *Handler) { h.tokenTTL = d }
}

// WithLocation sets the zone that calendar dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) { h.loc = loc }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func New(st Store, secret string, opts ...Option) *Handler {
	h := &Handler{
		store:    st,
		secret:   secret,
		tokenTTL: auth.DefaultTTL,
		loc:      time.Local,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers the API on r. login wraps the credential endpoints,
// typically with a rate limiter.
func (h *Handler) Routes(r chi.Router, login ...func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(login...)
		r.Post("/doctor/login", h.login(model.RoleDoctor))
		r.Post("/patient/login", h.login(model.RolePatient))
	})
	r.Get("/doctor/{token}", h.doctorIdentity)
	r.Get("/appointments/doctor/{doctorId}/{date}/{patientName}/{token}", h.doctorAppointments)
	r.Post("/appointments/{token}", h.bookAppointment)
	r.Put("/appointments/{id}/{token}", h.rescheduleAppointment)
	r.Delete("/appointments/{id}/{token}", h.cancelAppointment)
	r.Post("/prescription/save/{token}", h.savePrescription)
	r.Get("/prescription/{appointmentId}/{token}", h.prescriptions)
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Status: "error", Message: msg})
}

// pathParam returns a decoded path parameter. chi matches on the raw path
// when the request carries escapes such as %2F, leaving them in the value.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}
