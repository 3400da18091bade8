package store

import (
	"context"
	"strings"
	"time"

	"clinic-dashboard/internal/model"
)

const scheduleQuery = `SELECT a.id, p.id, p.name, p.phone, p.email, a.doctor_id, a.appointment_time, a.status
	 FROM appointments a
	 JOIN patients p ON p.id = a.patient_id
	 WHERE a.doctor_id = $1
	   AND a.appointment_time >= $2 AND a.appointment_time < $3`

// ScheduleFilter selects one doctor's appointments in [From, To), optionally
// narrowed to patients whose name contains PatientName (case-insensitive).
type ScheduleFilter struct {
	DoctorID    int64
	From        time.Time
	To          time.Time
	PatientName string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Store) DoctorSchedule(ctx context.Context, f ScheduleFilter) ([]model.AppointmentRecord, error) {
	q := scheduleQuery
	args := []any{f.DoctorID, f.From, f.To}
	if f.PatientName != "" {
		q += ` AND p.name ILIKE $4`
		args = append(args, "%"+likeEscaper.Replace(f.PatientName)+"%")
	}
	q += ` ORDER BY a.appointment_time, a.id`

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AppointmentRecord{}
	for rows.Next() {
		var r model.AppointmentRecord
		if err := rows.Scan(
			&r.AppointmentID, &r.PatientID, &r.PatientName, &r.PatientPhone, &r.PatientEmail,
			&r.DoctorID, &r.AppointmentTime, &r.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasOverlap reports whether the doctor already has a scheduled appointment
// intersecting [start, end). excludeID skips one appointment, the one being
// moved; pass 0 for a new booking.
func (s *Store) HasOverlap(ctx context.Context, doctorID int64, start, end time.Time, excludeID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND status = $4
			  AND id <> $5
			  AND appointment_time < $3
			  AND appointment_time + interval '1 hour' > $2)`,
		doctorID, start, end, model.StatusScheduled, excludeID,
	).Scan(&exists)
	return exists, err
}

func (s *Store) AppointmentByID(ctx context.Context, id int64) (*model.Appointment, error) {
	var a model.Appointment
	err := s.db.QueryRow(ctx,
		`SELECT id, doctor_id, patient_id, appointment_time, status, created_at
		 FROM appointments WHERE id = $1`, id,
	).Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.AppointmentTime, &a.Status, &a.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (s *Store) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (doctor_id, patient_id, appointment_time, status)
		 VALUES ($1,$2,$3,$4)
		 RETURNING id, created_at`,
		a.DoctorID, a.PatientID, a.AppointmentTime, a.Status,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return conflict(err)
	}
	return tx.Commit(ctx)
}

// RescheduleAppointment moves a still-scheduled appointment to a.DoctorID at
// a.AppointmentTime.
func (s *Store) RescheduleAppointment(ctx context.Context, a *model.Appointment) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE appointments SET doctor_id = $2, appointment_time = $3
		 WHERE id = $1 AND status = $4`,
		a.ID, a.DoctorID, a.AppointmentTime, model.StatusScheduled,
	)
	if err != nil {
		return conflict(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// CancelAppointment marks a scheduled appointment cancelled, which frees its
// slot for the exclusion constraint.
func (s *Store) CancelAppointment(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE appointments SET status = $2 WHERE id = $1 AND status = $3`,
		id, model.StatusCancelled, model.StatusScheduled,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
