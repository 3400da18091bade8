package store

import (
	"context"

	"clinic-dashboard/internal/model"
)

// SavePrescription stores p and completes its appointment in one transaction.
func (s *Store) SavePrescription(ctx context.Context, p *model.Prescription) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO prescriptions (appointment_id, patient_name, medication, dosage, doctor_notes)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING id, created_at`,
		p.AppointmentID, p.PatientName, p.Medication, p.Dosage, p.DoctorNotes,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE appointments SET status = $2 WHERE id = $1`,
		p.AppointmentID, model.StatusCompleted,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) PrescriptionsByAppointment(ctx context.Context, appointmentID int64) ([]model.Prescription, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, appointment_id, patient_name, medication, dosage, doctor_notes, created_at
		 FROM prescriptions WHERE appointment_id = $1 ORDER BY id`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Prescription{}
	for rows.Next() {
		var p model.Prescription
		if err := rows.Scan(&p.ID, &p.AppointmentID, &p.PatientName, &p.Medication, &p.Dosage, &p.DoctorNotes, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
