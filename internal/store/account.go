package store

import (
	"context"

	"clinic-dashboard/internal/model"
)

var accountQueries = map[string]string{
	model.RoleDoctor:  `SELECT id, email, password_hash, name FROM doctors WHERE email = $1`,
	model.RolePatient: `SELECT id, email, password_hash, name FROM patients WHERE email = $1`,
}

// AccountByEmail loads login credentials for a doctor or patient.
func (s *Store) AccountByEmail(ctx context.Context, role, email string) (*model.Account, error) {
	q, ok := accountQueries[role]
	if !ok {
		return nil, ErrUnknownRole
	}
	a := &model.Account{Role: role}
	err := s.db.QueryRow(ctx, q, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *Store) DoctorByID(ctx context.Context, id int64) (*model.Doctor, error) {
	d := &model.Doctor{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, email, specialty, phone, created_at FROM doctors WHERE id = $1`, id,
	).Scan(&d.ID, &d.Name, &d.Email, &d.Specialty, &d.Phone, &d.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}
