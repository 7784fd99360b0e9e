package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/internal/repository"
	apperrors "github.com/medisync/clinic-queue/pkg/errors"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

// patientRow flattens the optional location columns; tier is stored as its
// numeric value so the rank ordering works in SQL too.
type patientRow struct {
	model.Patient
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
	Address   sql.NullString  `db:"address"`
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			id, token, name, contact, age, symptoms, symptom_category,
			urgency, tier, status, score, travel_eta_mins, consult_mins,
			waiting_mins, latitude, longitude, address, booked_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20
		)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	var lat, lng sql.NullFloat64
	var addr sql.NullString
	if patient.Location != nil {
		lat = sql.NullFloat64{Float64: patient.Location.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: patient.Location.Longitude, Valid: true}
		addr = sql.NullString{String: patient.Location.Address, Valid: patient.Location.Address != ""}
	}

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.Token,
		patient.Name,
		patient.Contact,
		patient.Age,
		patient.Symptoms,
		patient.SymptomCategory,
		patient.Urgency,
		int(patient.Tier),
		patient.Status,
		patient.Score,
		patient.TravelETAMins,
		patient.ConsultMins,
		patient.WaitingMins,
		lat,
		lng,
		addr,
		patient.BookedAt,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) GetByToken(ctx context.Context, token int) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE token = $1`
	var row patientRow
	err := r.db.GetContext(ctx, &row, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return rowToPatient(&row), nil
}

func (r *patientRepository) UpdateStatus(ctx context.Context, token int, status model.PatientStatus, reason *string) error {
	query := `
		UPDATE patients
		SET status = $1,
		    cancel_reason = COALESCE($2, cancel_reason),
		    consult_started_at = CASE WHEN $1 = 'IN_CONSULTATION' THEN NOW() ELSE consult_started_at END,
		    completed_at = CASE WHEN $1 = 'COMPLETED' THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE token = $3
	`
	res, err := r.db.ExecContext(ctx, query, status, reason, token)
	if err != nil {
		return fmt.Errorf("failed to update patient status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) UpdateScore(ctx context.Context, token int, score, waitingMins float64) error {
	query := `UPDATE patients SET score = $1, waiting_mins = $2, updated_at = NOW() WHERE token = $3`
	_, err := r.db.ExecContext(ctx, query, score, waitingMins, token)
	if err != nil {
		return fmt.Errorf("failed to update patient score: %w", err)
	}
	return nil
}

func (r *patientRepository) UpdateLocation(ctx context.Context, token int, loc model.Location, travelETAMins float64) error {
	query := `
		UPDATE patients
		SET latitude = $1, longitude = $2, address = $3, travel_eta_mins = $4, updated_at = NOW()
		WHERE token = $5
	`
	res, err := r.db.ExecContext(ctx, query, loc.Latitude, loc.Longitude, loc.Address, travelETAMins, token)
	if err != nil {
		return fmt.Errorf("failed to update patient location: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) ListActive(ctx context.Context) ([]*model.Patient, error) {
	query := `
		SELECT * FROM patients
		WHERE status = 'WAITING'
		ORDER BY tier DESC, score DESC, booked_at ASC, token ASC
	`
	var rows []patientRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list active patients: %w", err)
	}
	patients := make([]*model.Patient, 0, len(rows))
	for i := range rows {
		patients = append(patients, rowToPatient(&rows[i]))
	}
	return patients, nil
}

func rowToPatient(row *patientRow) *model.Patient {
	p := row.Patient
	if row.Latitude.Valid && row.Longitude.Valid {
		p.Location = &model.Location{
			Latitude:  row.Latitude.Float64,
			Longitude: row.Longitude.Float64,
			Address:   row.Address.String,
		}
	}
	return &p
}
