package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/medisync/clinic-queue/internal/repository"
)

type doctorRepository struct {
	db *sqlx.DB
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) CountAvailable(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM doctors WHERE available = TRUE`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count available doctors: %w", err)
	}
	return count, nil
}

// RecordConsultation updates the pooled running averages. With the single
// pooled capacity model the stats are spread evenly over available doctors.
func (r *doctorRepository) RecordConsultation(ctx context.Context, consultMins float64) error {
	query := `
		UPDATE doctors
		SET consultations_today = consultations_today + 1,
		    consultations_total = consultations_total + 1,
		    avg_consult_mins = avg_consult_mins + ($1 - avg_consult_mins) / (consultations_total + 1),
		    updated_at = NOW()
		WHERE available = TRUE
	`
	if _, err := r.db.ExecContext(ctx, query, consultMins); err != nil {
		return fmt.Errorf("failed to record consultation: %w", err)
	}
	return nil
}
