package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/medisync/clinic-queue/internal/repository"
)

// queueStateRepository persists the singleton global queue state row.
// The token counter is advanced with UPDATE ... RETURNING so concurrent
// bookings can never observe the same value.
type queueStateRepository struct {
	db *sqlx.DB
}

func NewQueueStateRepository(db *sqlx.DB) repository.QueueStateRepository {
	return &queueStateRepository{db: db}
}

func (r *queueStateRepository) NextToken(ctx context.Context) (int, error) {
	query := `
		UPDATE queue_state
		SET current_token = current_token + 1, updated_at = NOW()
		WHERE singleton = TRUE
		RETURNING current_token
	`
	var token int
	if err := r.db.GetContext(ctx, &token, query); err != nil {
		return 0, fmt.Errorf("failed to allocate token: %w", err)
	}
	return token, nil
}

func (r *queueStateRepository) LastToken(ctx context.Context) (int, error) {
	var token int
	query := `SELECT current_token FROM queue_state WHERE singleton = TRUE`
	if err := r.db.GetContext(ctx, &token, query); err != nil {
		return 0, fmt.Errorf("failed to read token counter: %w", err)
	}
	return token, nil
}

func (r *queueStateRepository) RecordBooking(ctx context.Context, emergency bool) error {
	query := `
		UPDATE queue_state
		SET bookings = bookings + 1,
		    emergency_count = emergency_count + CASE WHEN $1 THEN 1 ELSE 0 END,
		    updated_at = NOW()
		WHERE singleton = TRUE
	`
	if _, err := r.db.ExecContext(ctx, query, emergency); err != nil {
		return fmt.Errorf("failed to record booking: %w", err)
	}
	return nil
}

func (r *queueStateRepository) RecordCompletion(ctx context.Context, waitMins, consultMins float64) error {
	query := `
		UPDATE queue_state
		SET completions = completions + 1,
		    avg_wait_mins = avg_wait_mins + ($1 - avg_wait_mins) / (completions + 1),
		    avg_consult_mins = avg_consult_mins + ($2 - avg_consult_mins) / (completions + 1),
		    updated_at = NOW()
		WHERE singleton = TRUE
	`
	if _, err := r.db.ExecContext(ctx, query, waitMins, consultMins); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

func (r *queueStateRepository) RecordCancellation(ctx context.Context) error {
	query := `UPDATE queue_state SET cancellations = cancellations + 1, updated_at = NOW() WHERE singleton = TRUE`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to record cancellation: %w", err)
	}
	return nil
}

func (r *queueStateRepository) RecordNoShow(ctx context.Context) error {
	query := `UPDATE queue_state SET no_shows = no_shows + 1, updated_at = NOW() WHERE singleton = TRUE`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to record no-show: %w", err)
	}
	return nil
}

func (r *queueStateRepository) RecordReorder(ctx context.Context) error {
	query := `UPDATE queue_state SET total_reorders = total_reorders + 1, updated_at = NOW() WHERE singleton = TRUE`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to record reorder: %w", err)
	}
	return nil
}

// ResetDailyStats zeroes daily counters at the local-midnight rollover.
// The token counter and configuration survive.
func (r *queueStateRepository) ResetDailyStats(ctx context.Context, date string) error {
	query := `
		UPDATE queue_state
		SET stats_date = $1,
		    bookings = 0, completions = 0, cancellations = 0, no_shows = 0,
		    emergency_count = 0, avg_wait_mins = 0, avg_consult_mins = 0,
		    updated_at = NOW()
		WHERE singleton = TRUE AND stats_date <> $1
	`
	if _, err := r.db.ExecContext(ctx, query, date); err != nil {
		return fmt.Errorf("failed to reset daily stats: %w", err)
	}
	return nil
}
