package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/internal/repository"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, token, type, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	n.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, n.ID, n.Token, n.Type, n.Message, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE notifications SET status = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}
