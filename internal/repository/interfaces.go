package repository

import (
	"context"

	"github.com/medisync/clinic-queue/internal/model"
)

// PatientRepository persists queue entries. Records are soft-deleted only:
// terminal patients stay on disk for the audit trail.
type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	GetByToken(ctx context.Context, token int) (*model.Patient, error)
	UpdateStatus(ctx context.Context, token int, status model.PatientStatus, reason *string) error
	UpdateScore(ctx context.Context, token int, score, waitingMins float64) error
	UpdateLocation(ctx context.Context, token int, loc model.Location, travelETAMins float64) error
	ListActive(ctx context.Context) ([]*model.Patient, error)
}

// QueueStateRepository backs the global queue state: the durable token
// counter and daily statistics.
type QueueStateRepository interface {
	NextToken(ctx context.Context) (int, error)
	LastToken(ctx context.Context) (int, error)
	RecordBooking(ctx context.Context, emergency bool) error
	RecordCompletion(ctx context.Context, waitMins, consultMins float64) error
	RecordCancellation(ctx context.Context) error
	RecordNoShow(ctx context.Context) error
	RecordReorder(ctx context.Context) error
	ResetDailyStats(ctx context.Context, date string) error
}

// DoctorRepository provides doctor capacity for ETA prediction.
type DoctorRepository interface {
	CountAvailable(ctx context.Context) (int, error)
	RecordConsultation(ctx context.Context, consultMins float64) error
}

// NotificationRepository records outbound patient notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	UpdateStatus(ctx context.Context, id string, status string) error
}
