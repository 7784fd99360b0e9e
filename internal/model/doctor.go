package model

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a capacity input to the ETA engine. The scheduler treats all
// available doctors as a single pooled service rate; per-doctor assignment
// is out of scope.
type Doctor struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	Name               string    `db:"name" json:"name"`
	Specialization     string    `db:"specialization" json:"specialization"`
	Available          bool      `db:"available" json:"available"`
	ConsultationsToday int       `db:"consultations_today" json:"consultations_today"`
	ConsultationsTotal int       `db:"consultations_total" json:"consultations_total"`
	AvgConsultMins     float64   `db:"avg_consult_mins" json:"avg_consult_mins"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Notification is a queued message to a patient about a queue change.
type Notification struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Token     int       `db:"token" json:"token"`
	Type      string    `db:"type" json:"type"`
	Message   string    `db:"message" json:"message"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"

	NotificationTypeRankChange = "RANK_CHANGE"
	NotificationTypeCallUp     = "CALL_UP"
	NotificationTypeLongWait   = "LONG_WAIT"
	NotificationTypeETAUpdate  = "ETA_UPDATE"
)
