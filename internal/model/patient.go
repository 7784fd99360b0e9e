package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PatientStatus tracks the queue lifecycle of a patient. Transitions are
// monotonic: WAITING -> IN_CONSULTATION -> COMPLETED, with side exits
// WAITING -> CANCELLED and WAITING -> NO_SHOW. Terminal states never change.
type PatientStatus string

const (
	PatientStatusWaiting        PatientStatus = "WAITING"
	PatientStatusInConsultation PatientStatus = "IN_CONSULTATION"
	PatientStatusCompleted      PatientStatus = "COMPLETED"
	PatientStatusCancelled      PatientStatus = "CANCELLED"
	PatientStatusNoShow         PatientStatus = "NO_SHOW"
)

// Terminal reports whether no further transition is allowed out of s.
func (s PatientStatus) Terminal() bool {
	switch s {
	case PatientStatusCompleted, PatientStatusCancelled, PatientStatusNoShow:
		return true
	}
	return false
}

// EmergencyTier is the coarse clinical class acting as the primary sort key
// above the numeric score. Higher value = more urgent.
type EmergencyTier int

const (
	TierNormal EmergencyTier = iota
	TierModerate
	TierPriority
	TierCritical
)

func (t EmergencyTier) String() string {
	switch t {
	case TierCritical:
		return "CRITICAL"
	case TierPriority:
		return "PRIORITY"
	case TierModerate:
		return "MODERATE"
	default:
		return "NORMAL"
	}
}

// ParseTier maps a tier label to its canonical value. "HIGH" is an accepted
// alias of PRIORITY. Unknown labels fail closed to NORMAL.
func ParseTier(s string) EmergencyTier {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return TierCritical
	case "PRIORITY", "HIGH":
		return TierPriority
	case "MODERATE":
		return TierModerate
	default:
		return TierNormal
	}
}

// TierForUrgency derives the emergency tier from a 1-10 urgency score.
func TierForUrgency(urgency int) EmergencyTier {
	switch {
	case urgency >= 9:
		return TierCritical
	case urgency >= 7:
		return TierPriority
	case urgency >= 5:
		return TierModerate
	default:
		return TierNormal
	}
}

// Location is a patient's last known position.
type Location struct {
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	Address   string  `db:"address" json:"address,omitempty"`
}

// Patient is a queue entry. Token is the queue identity: unique,
// monotonically assigned, never reused. ID is the persistence identity.
type Patient struct {
	ID      uuid.UUID `db:"id" json:"id"`
	Token   int       `db:"token" json:"token"`
	Name    string    `db:"name" json:"name"`
	Contact string    `db:"contact" json:"contact"`
	Age     int       `db:"age" json:"age,omitempty"`

	Symptoms        string        `db:"symptoms" json:"symptoms"`
	SymptomCategory string        `db:"symptom_category" json:"symptom_category"`
	Urgency         int           `db:"urgency" json:"urgency"`
	Tier            EmergencyTier `db:"tier" json:"tier"`

	Location *Location `db:"-" json:"location,omitempty"`

	Status   PatientStatus `db:"status" json:"status"`
	BookedAt time.Time     `db:"booked_at" json:"booked_at"`

	// Derived, recomputed by the scheduler on every re-rank.
	Score          float64 `db:"score" json:"score"`
	TravelETAMins  float64 `db:"travel_eta_mins" json:"travel_eta_mins"`
	TravelFallback bool    `db:"-" json:"-"`
	ConsultMins    float64 `db:"consult_mins" json:"consult_mins"`
	WaitingMins    float64 `db:"waiting_mins" json:"waiting_mins"`

	// PositionHistory is append-only, for audit and starvation analysis.
	PositionHistory []int `db:"-" json:"position_history,omitempty"`

	ConsultStartedAt *time.Time `db:"consult_started_at" json:"consult_started_at,omitempty"`
	CompletedAt      *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelReason     *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the patient still occupies a queue position.
func (p *Patient) Active() bool {
	return p.Status == PatientStatusWaiting
}

// PatientIntake is the booking request payload.
type PatientIntake struct {
	Name     string    `json:"name" binding:"required"`
	Contact  string    `json:"contact" binding:"required,contact"`
	Symptoms string    `json:"symptoms" binding:"required"`
	Age      int       `json:"age" binding:"omitempty,gte=0,lte=130"`
	Urgency  int       `json:"urgency" binding:"omitempty,gte=1,lte=10"`
	Tier     string    `json:"tier" binding:"omitempty"`
	Location *Location `json:"location,omitempty"`
}

// UpdateLocationRequest carries a location update for a waiting patient.
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	Address   string  `json:"address"`
}

// CancelRequest carries a cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason"`
}
