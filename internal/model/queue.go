package model

import "time"

// QueueEntry is a read-only projection of one waiting patient.
type QueueEntry struct {
	Token       int           `json:"token"`
	Name        string        `json:"name"`
	Tier        EmergencyTier `json:"tier"`
	Urgency     int           `json:"urgency"`
	Score       float64       `json:"score"`
	Position    int           `json:"position"`
	WaitingMins float64       `json:"waiting_mins"`
	ConsultMins float64       `json:"consult_mins"`
	BookedAt    time.Time     `json:"booked_at"`
}

// QueueSnapshot is a point-in-time view of the active queue. It is always
// derivable from the patient set and never persisted independently.
type QueueSnapshot struct {
	TakenAt        time.Time    `json:"taken_at"`
	Entries        []QueueEntry `json:"entries"`
	EmergencyCount int          `json:"emergency_count"`
	RegularCount   int          `json:"regular_count"`
}

// Total returns the number of waiting patients in the snapshot.
func (s *QueueSnapshot) Total() int {
	return len(s.Entries)
}

// RankChange records one patient's position move after a reorder.
type RankChange struct {
	Token       int    `json:"token"`
	OldPosition int    `json:"old_position"`
	NewPosition int    `json:"new_position"`
	Reason      string `json:"reason,omitempty"`
}

// ETASummary is the presentation form of an appointment prediction.
// Minutes are rounded here and nowhere earlier.
type ETASummary struct {
	AppointmentAt time.Time `json:"appointment_at"`
	DepartBy      time.Time `json:"depart_by"`
	WaitMins      int       `json:"wait_mins"`
	TravelMins    int       `json:"travel_mins"`
	ConsultMins   int       `json:"consult_mins"`
	UsedFallback  bool      `json:"used_fallback,omitempty"`
	DoctorsOnDuty int       `json:"doctors_on_duty"`
	PatientsAhead int       `json:"patients_ahead"`
}

// BookingResult is returned to the booking endpoint.
type BookingResult struct {
	Token    int         `json:"token"`
	Position int         `json:"position"`
	ETA      *ETASummary `json:"eta,omitempty"`
}

// Position describes a patient's current standing in the queue.
type Position struct {
	Token             int     `json:"token"`
	Rank              int     `json:"rank"`
	TotalAhead        int     `json:"total_ahead"`
	EstimatedWaitMins int     `json:"estimated_wait_mins"`
	Score             float64 `json:"score"`
}

// DailyStats are per-day counters, reset at local midnight.
type DailyStats struct {
	Date           string  `db:"date" json:"date"`
	Bookings       int     `db:"bookings" json:"bookings"`
	Completions    int     `db:"completions" json:"completions"`
	Cancellations  int     `db:"cancellations" json:"cancellations"`
	NoShows        int     `db:"no_shows" json:"no_shows"`
	EmergencyCount int     `db:"emergency_count" json:"emergency_count"`
	AvgWaitMins    float64 `db:"avg_wait_mins" json:"avg_wait_mins"`
	AvgConsultMins float64 `db:"avg_consult_mins" json:"avg_consult_mins"`
}

// QueueMetrics are live gauges over the active queue.
type QueueMetrics struct {
	PatientsWaiting        int     `json:"patients_waiting"`
	PatientsInConsultation int     `json:"patients_in_consultation"`
	LongestWaitMins        float64 `json:"longest_wait_mins"`
	TotalReorders          int     `json:"total_reorders"`
}

// QueueStats is the dashboard projection of global queue state.
type QueueStats struct {
	NextToken int          `json:"next_token"`
	Daily     DailyStats   `json:"daily"`
	Metrics   QueueMetrics `json:"metrics"`
}
