package queue

import (
	"sync"
	"time"

	"github.com/medisync/clinic-queue/internal/model"
)

// State holds the per-clinic global counters: the token counter, daily
// statistics and live metrics. Exactly one instance exists per clinic and
// all mutation goes through serialized methods. Daily counters reset at
// local midnight; the token counter and configuration survive resets.
type State struct {
	mu        sync.Mutex
	nextToken int
	daily     model.DailyStats
	metrics   model.QueueMetrics
	statsDate string
}

// NewState starts the token counter after lastToken (0 for a fresh clinic).
func NewState(lastToken int, now time.Time) *State {
	return &State{
		nextToken: lastToken,
		statsDate: now.Format("2006-01-02"),
		daily:     model.DailyStats{Date: now.Format("2006-01-02")},
	}
}

// NextToken atomically allocates the next token number. Strictly
// increasing, never reused.
func (s *State) NextToken() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	return s.nextToken
}

// SyncToken advances the counter to at least token. Used when the durable
// counter is ahead of the in-memory one after a restart.
func (s *State) SyncToken(token int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token > s.nextToken {
		s.nextToken = token
	}
}

// LastToken returns the most recently allocated token.
func (s *State) LastToken() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextToken
}

func (s *State) RecordBooking(emergency bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily.Bookings++
	if emergency {
		s.daily.EmergencyCount++
	}
	s.metrics.PatientsWaiting++
}

func (s *State) RecordConsultationStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics.PatientsWaiting > 0 {
		s.metrics.PatientsWaiting--
	}
	s.metrics.PatientsInConsultation++
}

// RecordCompletion folds the observed wait and consultation durations into
// the rolling daily averages.
func (s *State) RecordCompletion(waitMins, consultMins float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily.Completions++
	n := float64(s.daily.Completions)
	if waitMins > 0 {
		s.daily.AvgWaitMins += (waitMins - s.daily.AvgWaitMins) / n
	}
	if consultMins > 0 {
		s.daily.AvgConsultMins += (consultMins - s.daily.AvgConsultMins) / n
	}
	if s.metrics.PatientsInConsultation > 0 {
		s.metrics.PatientsInConsultation--
	} else if s.metrics.PatientsWaiting > 0 {
		// Completed straight from WAITING, without a consultation start.
		s.metrics.PatientsWaiting--
	}
}

func (s *State) RecordCancellation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily.Cancellations++
	if s.metrics.PatientsWaiting > 0 {
		s.metrics.PatientsWaiting--
	}
}

func (s *State) RecordNoShow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daily.NoShows++
	if s.metrics.PatientsWaiting > 0 {
		s.metrics.PatientsWaiting--
	}
}

func (s *State) RecordReorder() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.TotalReorders++
}

func (s *State) SetLongestWait(mins float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.LongestWaitMins = mins
}

// RollOver resets daily counters when the local date changes. The token
// counter is untouched.
func (s *State) RollOver(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	date := now.Format("2006-01-02")
	if date == s.statsDate {
		return false
	}
	s.statsDate = date
	s.daily = model.DailyStats{Date: date}
	return true
}

// Stats returns a copy of the current counters.
func (s *State) Stats() model.QueueStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.QueueStats{
		NextToken: s.nextToken + 1,
		Daily:     s.daily,
		Metrics:   s.metrics,
	}
}
