package scheduler

import (
	"time"

	"github.com/medisync/clinic-queue/internal/model"
)

// EventKind tags the triggers that drive orchestration. Dispatch over the
// kinds is exhaustive: adding a kind without extending the rule table is a
// compile-visible change, not a silently ignored string key.
type EventKind int

const (
	EventBooking EventKind = iota
	// EventCompletion fires whenever a patient leaves the waiting line:
	// completion, consultation start, cancellation or no-show. Everyone
	// behind moves up, so the follow-up actions are the same.
	EventCompletion
	EventLocationUpdate
	EventTick
)

func (k EventKind) String() string {
	switch k {
	case EventBooking:
		return "booking"
	case EventCompletion:
		return "completion"
	case EventLocationUpdate:
		return "location_update"
	case EventTick:
		return "tick"
	}
	return "unknown"
}

// Action names the operations a rule can schedule.
type Action string

const (
	ActionOptimize      Action = "optimize"
	ActionRecomputeETAs Action = "recompute_etas"
	ActionNotify        Action = "notify"
	ActionNotifyNext    Action = "notify_next_patient"
	ActionPatientETA    Action = "recompute_patient_eta"
	ActionLongWaitAlert Action = "long_wait_alert"
)

// EventContext carries the queue facts a rule condition may inspect,
// captured right after the triggering operation committed.
type EventContext struct {
	Kind          EventKind
	Patient       *model.Patient
	QueueSize     int
	AvgUrgency    float64
	UrgencySpread int
	LongestWait   time.Duration
	MaxWaitTime   time.Duration
	LongWaiters   []int
}

// Rule maps (event, condition) to an ordered action list. A nil condition
// always fires.
type Rule struct {
	Event   EventKind
	When    func(EventContext) bool
	Actions []Action
}

// Rules is the orchestration decision table, evaluated top to bottom after
// the triggering operation commits. Actions are at-least-effort: a failing
// action is logged and skipped, never rolled back.
func Rules(imbalanceThreshold int) []Rule {
	return []Rule{
		{
			Event:   EventBooking,
			When:    func(e EventContext) bool { return e.Patient != nil && e.Patient.Urgency >= 7 },
			Actions: []Action{ActionOptimize, ActionRecomputeETAs, ActionNotify},
		},
		{
			Event:   EventBooking,
			When:    func(e EventContext) bool { return e.QueueSize > 5 },
			Actions: []Action{ActionRecomputeETAs, ActionNotify},
		},
		{
			Event:   EventBooking,
			Actions: []Action{ActionNotify},
		},
		{
			Event: EventBooking,
			When: func(e EventContext) bool {
				return e.Patient != nil && float64(e.Patient.Urgency) > e.AvgUrgency+3
			},
			Actions: []Action{ActionOptimize},
		},
		{
			Event:   EventCompletion,
			Actions: []Action{ActionOptimize, ActionRecomputeETAs, ActionNotifyNext},
		},
		{
			Event: EventLocationUpdate,
			When: func(e EventContext) bool {
				return e.Patient != nil && e.Patient.Tier >= model.TierPriority
			},
			Actions: []Action{ActionOptimize},
		},
		{
			Event:   EventLocationUpdate,
			Actions: []Action{ActionPatientETA},
		},
		{
			Event:   EventTick,
			When:    func(e EventContext) bool { return len(e.LongWaiters) > 0 },
			Actions: []Action{ActionLongWaitAlert},
		},
		{
			Event:   EventTick,
			When:    func(e EventContext) bool { return e.UrgencySpread > imbalanceThreshold },
			Actions: []Action{ActionOptimize},
		},
	}
}

// ActionResult records one executed action and its outcome.
type ActionResult struct {
	Action Action
	Err    error
}

// ActionLog is the ordered record of everything a trigger executed.
type ActionLog []ActionResult

// Contains reports whether the log includes action.
func (l ActionLog) Contains(action Action) bool {
	for _, r := range l {
		if r.Action == action {
			return true
		}
	}
	return false
}
