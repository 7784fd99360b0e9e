package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medisync/clinic-queue/internal/config"
	"github.com/medisync/clinic-queue/internal/eta"
	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/internal/queue"
	"github.com/medisync/clinic-queue/internal/repository"
	apperrors "github.com/medisync/clinic-queue/pkg/errors"
	"github.com/medisync/clinic-queue/pkg/metrics"
)

// Notifier delivers patient-facing messages. Every method is best-effort:
// the scheduler logs failures and moves on, it never rolls a queue mutation
// back because a message could not be sent.
type Notifier interface {
	BookingConfirmed(ctx context.Context, p *model.Patient, result *model.BookingResult) error
	RankChanges(ctx context.Context, changes []model.RankChange) error
	NextPatient(ctx context.Context, token int) error
	LongWait(ctx context.Context, token int, waitingMins float64) error
	ETAUpdated(ctx context.Context, token int, summary *model.ETASummary) error
}

// Listener receives rank-change batches after every committed reorder.
type Listener func(changes []model.RankChange)

// Scheduler coordinates every queue mutation: booking, state transitions,
// location updates and periodic reordering. Mutations are serialized under a
// single mutex; ETA lookups and rule actions run outside it.
//
// The in-memory store is authoritative for ordering. Persistence is
// write-behind for everything except booking, which must reach the database
// before the caller is told it succeeded.
type Scheduler struct {
	cfg    config.QueueConfig
	store  *queue.Store
	state  *queue.State
	aging  queue.AgingPolicy
	engine *eta.Engine

	patients   repository.PatientRepository
	queueState repository.QueueStateRepository
	doctors    repository.DoctorRepository

	notifier Notifier
	metrics  *metrics.Metrics
	rules    []Rule
	logger   zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	inConsult map[int]*model.Patient
	// terminal remembers tokens that reached a final status, so operations
	// on them can be rejected as conflicts rather than unknown tokens even
	// without durable storage. Pruned on daily rollover.
	terminal  map[int]model.PatientStatus

	listenerMu sync.RWMutex
	listeners  []Listener
}

// Deps bundles the scheduler's collaborators. Repositories, notifier and
// metrics may be nil; the scheduler then runs fully in memory.
type Deps struct {
	Store      *queue.Store
	State      *queue.State
	Engine     *eta.Engine
	Patients   repository.PatientRepository
	QueueState repository.QueueStateRepository
	Doctors    repository.DoctorRepository
	Notifier   Notifier
	Metrics    *metrics.Metrics
}

func New(cfg config.QueueConfig, deps Deps, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		store:      deps.Store,
		state:      deps.State,
		aging:      queue.NewAgingPolicy(cfg),
		engine:     deps.Engine,
		patients:   deps.Patients,
		queueState: deps.QueueState,
		doctors:    deps.Doctors,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		rules:      Rules(cfg.ImbalanceThreshold),
		logger:     logger.With().Str("component", "scheduler").Logger(),
		now:        time.Now,
		inConsult:  make(map[int]*model.Patient),
		terminal:   make(map[int]model.PatientStatus),
	}
}

// Subscribe registers a listener for rank-change batches.
func (s *Scheduler) Subscribe(fn Listener) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Restore reloads active patients and the token counter after a restart.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.queueState != nil {
		last, err := s.queueState.LastToken(ctx)
		if err != nil {
			return fmt.Errorf("restore token counter: %w", err)
		}
		s.state.SyncToken(last)
	}
	if s.patients == nil {
		return nil
	}
	active, err := s.patients.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("restore active patients: %w", err)
	}
	now := s.now()
	for _, p := range active {
		s.state.SyncToken(p.Token)
		s.store.Insert(p, now)
	}
	s.logger.Info().Int("patients", len(active)).Msg("queue restored")
	return nil
}

// Book validates the intake, assigns the next token and inserts the patient
// into the queue. The patient record is persisted before success is
// reported; everything after that point is best-effort.
func (s *Scheduler) Book(ctx context.Context, intake *model.PatientIntake) (*model.BookingResult, ActionLog, error) {
	if err := validateIntake(intake); err != nil {
		return nil, nil, err
	}

	analysis := eta.AnalyzeSymptoms(intake.Symptoms)
	urgency := intake.Urgency
	if urgency < 1 || urgency > 10 {
		urgency = analysis.Urgency
	}
	tier := model.TierForUrgency(urgency)
	if intake.Tier != "" {
		tier = model.ParseTier(intake.Tier)
	}

	// Travel lookup happens before the queue lock; a slow provider must not
	// stall concurrent bookings.
	travel := s.engine.EstimateTravel(ctx, intake.Location)

	now := s.now()
	s.mu.Lock()
	token, err := s.allocateToken(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}

	p := &model.Patient{
		ID:              uuid.New(),
		Token:           token,
		Name:            intake.Name,
		Contact:         intake.Contact,
		Age:             intake.Age,
		Symptoms:        intake.Symptoms,
		SymptomCategory: analysis.Category,
		Urgency:         urgency,
		Tier:            tier,
		Location:        intake.Location,
		Status:          model.PatientStatusWaiting,
		BookedAt:        now,
		TravelETAMins:   travel.TravelMins,
		TravelFallback:  travel.Fallback,
		ConsultMins:     analysis.ConsultMins,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if s.patients != nil {
		if err := s.patients.Create(ctx, p); err != nil {
			s.mu.Unlock()
			return nil, nil, fmt.Errorf("persist booking: %w", err)
		}
	}

	position := s.store.Insert(p, now)
	s.state.RecordBooking(tier > model.TierNormal)
	s.mu.Unlock()

	if s.queueState != nil {
		if err := s.queueState.RecordBooking(ctx, tier > model.TierNormal); err != nil {
			s.logger.Warn().Err(err).Int("token", token).Msg("failed to record booking stats")
		}
	}
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(tier.String()).Inc()
		s.metrics.QueueDepth.Set(float64(s.store.Len()))
	}
	s.logger.Info().
		Int("token", token).
		Int("position", position).
		Str("tier", tier.String()).
		Int("urgency", urgency).
		Str("category", analysis.Category).
		Msg("patient booked")

	result := &model.BookingResult{
		Token:    token,
		Position: position,
		ETA:      s.predict(ctx, p, now),
	}

	log := s.runRules(ctx, s.eventContext(EventBooking, p))
	// The rules may have reordered the queue; report the committed position.
	if pos := s.store.Position(token); pos > 0 {
		result.Position = pos
	}
	return result, log, nil
}

// StartConsultation moves a waiting patient to IN_CONSULTATION and frees
// their queue position.
func (s *Scheduler) StartConsultation(ctx context.Context, token int) (*model.Patient, ActionLog, error) {
	now := s.now()
	s.mu.Lock()
	if _, busy := s.inConsult[token]; busy {
		s.mu.Unlock()
		return nil, nil, apperrors.InvalidState(fmt.Sprintf("patient %d is already in consultation", token), nil)
	}
	p, ok := s.store.Remove(token)
	if !ok {
		s.mu.Unlock()
		return nil, nil, s.departedErr(ctx, token)
	}
	p.Status = model.PatientStatusInConsultation
	p.ConsultStartedAt = &now
	p.UpdatedAt = now
	s.inConsult[token] = p
	s.state.RecordConsultationStart()
	s.mu.Unlock()

	s.persistStatus(ctx, token, model.PatientStatusInConsultation, nil)
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(s.store.Len()))
	}
	s.logger.Info().Int("token", token).Msg("consultation started")

	log := s.runRules(ctx, s.eventContext(EventCompletion, p))
	return p, log, nil
}

// Complete finishes a patient's visit, from either WAITING or
// IN_CONSULTATION, and folds the observed durations into the daily stats.
func (s *Scheduler) Complete(ctx context.Context, token int) (*model.Patient, ActionLog, error) {
	now := s.now()
	s.mu.Lock()

	var (
		p           *model.Patient
		waitMins    float64
		consultMins float64
	)
	if q, ok := s.inConsult[token]; ok {
		p = q
		delete(s.inConsult, token)
		waitMins = p.ConsultStartedAt.Sub(p.BookedAt).Minutes()
		consultMins = now.Sub(*p.ConsultStartedAt).Minutes()
	} else if q, ok := s.store.Remove(token); ok {
		// Completed straight from the waiting line. No observed consultation
		// duration exists, so the estimate stands in for the stats.
		p = q
		waitMins = now.Sub(p.BookedAt).Minutes()
		consultMins = p.ConsultMins
	} else {
		s.mu.Unlock()
		return nil, nil, s.departedErr(ctx, token)
	}

	p.Status = model.PatientStatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
	s.terminal[token] = model.PatientStatusCompleted
	s.state.RecordCompletion(waitMins, consultMins)
	s.mu.Unlock()

	s.persistStatus(ctx, token, model.PatientStatusCompleted, nil)
	if s.queueState != nil {
		if err := s.queueState.RecordCompletion(ctx, waitMins, consultMins); err != nil {
			s.logger.Warn().Err(err).Int("token", token).Msg("failed to record completion stats")
		}
	}
	if s.doctors != nil {
		if err := s.doctors.RecordConsultation(ctx, consultMins); err != nil {
			s.logger.Warn().Err(err).Int("token", token).Msg("failed to record consultation")
		}
	}
	if s.metrics != nil {
		s.metrics.CompletionsTotal.Inc()
		s.metrics.WaitTime.Observe(waitMins)
		s.metrics.ConsultTime.Observe(consultMins)
		s.metrics.QueueDepth.Set(float64(s.store.Len()))
	}
	s.logger.Info().
		Int("token", token).
		Float64("wait_mins", waitMins).
		Float64("consult_mins", consultMins).
		Msg("consultation completed")

	log := s.runRules(ctx, s.eventContext(EventCompletion, p))
	return p, log, nil
}

// Cancel removes a waiting patient from the queue. A patient already in
// consultation cannot cancel.
func (s *Scheduler) Cancel(ctx context.Context, token int, reason string) (*model.Patient, ActionLog, error) {
	now := s.now()
	s.mu.Lock()
	if _, busy := s.inConsult[token]; busy {
		s.mu.Unlock()
		return nil, nil, apperrors.InvalidState(fmt.Sprintf("patient %d is in consultation", token), nil)
	}
	p, ok := s.store.Remove(token)
	if !ok {
		s.mu.Unlock()
		return nil, nil, s.departedErr(ctx, token)
	}
	p.Status = model.PatientStatusCancelled
	if reason != "" {
		p.CancelReason = &reason
	}
	p.UpdatedAt = now
	s.terminal[token] = model.PatientStatusCancelled
	s.state.RecordCancellation()
	s.mu.Unlock()

	s.persistStatus(ctx, token, model.PatientStatusCancelled, p.CancelReason)
	if s.queueState != nil {
		if err := s.queueState.RecordCancellation(ctx); err != nil {
			s.logger.Warn().Err(err).Int("token", token).Msg("failed to record cancellation stats")
		}
	}
	if s.metrics != nil {
		s.metrics.CancellationsTotal.Inc()
		s.metrics.QueueDepth.Set(float64(s.store.Len()))
	}
	s.logger.Info().Int("token", token).Str("reason", reason).Msg("booking cancelled")

	log := s.runRules(ctx, s.eventContext(EventCompletion, p))
	return p, log, nil
}

// MarkNoShow records that a waiting patient did not appear when called.
func (s *Scheduler) MarkNoShow(ctx context.Context, token int) (*model.Patient, ActionLog, error) {
	s.mu.Lock()
	p, ok := s.store.Remove(token)
	if !ok {
		s.mu.Unlock()
		return nil, nil, s.departedErr(ctx, token)
	}
	p.Status = model.PatientStatusNoShow
	p.UpdatedAt = s.now()
	s.terminal[token] = model.PatientStatusNoShow
	s.state.RecordNoShow()
	s.mu.Unlock()

	s.persistStatus(ctx, token, model.PatientStatusNoShow, nil)
	if s.queueState != nil {
		if err := s.queueState.RecordNoShow(ctx); err != nil {
			s.logger.Warn().Err(err).Int("token", token).Msg("failed to record no-show stats")
		}
	}
	if s.metrics != nil {
		s.metrics.NoShowsTotal.Inc()
		s.metrics.QueueDepth.Set(float64(s.store.Len()))
	}
	s.logger.Info().Int("token", token).Msg("patient marked no-show")

	log := s.runRules(ctx, s.eventContext(EventCompletion, p))
	return p, log, nil
}

// UpdateLocation records a waiting patient's new position and refreshes
// their travel estimate and appointment forecast.
func (s *Scheduler) UpdateLocation(ctx context.Context, token int, req *model.UpdateLocationRequest) (*model.ETASummary, ActionLog, error) {
	if req == nil {
		return nil, nil, apperrors.Validation("location payload is required", nil)
	}
	s.mu.Lock()
	if _, busy := s.inConsult[token]; busy {
		s.mu.Unlock()
		return nil, nil, apperrors.InvalidState(fmt.Sprintf("patient %d is in consultation", token), nil)
	}
	s.mu.Unlock()

	loc := model.Location{Latitude: req.Latitude, Longitude: req.Longitude, Address: req.Address}
	travel := s.engine.EstimateTravel(ctx, &loc)

	updated := s.store.Update(token, func(p *model.Patient) {
		p.Location = &loc
		p.TravelETAMins = travel.TravelMins
		p.TravelFallback = travel.Fallback
		p.UpdatedAt = s.now()
	})
	if !updated {
		return nil, nil, s.departedErr(ctx, token)
	}

	if s.patients != nil {
		if err := s.patients.UpdateLocation(ctx, token, loc, travel.TravelMins); err != nil {
			s.logger.Warn().Err(err).Int("token", token).Msg("failed to persist location")
		}
	}
	if s.metrics != nil && travel.Fallback {
		s.metrics.GeoFallbacksTotal.Inc()
	}

	p, _ := s.store.Get(token)
	log := s.runRules(ctx, s.eventContext(EventLocationUpdate, p))

	return s.predict(ctx, p, s.now()), log, nil
}

// Optimize recomputes every active patient's composite score, re-sorts and
// fans out the resulting rank changes. Idempotent when nothing changed.
func (s *Scheduler) Optimize(ctx context.Context, reason string) []model.RankChange {
	now := s.now()
	changes := s.store.Reorder(now)
	s.state.RecordReorder()
	if s.queueState != nil {
		if err := s.queueState.RecordReorder(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to record reorder stats")
		}
	}
	if s.metrics != nil {
		s.metrics.ReordersTotal.Inc()
		s.metrics.RankChangesTotal.Add(float64(len(changes)))
	}
	if len(changes) == 0 {
		return nil
	}

	for i := range changes {
		changes[i].Reason = reason
	}
	if s.patients != nil {
		for _, c := range changes {
			if p, ok := s.store.Get(c.Token); ok {
				if err := s.patients.UpdateScore(ctx, c.Token, p.Score, p.WaitingMins); err != nil {
					s.logger.Warn().Err(err).Int("token", c.Token).Msg("failed to persist score")
				}
			}
		}
	}
	if s.notifier != nil {
		if err := s.notifier.RankChanges(ctx, changes); err != nil {
			s.logger.Warn().Err(err).Msg("failed to notify rank changes")
		}
	}

	s.listenerMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(changes)
	}

	s.logger.Info().Int("changes", len(changes)).Str("reason", reason).Msg("queue reordered")
	return changes
}

// Tick is the periodic maintenance pass: apply aging, reorder, then run the
// tick rules (long-wait alerts, imbalance-driven optimization).
func (s *Scheduler) Tick(ctx context.Context) ActionLog {
	s.Optimize(ctx, "aging")

	ectx := s.eventContext(EventTick, nil)
	s.state.SetLongestWait(ectx.LongestWait.Minutes())
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(s.store.Len()))
	}
	return s.runRules(ctx, ectx)
}

// Position reports a patient's current rank and estimated wait.
func (s *Scheduler) Position(ctx context.Context, token int) (*model.Position, error) {
	p, ok := s.store.Get(token)
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("patient %d", token), nil)
	}
	rank := s.store.Position(token)
	summary := s.predict(ctx, p, s.now())

	pos := &model.Position{
		Token:      token,
		Rank:       rank,
		TotalAhead: rank - 1,
		Score:      p.Score,
	}
	if summary != nil {
		pos.EstimatedWaitMins = summary.WaitMins
	}
	return pos, nil
}

// Patient resolves a token from the live queue first, then the consultation
// set, then durable storage for terminal records.
func (s *Scheduler) Patient(ctx context.Context, token int) (*model.Patient, error) {
	if p, ok := s.store.Get(token); ok {
		return p, nil
	}
	s.mu.Lock()
	p, ok := s.inConsult[token]
	s.mu.Unlock()
	if ok {
		return p, nil
	}
	if s.patients != nil {
		return s.patients.GetByToken(ctx, token)
	}
	return nil, apperrors.NotFound(fmt.Sprintf("patient %d", token), nil)
}

// ETA forecasts the appointment for a waiting patient.
func (s *Scheduler) ETA(ctx context.Context, token int) (*model.ETASummary, error) {
	p, ok := s.store.Get(token)
	if !ok {
		return nil, apperrors.NotFound(fmt.Sprintf("patient %d", token), nil)
	}
	summary := s.predict(ctx, p, s.now())
	if summary == nil {
		return nil, apperrors.Internal(fmt.Errorf("no forecast for token %d", token))
	}
	return summary, nil
}

// Snapshot returns a consistent projection of the waiting queue.
func (s *Scheduler) Snapshot() *model.QueueSnapshot {
	return s.store.Snapshot(s.now())
}

// Stats returns the live counters and daily statistics.
func (s *Scheduler) Stats() model.QueueStats {
	return s.state.Stats()
}

// RollOverDay resets daily statistics when the local date changes.
func (s *Scheduler) RollOverDay(ctx context.Context) bool {
	now := s.now()
	if !s.state.RollOver(now) {
		return false
	}
	s.mu.Lock()
	s.terminal = make(map[int]model.PatientStatus)
	s.mu.Unlock()
	if s.queueState != nil {
		if err := s.queueState.ResetDailyStats(ctx, now.Format("2006-01-02")); err != nil {
			s.logger.Warn().Err(err).Msg("failed to reset durable daily stats")
		}
	}
	s.logger.Info().Str("date", now.Format("2006-01-02")).Msg("daily statistics reset")
	return true
}

func (s *Scheduler) allocateToken(ctx context.Context) (int, error) {
	if s.queueState != nil {
		token, err := s.queueState.NextToken(ctx)
		if err != nil {
			return 0, fmt.Errorf("allocate token: %w", err)
		}
		s.state.SyncToken(token)
		return token, nil
	}
	return s.state.NextToken(), nil
}

// departedErr classifies a token that is neither waiting nor in
// consultation: a record that already reached a final status is a state
// conflict, anything else is unknown. Durable storage is consulted when
// the in-memory set misses, so the distinction survives restarts.
func (s *Scheduler) departedErr(ctx context.Context, token int) error {
	s.mu.Lock()
	status, seen := s.terminal[token]
	s.mu.Unlock()
	if !seen && s.patients != nil {
		if p, err := s.patients.GetByToken(ctx, token); err == nil && p != nil && p.Status.Terminal() {
			status, seen = p.Status, true
		}
	}
	if seen {
		return apperrors.InvalidState(fmt.Sprintf("patient %d is already %s", token, status), nil)
	}
	return apperrors.NotFound(fmt.Sprintf("patient %d", token), nil)
}

func (s *Scheduler) persistStatus(ctx context.Context, token int, status model.PatientStatus, reason *string) {
	if s.patients == nil {
		return
	}
	if err := s.patients.UpdateStatus(ctx, token, status, reason); err != nil {
		s.logger.Warn().Err(err).Int("token", token).Str("status", string(status)).Msg("failed to persist status")
	}
}

func (s *Scheduler) doctorsAvailable(ctx context.Context) int {
	if s.doctors == nil {
		return 1
	}
	n, err := s.doctors.CountAvailable(ctx)
	if err != nil || n < 1 {
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to count doctors, assuming one")
		}
		return 1
	}
	return n
}

func (s *Scheduler) predict(ctx context.Context, p *model.Patient, now time.Time) *model.ETASummary {
	if p == nil {
		return nil
	}
	snap := s.store.Snapshot(now)
	return s.engine.PredictAppointment(p, snap, s.doctorsAvailable(ctx), now)
}

// eventContext captures the queue facts the rule conditions inspect.
func (s *Scheduler) eventContext(kind EventKind, subject *model.Patient) EventContext {
	now := s.now()
	snap := s.store.Snapshot(now)

	ectx := EventContext{
		Kind:        kind,
		Patient:     subject,
		QueueSize:   snap.Total(),
		MaxWaitTime: s.cfg.MaxWaitTime,
	}

	var (
		sum     int
		others  int
		minU    = 11
		maxU    = 0
		longest time.Duration
	)
	for _, e := range snap.Entries {
		if e.Urgency < minU {
			minU = e.Urgency
		}
		if e.Urgency > maxU {
			maxU = e.Urgency
		}
		wait := now.Sub(e.BookedAt)
		if wait > longest {
			longest = wait
		}
		if wait >= s.cfg.MaxWaitTime {
			ectx.LongWaiters = append(ectx.LongWaiters, e.Token)
		}
		if subject == nil || e.Token != subject.Token {
			sum += e.Urgency
			others++
		}
	}
	if others > 0 {
		ectx.AvgUrgency = float64(sum) / float64(others)
	}
	if maxU >= minU {
		ectx.UrgencySpread = maxU - minU
	}
	ectx.LongestWait = longest
	return ectx
}

// runRules evaluates the decision table for the event and executes the
// scheduled actions in order. Each action fails independently; the returned
// log records everything that ran and how it went.
func (s *Scheduler) runRules(ctx context.Context, ectx EventContext) ActionLog {
	var log ActionLog
	for _, rule := range s.rules {
		if rule.Event != ectx.Kind {
			continue
		}
		if rule.When != nil && !rule.When(ectx) {
			continue
		}
		for _, action := range rule.Actions {
			err := s.execAction(ctx, action, ectx)
			log = append(log, ActionResult{Action: action, Err: err})
			if s.metrics != nil {
				s.metrics.RuleActionsTotal.WithLabelValues(string(action)).Inc()
				if err != nil {
					s.metrics.RuleActionFailures.WithLabelValues(string(action)).Inc()
				}
			}
			if err != nil {
				s.logger.Warn().Err(err).
					Str("event", ectx.Kind.String()).
					Str("action", string(action)).
					Msg("rule action failed")
			}
		}
	}
	return log
}

func (s *Scheduler) execAction(ctx context.Context, action Action, ectx EventContext) error {
	switch action {
	case ActionOptimize:
		s.Optimize(ctx, ectx.Kind.String())
		return nil

	case ActionRecomputeETAs:
		return s.recomputeTravelETAs(ctx)

	case ActionNotify:
		if s.notifier == nil || ectx.Patient == nil {
			return nil
		}
		result := &model.BookingResult{
			Token:    ectx.Patient.Token,
			Position: s.store.Position(ectx.Patient.Token),
		}
		return s.notifier.BookingConfirmed(ctx, ectx.Patient, result)

	case ActionNotifyNext:
		if s.notifier == nil {
			return nil
		}
		tokens := s.store.Tokens()
		if len(tokens) == 0 {
			return nil
		}
		return s.notifier.NextPatient(ctx, tokens[0])

	case ActionPatientETA:
		if ectx.Patient == nil {
			return nil
		}
		summary := s.predict(ctx, ectx.Patient, s.now())
		if s.notifier == nil || summary == nil {
			return nil
		}
		return s.notifier.ETAUpdated(ctx, ectx.Patient.Token, summary)

	case ActionLongWaitAlert:
		if s.notifier == nil {
			return nil
		}
		now := s.now()
		var firstErr error
		for _, token := range ectx.LongWaiters {
			p, ok := s.store.Get(token)
			if !ok {
				continue
			}
			if err := s.notifier.LongWait(ctx, token, now.Sub(p.BookedAt).Minutes()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return fmt.Errorf("unknown action %q", action)
}

// recomputeTravelETAs refreshes travel estimates for every located patient.
// The lookups run without any queue lock; the batch commits only if no
// reorder landed in between, otherwise the next pass picks it up.
func (s *Scheduler) recomputeTravelETAs(ctx context.Context) error {
	startSeq := s.store.Seq()
	snap := s.store.Snapshot(s.now())

	etas := make(map[int]float64, len(snap.Entries))
	for _, e := range snap.Entries {
		p, ok := s.store.Get(e.Token)
		if !ok || p.Location == nil {
			continue
		}
		route := s.engine.EstimateTravel(ctx, p.Location)
		etas[e.Token] = route.TravelMins
	}
	if len(etas) == 0 {
		return nil
	}
	if !s.store.ApplyTravelETAs(startSeq, etas) {
		s.logger.Debug().Msg("travel batch superseded by a reorder, discarded")
	}
	return nil
}

func validateIntake(intake *model.PatientIntake) error {
	if intake == nil {
		return apperrors.Validation("booking payload is required", nil)
	}
	if intake.Name == "" {
		return apperrors.Validation("name is required", nil)
	}
	if intake.Contact == "" {
		return apperrors.Validation("contact is required", nil)
	}
	if intake.Symptoms == "" {
		return apperrors.Validation("symptoms are required", nil)
	}
	if intake.Urgency != 0 && (intake.Urgency < 1 || intake.Urgency > 10) {
		return apperrors.Validation("urgency must be between 1 and 10", nil)
	}
	return nil
}
