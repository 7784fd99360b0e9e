package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisync/clinic-queue/internal/config"
	"github.com/medisync/clinic-queue/internal/eta"
	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/internal/queue"
	apperrors "github.com/medisync/clinic-queue/pkg/errors"
)

type stubGeo struct{}

func (stubGeo) DistanceAndTime(ctx context.Context, origin, dest model.Location) (eta.Route, error) {
	return eta.Route{DistanceKm: 3, TravelMins: 9}, nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	booked    []int
	called    []int
	longWaits []int
	etaTokens []int
	changes   [][]model.RankChange
}

func (f *fakeNotifier) BookingConfirmed(ctx context.Context, p *model.Patient, r *model.BookingResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.booked = append(f.booked, p.Token)
	return nil
}

func (f *fakeNotifier) RankChanges(ctx context.Context, changes []model.RankChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, changes)
	return nil
}

func (f *fakeNotifier) NextPatient(ctx context.Context, token int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, token)
	return nil
}

func (f *fakeNotifier) LongWait(ctx context.Context, token int, waitingMins float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.longWaits = append(f.longWaits, token)
	return nil
}

func (f *fakeNotifier) ETAUpdated(ctx context.Context, token int, summary *model.ETASummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.etaTokens = append(f.etaTokens, token)
	return nil
}

type testEnv struct {
	sched    *Scheduler
	store    *queue.Store
	notifier *fakeNotifier
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultQueueConfig()
	geoCfg := config.GeoConfig{
		Timeout:           time.Second,
		CacheTTL:          time.Minute,
		DefaultTravelMins: 20,
	}

	store := queue.NewStore(queue.NewScorer(cfg))
	state := queue.NewState(0, time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	engine := eta.NewEngine(stubGeo{}, geoCfg, cfg, zerolog.Nop())
	notifier := &fakeNotifier{}

	env := &testEnv{
		store:    store,
		notifier: notifier,
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	env.sched = New(cfg, Deps{
		Store:    store,
		State:    state,
		Engine:   engine,
		Notifier: notifier,
	}, zerolog.Nop())
	env.sched.now = func() time.Time { return env.clock }
	return env
}

func intake(name string, urgency int) *model.PatientIntake {
	return &model.PatientIntake{
		Name:     name,
		Contact:  "+911234567890",
		Symptoms: "routine checkup",
		Urgency:  urgency,
	}
}

func TestBookAssignsSequentialTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		result, _, err := env.sched.Book(ctx, intake("Patient", 3))
		require.NoError(t, err)
		assert.Equal(t, want, result.Token)
	}
	assert.Equal(t, 3, env.store.Len())
}

func TestBookValidatesBeforeMutation(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.sched.Book(context.Background(), &model.PatientIntake{Contact: "x", Symptoms: "fever"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	assert.Zero(t, env.store.Len(), "failed booking must not touch the queue")

	_, _, err = env.sched.Book(context.Background(), intake("P", 99))
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
	assert.Zero(t, env.store.Len())
}

func TestBookDerivesUrgencyFromSymptoms(t *testing.T) {
	env := newTestEnv(t)

	result, _, err := env.sched.Book(context.Background(), &model.PatientIntake{
		Name:     "P",
		Contact:  "+91",
		Symptoms: "severe chest pain, suspected heart attack",
	})
	require.NoError(t, err)

	p, err := env.sched.Patient(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Urgency)
	assert.Equal(t, model.TierCritical, p.Tier)
	assert.Equal(t, "emergency", p.SymptomCategory)
}

func TestBookConfirmationNotified(t *testing.T) {
	env := newTestEnv(t)

	result, log, err := env.sched.Book(context.Background(), intake("P", 3))
	require.NoError(t, err)
	assert.True(t, log.Contains(ActionNotify))
	assert.Contains(t, env.notifier.booked, result.Token)
}

func TestUrgentBookingTriggersOptimize(t *testing.T) {
	env := newTestEnv(t)

	_, log, err := env.sched.Book(context.Background(), intake("Urgent", 8))
	require.NoError(t, err)
	assert.True(t, log.Contains(ActionOptimize))
	assert.True(t, log.Contains(ActionRecomputeETAs))
}

func TestSixthBookingTriggersETARecompute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var last ActionLog
	for i := 0; i < 6; i++ {
		_, log, err := env.sched.Book(ctx, intake("P", 2))
		require.NoError(t, err)
		last = log
		if i < 5 {
			assert.False(t, log.Contains(ActionRecomputeETAs), "booking %d is below the size trigger", i+1)
		}
	}
	assert.True(t, last.Contains(ActionRecomputeETAs), "6th booking crosses the queue-size trigger")
}

func TestConcurrentBookingsAssignDistinctTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const n = 40

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		tokens = make(map[int]bool, n)
	)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, _, err := env.sched.Book(ctx, intake("P", 3))
			if err != nil {
				errs <- err
				return
			}
			mu.Lock()
			tokens[result.Token] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, tokens, n, "every booking got a distinct token")
	for want := 1; want <= n; want++ {
		assert.True(t, tokens[want], "token %d missing", want)
	}
	assert.Equal(t, n, env.store.Len())
}

func TestBookingETAFallbackFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	noLoc, _, err := env.sched.Book(ctx, intake("NoLocation", 3))
	require.NoError(t, err)
	require.NotNil(t, noLoc.ETA)
	assert.True(t, noLoc.ETA.UsedFallback, "missing origin uses the default estimate")

	with := intake("Located", 3)
	with.Location = &model.Location{Latitude: 12.95, Longitude: 77.61}
	located, _, err := env.sched.Book(ctx, with)
	require.NoError(t, err)
	require.NotNil(t, located.ETA)
	assert.False(t, located.ETA.UsedFallback, "road provider answered")
}

func TestCompleteUnknownTokenNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.sched.Complete(context.Background(), 404)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	_, _, err = env.sched.Cancel(context.Background(), 404, "")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	_, _, err = env.sched.MarkNoShow(context.Background(), 404)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	_, err = env.sched.Position(context.Background(), 404)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestCompleteRemovesExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := env.sched.Book(ctx, intake("P", 3))
		require.NoError(t, err)
	}

	p, log, err := env.sched.Complete(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusCompleted, p.Status)
	assert.Equal(t, 2, env.store.Len())
	assert.True(t, log.Contains(ActionNotifyNext))
	assert.Contains(t, env.notifier.called, 1, "head of queue is called up")

	_, _, err = env.sched.Complete(ctx, 2)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState), "second completion of the same token conflicts")
}

func TestOperationsOnDepartedPatientConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cancelled, _, err := env.sched.Book(ctx, intake("P", 3))
	require.NoError(t, err)
	_, _, err = env.sched.Cancel(ctx, cancelled.Token, "")
	require.NoError(t, err)

	// Every later verb on the departed token is a state conflict, not an
	// unknown token.
	_, _, err = env.sched.Complete(ctx, cancelled.Token)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
	_, _, err = env.sched.StartConsultation(ctx, cancelled.Token)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
	_, _, err = env.sched.MarkNoShow(ctx, cancelled.Token)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
	_, _, err = env.sched.UpdateLocation(ctx, cancelled.Token, &model.UpdateLocationRequest{Latitude: 12.95, Longitude: 77.61})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	noShow, _, err := env.sched.Book(ctx, intake("Q", 3))
	require.NoError(t, err)
	_, _, err = env.sched.MarkNoShow(ctx, noShow.Token)
	require.NoError(t, err)
	_, _, err = env.sched.Complete(ctx, noShow.Token)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	// A token never issued stays unknown.
	_, _, err = env.sched.Complete(ctx, 404)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestStartThenCompleteConsultation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, _, err := env.sched.Book(ctx, intake("P", 3))
	require.NoError(t, err)

	p, _, err := env.sched.StartConsultation(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusInConsultation, p.Status)
	require.NotNil(t, p.ConsultStartedAt)
	assert.Zero(t, env.store.Len(), "starting frees the queue position")

	// Starting again must conflict.
	_, _, err = env.sched.StartConsultation(ctx, result.Token)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))

	env.clock = env.clock.Add(20 * time.Minute)
	done, _, err := env.sched.Complete(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusCompleted, done.Status)

	stats := env.sched.Stats()
	assert.Equal(t, 1, stats.Daily.Completions)
	assert.InDelta(t, 20, stats.Daily.AvgConsultMins, 1e-9)
}

func TestCancelInConsultationConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, _, err := env.sched.Book(ctx, intake("P", 3))
	require.NoError(t, err)
	_, _, err = env.sched.StartConsultation(ctx, result.Token)
	require.NoError(t, err)

	_, _, err = env.sched.Cancel(ctx, result.Token, "changed my mind")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidState))
}

func TestCancelRecordsReason(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, _, err := env.sched.Book(ctx, intake("P", 3))
	require.NoError(t, err)

	p, _, err := env.sched.Cancel(ctx, result.Token, "feeling better")
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusCancelled, p.Status)
	require.NotNil(t, p.CancelReason)
	assert.Equal(t, "feeling better", *p.CancelReason)
	assert.Zero(t, env.store.Len())
}

func TestMarkNoShow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, _, err := env.sched.Book(ctx, intake("P", 3))
	require.NoError(t, err)

	p, _, err := env.sched.MarkNoShow(ctx, result.Token)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusNoShow, p.Status)
	assert.Equal(t, 1, env.sched.Stats().Daily.NoShows)
}

func TestUpdateLocationRefreshesTravelETA(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, _, err := env.sched.Book(ctx, intake("P", 3))
	require.NoError(t, err)

	summary, log, err := env.sched.UpdateLocation(ctx, result.Token, &model.UpdateLocationRequest{
		Latitude:  12.95,
		Longitude: 77.61,
	})
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, 9, summary.TravelMins)
	assert.True(t, log.Contains(ActionPatientETA))
	assert.Contains(t, env.notifier.etaTokens, result.Token)
}

func TestPriorityLocationUpdateTriggersOptimize(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, _, err := env.sched.Book(ctx, intake("Urgent", 8))
	require.NoError(t, err)

	_, log, err := env.sched.UpdateLocation(ctx, result.Token, &model.UpdateLocationRequest{
		Latitude:  12.95,
		Longitude: 77.61,
	})
	require.NoError(t, err)
	assert.True(t, log.Contains(ActionOptimize))
}

func TestUpdateLocationUnknownToken(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.sched.UpdateLocation(context.Background(), 404, &model.UpdateLocationRequest{
		Latitude:  12.95,
		Longitude: 77.61,
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestTickFiresLongWaitAlert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, _, err := env.sched.Book(ctx, intake("Patient", 3))
	require.NoError(t, err)

	env.clock = env.clock.Add(130 * time.Minute)
	log := env.sched.Tick(ctx)

	assert.True(t, log.Contains(ActionLongWaitAlert))
	assert.Contains(t, env.notifier.longWaits, result.Token)
}

func TestTickOptimizesOnUrgencyImbalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.sched.Book(ctx, intake("Low", 2))
	require.NoError(t, err)
	_, _, err = env.sched.Book(ctx, intake("High", 9))
	require.NoError(t, err)

	log := env.sched.Tick(ctx)
	assert.True(t, log.Contains(ActionOptimize), "urgency spread above the threshold forces a reorder")
}

func TestPositionReflectsRank(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	low, _, err := env.sched.Book(ctx, intake("Low", 2))
	require.NoError(t, err)
	_, _, err = env.sched.Book(ctx, intake("High", 9))
	require.NoError(t, err)

	pos, err := env.sched.Position(ctx, low.Token)
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Rank)
	assert.Equal(t, 1, pos.TotalAhead)
}

func TestSubscribeReceivesRankChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var mu sync.Mutex
	var received [][]model.RankChange
	env.sched.Subscribe(func(changes []model.RankChange) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, changes)
	})

	// Same tier, staggered bookings: aging eventually carries the earlier,
	// lower-urgency patient past the later one.
	_, _, err := env.sched.Book(ctx, intake("Early", 2))
	require.NoError(t, err)
	env.clock = env.clock.Add(30 * time.Minute)
	_, _, err = env.sched.Book(ctx, intake("Late", 4))
	require.NoError(t, err)

	env.clock = env.clock.Add(60 * time.Minute)
	changes := env.sched.Optimize(ctx, "test")
	require.NotEmpty(t, changes)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, received)
}

func TestRollOverResetsDaily(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.sched.Book(ctx, intake("P", 3))
	require.NoError(t, err)
	assert.Equal(t, 1, env.sched.Stats().Daily.Bookings)

	assert.False(t, env.sched.RollOverDay(ctx))

	env.clock = env.clock.Add(24 * time.Hour)
	assert.True(t, env.sched.RollOverDay(ctx))
	assert.Equal(t, 0, env.sched.Stats().Daily.Bookings)
}
