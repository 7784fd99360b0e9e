package eta

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medisync/clinic-queue/internal/config"
	"github.com/medisync/clinic-queue/internal/model"
)

type stubGeo struct {
	route Route
	err   error
	calls int
}

func (g *stubGeo) DistanceAndTime(ctx context.Context, origin, dest model.Location) (Route, error) {
	g.calls++
	if g.err != nil {
		return Route{}, g.err
	}
	return g.route, nil
}

func testGeoConfig() config.GeoConfig {
	return config.GeoConfig{
		Timeout:           time.Second,
		CacheTTL:          time.Minute,
		ClinicLatitude:    12.9716,
		ClinicLongitude:   77.5946,
		DefaultTravelMins: 20,
	}
}

func newTestEngine(geo GeoProvider) *Engine {
	return NewEngine(geo, testGeoConfig(), config.DefaultQueueConfig(), zerolog.Nop())
}

func TestEstimateTravelFromProvider(t *testing.T) {
	geo := &stubGeo{route: Route{DistanceKm: 5, TravelMins: 12}}
	e := newTestEngine(geo)

	origin := &model.Location{Latitude: 12.95, Longitude: 77.60}
	route := e.EstimateTravel(context.Background(), origin)

	assert.Equal(t, 12.0, route.TravelMins)
	assert.False(t, route.Fallback)
}

func TestEstimateTravelCachesByCoordinates(t *testing.T) {
	geo := &stubGeo{route: Route{TravelMins: 12}}
	e := newTestEngine(geo)

	origin := &model.Location{Latitude: 12.95, Longitude: 77.60}
	e.EstimateTravel(context.Background(), origin)
	e.EstimateTravel(context.Background(), origin)

	assert.Equal(t, 1, geo.calls)

	cached, ok := e.CachedTravel(origin)
	require.True(t, ok)
	assert.Equal(t, 12.0, cached.TravelMins)
}

func TestEstimateTravelNilOriginUsesDefault(t *testing.T) {
	geo := &stubGeo{}
	e := newTestEngine(geo)

	route := e.EstimateTravel(context.Background(), nil)
	assert.Equal(t, 20.0, route.TravelMins)
	assert.True(t, route.Fallback)
	assert.Zero(t, geo.calls)
}

func TestEstimateTravelFallsBackToHaversine(t *testing.T) {
	geo := &stubGeo{err: errors.New("osrm down")}
	e := newTestEngine(geo)

	// Roughly 5 km north of the clinic.
	origin := &model.Location{Latitude: 13.0166, Longitude: 77.5946}
	route := e.EstimateTravel(context.Background(), origin)

	require.True(t, route.Fallback)
	// Straight line stretched by the road factor, at 20 km/h.
	assert.InDelta(t, 5*1.4, route.DistanceKm, 0.3)
	assert.InDelta(t, route.DistanceKm/20*60, route.TravelMins, 0.1)
}

func TestPredictAppointment(t *testing.T) {
	e := newTestEngine(&stubGeo{})
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	snap := &model.QueueSnapshot{
		TakenAt: now,
		Entries: []model.QueueEntry{
			{Token: 1, ConsultMins: 20},
			{Token: 2, ConsultMins: 10},
			{Token: 3, ConsultMins: 15},
		},
	}
	p := &model.Patient{Token: 3, TravelETAMins: 15, ConsultMins: 15}

	summary := e.PredictAppointment(p, snap, 2, now)
	require.NotNil(t, summary)

	// 30 minutes of work ahead split across two doctors.
	assert.Equal(t, 15, summary.WaitMins)
	assert.Equal(t, 2, summary.PatientsAhead)
	assert.Equal(t, now.Add(15*time.Minute), summary.AppointmentAt)
	// Depart by = appointment - travel - 10 minute buffer.
	assert.Equal(t, now.Add(-10*time.Minute), summary.DepartBy)
	assert.Equal(t, 2, summary.DoctorsOnDuty)
}

func TestPredictAppointmentClampsDoctorCount(t *testing.T) {
	e := newTestEngine(&stubGeo{})
	now := time.Now()

	snap := &model.QueueSnapshot{
		TakenAt: now,
		Entries: []model.QueueEntry{{Token: 7, ConsultMins: 10}},
	}
	p := &model.Patient{Token: 7}

	summary := e.PredictAppointment(p, snap, 0, now)
	assert.Equal(t, 1, summary.DoctorsOnDuty)
	assert.Equal(t, 0, summary.PatientsAhead)
}

func TestPredictAppointmentUsesDefaultForMissingConsultMins(t *testing.T) {
	e := newTestEngine(&stubGeo{})
	now := time.Now()

	snap := &model.QueueSnapshot{
		TakenAt: now,
		Entries: []model.QueueEntry{
			{Token: 1},
			{Token: 2},
		},
	}
	p := &model.Patient{Token: 2}

	summary := e.PredictAppointment(p, snap, 1, now)
	assert.Equal(t, 15, summary.WaitMins)
}
