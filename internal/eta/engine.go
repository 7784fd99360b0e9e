package eta

import (
	"context"
	"fmt"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/medisync/clinic-queue/internal/config"
	"github.com/medisync/clinic-queue/internal/model"
	"github.com/medisync/clinic-queue/pkg/metrics"
)

// Route is a travel estimate from a patient's origin to the clinic.
type Route struct {
	DistanceKm float64
	TravelMins float64
	Fallback   bool
}

// GeoProvider resolves road distance and travel time between two points.
// Implementations must respect ctx deadlines; the engine falls back to a
// haversine estimate on any error.
type GeoProvider interface {
	DistanceAndTime(ctx context.Context, origin, dest model.Location) (Route, error)
}

// Engine computes travel estimates, consultation predictions and
// appointment-time forecasts. Travel lookups are cached so re-ranks can use
// a best-effort value without going back to the provider; staleness of the
// ETA display is acceptable, staleness of rank order is not.
type Engine struct {
	geo    GeoProvider
	cache  *gocache.Cache
	cfg    config.GeoConfig
	qcfg   config.QueueConfig
	clinic model.Location
	logger zerolog.Logger
	m      *metrics.Metrics
}

func NewEngine(geo GeoProvider, geoCfg config.GeoConfig, queueCfg config.QueueConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		geo:    geo,
		cache:  gocache.New(geoCfg.CacheTTL, 2*geoCfg.CacheTTL),
		cfg:    geoCfg,
		qcfg:   queueCfg,
		clinic: model.Location{Latitude: geoCfg.ClinicLatitude, Longitude: geoCfg.ClinicLongitude},
		logger: logger.With().Str("component", "eta").Logger(),
	}
}

// SetMetrics attaches provider instrumentation. Safe to leave unset.
func (e *Engine) SetMetrics(m *metrics.Metrics) {
	e.m = m
}

// EstimateTravel resolves a travel estimate for origin, with three levels
// of degradation: provider, haversine, documented default. It never fails
// the caller.
func (e *Engine) EstimateTravel(ctx context.Context, origin *model.Location) Route {
	if origin == nil || (origin.Latitude == 0 && origin.Longitude == 0) {
		if e.m != nil {
			e.m.GeoFallbacksTotal.Inc()
		}
		return Route{TravelMins: e.cfg.DefaultTravelMins, Fallback: true}
	}

	key := fmt.Sprintf("%.4f,%.4f", origin.Latitude, origin.Longitude)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(Route)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	route, err := e.geo.DistanceAndTime(lookupCtx, *origin, e.clinic)
	if e.m != nil {
		e.m.GeoLookupLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("origin", key).Msg("geo lookup failed, using haversine fallback")
		route = e.haversineRoute(*origin)
		if e.m != nil {
			e.m.GeoFallbacksTotal.Inc()
		}
	}

	e.cache.Set(key, route, gocache.DefaultExpiration)
	return route
}

// CachedTravel returns the last known estimate for origin without touching
// the provider.
func (e *Engine) CachedTravel(origin *model.Location) (Route, bool) {
	if origin == nil {
		return Route{}, false
	}
	key := fmt.Sprintf("%.4f,%.4f", origin.Latitude, origin.Longitude)
	if cached, ok := e.cache.Get(key); ok {
		return cached.(Route), true
	}
	return Route{}, false
}

// EstimateConsultation predicts consultation minutes for a symptom category.
func (e *Engine) EstimateConsultation(category string) float64 {
	return ConsultMinsForCategory(category, e.qcfg.DefaultConsultationMins)
}

// PredictAppointment forecasts when the patient will be called: the sum of
// consultation minutes of everyone ranked ahead, divided across the pooled
// doctor capacity, added to the clock. Departure time backs off the travel
// estimate plus a safety buffer. Fractional minutes are kept throughout;
// rounding happens only here, at the presentation boundary.
func (e *Engine) PredictAppointment(p *model.Patient, snap *model.QueueSnapshot, doctorsAvailable int, now time.Time) *model.ETASummary {
	if doctorsAvailable < 1 {
		doctorsAvailable = 1
	}

	var aheadMins float64
	ahead := 0
	for _, entry := range snap.Entries {
		if entry.Token == p.Token {
			break
		}
		mins := entry.ConsultMins
		if mins <= 0 {
			mins = e.qcfg.DefaultConsultationMins
		}
		aheadMins += mins
		ahead++
	}

	waitMins := aheadMins / float64(doctorsAvailable)
	appointmentAt := now.Add(durationMins(waitMins))
	departBy := appointmentAt.Add(-durationMins(p.TravelETAMins + e.qcfg.DepartureBufferMins))

	return &model.ETASummary{
		AppointmentAt: appointmentAt,
		DepartBy:      departBy,
		WaitMins:      int(math.Round(waitMins)),
		TravelMins:    int(math.Round(p.TravelETAMins)),
		ConsultMins:   int(math.Round(p.ConsultMins)),
		UsedFallback:  p.TravelFallback,
		DoctorsOnDuty: doctorsAvailable,
		PatientsAhead: ahead,
	}
}

func durationMins(mins float64) time.Duration {
	return time.Duration(mins * float64(time.Minute))
}

// haversineRoute estimates travel when the road provider is unreachable:
// straight-line distance stretched by a road factor, at urban traffic speed.
func (e *Engine) haversineRoute(origin model.Location) Route {
	const (
		roadFactor  = 1.4
		avgSpeedKmh = 20.0
	)
	distance := haversineKm(origin, e.clinic) * roadFactor
	mins := distance / avgSpeedKmh * 60
	if mins <= 0 {
		mins = e.cfg.DefaultTravelMins
	}
	return Route{DistanceKm: distance, TravelMins: mins, Fallback: true}
}

func haversineKm(a, b model.Location) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
