package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Queue metrics
	QueueDepth         prometheus.Gauge
	ReordersTotal      prometheus.Counter
	RankChangesTotal   prometheus.Counter
	BookingsTotal      *prometheus.CounterVec
	CompletionsTotal   prometheus.Counter
	CancellationsTotal prometheus.Counter
	NoShowsTotal       prometheus.Counter
	WaitTime           prometheus.Histogram
	ConsultTime        prometheus.Histogram

	// Geo provider metrics
	GeoLookupLatency  prometheus.Histogram
	GeoFallbacksTotal prometheus.Counter

	// Orchestration metrics
	RuleActionsTotal   *prometheus.CounterVec
	RuleActionFailures *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Current number of waiting patients",
		}),
		ReordersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reorders_total",
			Help:      "Total number of queue reorders performed",
		}),
		RankChangesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_changes_total",
			Help:      "Total number of individual patient rank changes",
		}),
		BookingsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Total number of bookings by emergency tier",
		}, []string{"tier"}),
		CompletionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of completed consultations",
		}),
		CancellationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Total number of cancelled appointments",
		}),
		NoShowsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "no_shows_total",
			Help:      "Total number of no-show patients",
		}),
		WaitTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "wait_time_minutes",
			Help:      "Observed patient wait times in minutes",
			Buckets:   []float64{5, 10, 15, 20, 30, 45, 60, 90, 120},
		}),
		ConsultTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "consultation_minutes",
			Help:      "Observed consultation durations in minutes",
			Buckets:   []float64{5, 10, 15, 20, 25, 30, 45},
		}),
		GeoLookupLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geo_lookup_duration_seconds",
			Help:      "Duration of travel time lookups",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		GeoFallbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geo_fallbacks_total",
			Help:      "Total number of travel estimates served by the fallback",
		}),
		RuleActionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_actions_total",
			Help:      "Total number of orchestration rule actions executed",
		}, []string{"action"}),
		RuleActionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_action_failures_total",
			Help:      "Total number of orchestration rule actions that failed",
		}, []string{"action"}),
	}
}
