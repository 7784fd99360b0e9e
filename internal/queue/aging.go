package queue

import (
	"time"

	"github.com/medisync/clinic-queue/internal/config"
)

// AgingPolicy raises the effective priority of waiting patients so that no
// one starves behind a stream of newer, more urgent arrivals. The bonus is
// a pure function of (bookedAt, now): linear growth from the moment of
// booking, with the growth rate doubling once the wait crosses the
// starvation threshold.
type AgingPolicy struct {
	ratePoints float64
	interval   time.Duration
	threshold  time.Duration
}

func NewAgingPolicy(cfg config.QueueConfig) AgingPolicy {
	return AgingPolicy{
		ratePoints: cfg.AgingRatePoints,
		interval:   cfg.AgingInterval,
		threshold:  cfg.StarvationThreshold,
	}
}

// Bonus returns the aging contribution to the composite score. Strictly
// non-decreasing in (now - bookedAt); zero for the degenerate cases.
func (a AgingPolicy) Bonus(bookedAt, now time.Time) float64 {
	if a.interval <= 0 || a.ratePoints <= 0 {
		return 0
	}
	elapsed := now.Sub(bookedAt)
	if elapsed <= 0 {
		return 0
	}

	perMin := a.ratePoints / a.interval.Minutes()
	if elapsed <= a.threshold {
		return perMin * elapsed.Minutes()
	}

	// Past the starvation threshold the rate doubles for the excess wait.
	base := perMin * a.threshold.Minutes()
	excess := elapsed - a.threshold
	return base + 2*perMin*excess.Minutes()
}

// Starving reports whether a patient booked at bookedAt has crossed the
// starvation threshold.
func (a AgingPolicy) Starving(bookedAt, now time.Time) bool {
	return now.Sub(bookedAt) > a.threshold
}
