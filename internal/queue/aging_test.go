package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/medisync/clinic-queue/internal/config"
)

func TestAgingBonusLinearBelowThreshold(t *testing.T) {
	a := NewAgingPolicy(config.DefaultQueueConfig())
	booked := time.Now()

	// 5 points per 5 minutes = 1 point per minute.
	assert.InDelta(t, 10, a.Bonus(booked, booked.Add(10*time.Minute)), 1e-9)
	assert.InDelta(t, 30, a.Bonus(booked, booked.Add(30*time.Minute)), 1e-9)
}

func TestAgingBonusDoublesPastThreshold(t *testing.T) {
	a := NewAgingPolicy(config.DefaultQueueConfig())
	booked := time.Now()

	// 30 minutes at 1/min, then 15 excess minutes at 2/min.
	assert.InDelta(t, 30+2*15, a.Bonus(booked, booked.Add(45*time.Minute)), 1e-9)
}

func TestAgingBonusNonDecreasing(t *testing.T) {
	a := NewAgingPolicy(config.DefaultQueueConfig())
	booked := time.Now()

	prev := 0.0
	for mins := 0; mins <= 180; mins += 7 {
		bonus := a.Bonus(booked, booked.Add(time.Duration(mins)*time.Minute))
		assert.GreaterOrEqual(t, bonus, prev, "bonus decreased at %d minutes", mins)
		prev = bonus
	}
}

func TestAgingBonusDegenerateCases(t *testing.T) {
	booked := time.Now()

	a := NewAgingPolicy(config.DefaultQueueConfig())
	assert.Zero(t, a.Bonus(booked, booked))
	assert.Zero(t, a.Bonus(booked, booked.Add(-time.Minute)))

	disabled := NewAgingPolicy(config.QueueConfig{AgingRatePoints: 0, AgingInterval: 5 * time.Minute})
	assert.Zero(t, disabled.Bonus(booked, booked.Add(time.Hour)))
}

func TestStarving(t *testing.T) {
	a := NewAgingPolicy(config.DefaultQueueConfig())
	booked := time.Now()

	assert.False(t, a.Starving(booked, booked.Add(29*time.Minute)))
	assert.True(t, a.Starving(booked, booked.Add(31*time.Minute)))
}
