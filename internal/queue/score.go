package queue

import (
	"time"

	"github.com/medisync/clinic-queue/internal/config"
	"github.com/medisync/clinic-queue/internal/model"
)

// Clinical score weighting. Higher composite score = served first.
const (
	baseScore     = 50.0
	urgencyWeight = 3.0

	bonusCritical = 30.0
	bonusPriority = 20.0
	bonusModerate = 10.0

	defaultUrgency = 5
)

// Scorer computes priority scores. ClinicalScore is pure and deterministic;
// Composite folds in the time-dependent aging bonus and travel penalty.
type Scorer struct {
	aging  AgingPolicy
	weight float64 // travel penalty per ETA minute
	cap    float64 // ETA minutes counted toward the penalty
}

func NewScorer(cfg config.QueueConfig) *Scorer {
	return &Scorer{
		aging:  NewAgingPolicy(cfg),
		weight: cfg.TravelWeight,
		cap:    cfg.TravelPenaltyCapMins,
	}
}

// ClinicalScore covers only clinical urgency. A missing urgency defaults to
// mid-scale; an unknown tier contributes nothing rather than erroring.
func (s *Scorer) ClinicalScore(p *model.Patient) float64 {
	urgency := p.Urgency
	if urgency < 1 || urgency > 10 {
		urgency = defaultUrgency
	}
	return baseScore + urgencyWeight*float64(urgency) + tierBonus(p.Tier)
}

func tierBonus(t model.EmergencyTier) float64 {
	switch t {
	case model.TierCritical:
		return bonusCritical
	case model.TierPriority:
		return bonusPriority
	case model.TierModerate:
		return bonusModerate
	default:
		return 0
	}
}

// TravelPenalty discounts patients who cannot arrive soon. Capped so a far
// origin never outweighs clinical urgency.
func (s *Scorer) TravelPenalty(p *model.Patient) float64 {
	eta := p.TravelETAMins
	if eta <= 0 {
		return 0
	}
	if eta > s.cap {
		eta = s.cap
	}
	return s.weight * eta
}

// Composite is the rank-determining score:
// clinical urgency + aging bonus - travel penalty.
func (s *Scorer) Composite(p *model.Patient, now time.Time) float64 {
	return s.ClinicalScore(p) + s.aging.Bonus(p.BookedAt, now) - s.TravelPenalty(p)
}
