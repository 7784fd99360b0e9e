package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/medisync/clinic-queue/internal/model"
)

// Store is the ordered collection of active patients, keyed by token.
// Clinic-scale cardinalities (tens of patients) make a single write lock
// and O(n log n) re-sorts perfectly adequate.
//
// Ordering is total and stable: emergency tier desc, composite score desc,
// booking time asc, token asc. No two distinct tokens compare equal.
type Store struct {
	mu      sync.RWMutex
	scorer  *Scorer
	byToken map[int]*model.Patient
	order   []*model.Patient

	// seq increments on every committed reorder; stale ETA batches compare
	// against it and are discarded rather than applied out of order.
	seq uint64
}

func NewStore(scorer *Scorer) *Store {
	return &Store{
		scorer:  scorer,
		byToken: make(map[int]*model.Patient),
	}
}

func rankLess(a, b *model.Patient) bool {
	if a.Tier != b.Tier {
		return a.Tier > b.Tier
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.BookedAt.Equal(b.BookedAt) {
		return a.BookedAt.Before(b.BookedAt)
	}
	return a.Token < b.Token
}

// Insert adds a waiting patient and returns its 1-based position. The
// caller assigns the token before insertion; Insert computes the initial
// composite score.
func (s *Store) Insert(p *model.Patient, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Score = s.scorer.Composite(p, now)
	s.byToken[p.Token] = p
	s.order = append(s.order, p)
	sort.SliceStable(s.order, func(i, j int) bool { return rankLess(s.order[i], s.order[j]) })

	pos := s.positionLocked(p.Token)
	p.PositionHistory = append(p.PositionHistory, pos)
	return pos
}

// Remove takes a patient out of the active ordering. The patient record
// itself is soft-deleted by the caller; the store only drops the rank slot.
func (s *Store) Remove(token int) (*model.Patient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byToken[token]
	if !ok {
		return nil, false
	}
	delete(s.byToken, token)
	for i, q := range s.order {
		if q.Token == token {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return p, true
}

// Get returns the active patient for token, if any.
func (s *Store) Get(token int) (*model.Patient, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byToken[token]
	return p, ok
}

// Update applies fn to the patient under the write lock.
func (s *Store) Update(token int, fn func(*model.Patient)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byToken[token]
	if !ok {
		return false
	}
	fn(p)
	return true
}

// Len returns the active patient count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Position returns the 1-based rank of token, or 0 if absent.
func (s *Store) Position(token int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positionLocked(token)
}

func (s *Store) positionLocked(token int) int {
	for i, p := range s.order {
		if p.Token == token {
			return i + 1
		}
	}
	return 0
}

// Reorder recomputes composite scores for all active patients, re-sorts,
// and returns the set of tokens whose rank changed. Calling it twice with
// no intervening state change yields an empty diff the second time.
func (s *Store) Reorder(now time.Time) []model.RankChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := make(map[int]int, len(s.order))
	for i, p := range s.order {
		before[p.Token] = i + 1
	}

	for _, p := range s.order {
		p.WaitingMins = now.Sub(p.BookedAt).Minutes()
		p.Score = s.scorer.Composite(p, now)
	}
	sort.SliceStable(s.order, func(i, j int) bool { return rankLess(s.order[i], s.order[j]) })

	var changes []model.RankChange
	for i, p := range s.order {
		pos := i + 1
		if old := before[p.Token]; old != pos {
			changes = append(changes, model.RankChange{
				Token:       p.Token,
				OldPosition: old,
				NewPosition: pos,
			})
			p.PositionHistory = append(p.PositionHistory, pos)
		}
	}

	s.seq++
	return changes
}

// Seq returns the current reorder sequence number.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// ApplyTravelETAs commits a batch of travel estimates computed outside the
// write lock. The batch is discarded if a reorder committed since it was
// started: last-committed-wins.
func (s *Store) ApplyTravelETAs(startedAtSeq uint64, etas map[int]float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != startedAtSeq {
		return false
	}
	for token, mins := range etas {
		if p, ok := s.byToken[token]; ok {
			p.TravelETAMins = mins
		}
	}
	return true
}

// Snapshot produces a consistent point-in-time projection of the queue.
func (s *Store) Snapshot(now time.Time) *model.QueueSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &model.QueueSnapshot{
		TakenAt: now,
		Entries: make([]model.QueueEntry, 0, len(s.order)),
	}
	for i, p := range s.order {
		snap.Entries = append(snap.Entries, model.QueueEntry{
			Token:       p.Token,
			Name:        p.Name,
			Tier:        p.Tier,
			Urgency:     p.Urgency,
			Score:       p.Score,
			Position:    i + 1,
			WaitingMins: now.Sub(p.BookedAt).Minutes(),
			ConsultMins: p.ConsultMins,
			BookedAt:    p.BookedAt,
		})
		if p.Tier > model.TierNormal {
			snap.EmergencyCount++
		} else {
			snap.RegularCount++
		}
	}
	return snap
}

// Tokens returns the active tokens in rank order.
func (s *Store) Tokens() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, len(s.order))
	for i, p := range s.order {
		out[i] = p.Token
	}
	return out
}
