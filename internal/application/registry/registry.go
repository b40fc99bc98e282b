// Package registry owns the canonical state of every tracked match. All other
// components read and write through it and get copies, never shared pointers.
package registry

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// feedSilence is how long a live match can go without a feed update before
// the wall clock overrides the last reported minute.
const feedSilence = 5 * time.Minute

// tracked is a registry entry: the match plus per-match detector state.
type tracked struct {
	match domain.Match

	// baselined marks that the first live observation was consumed. The
	// change detector treats that observation as a baseline, never a goal.
	baselined bool
}

// Registry is the single source of truth for tracked matches.
//
// All mutation happens on the scheduler path; the mutex exists so the
// persistence flusher and notifiers can take read snapshots concurrently.
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*tracked
	dirty   bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{matches: make(map[string]*tracked)}
}

// Register adds a match if it is not tracked yet. Re-registering an existing
// id refreshes only the discovery metadata (slug, teams, kickoff), never the
// score or lifecycle state.
func (r *Registry) Register(m domain.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.matches[m.ID]; ok {
		cur.match.Slug = m.Slug
		cur.match.HomeTeam = m.HomeTeam
		cur.match.AwayTeam = m.AwayTeam
		if !m.Kickoff.IsZero() {
			cur.match.Kickoff = m.Kickoff
		}
		r.dirty = true
		return
	}

	m.UpdatedAt = time.Now().UTC()
	r.matches[m.ID] = &tracked{match: m}
	r.dirty = true
	slog.Debug("registry: match registered",
		"id", m.ID, "slug", m.Slug, "kickoff", m.Kickoff)
}

// Get returns a copy of the match and whether it is tracked.
func (r *Registry) Get(id string) (domain.Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.matches[id]
	if !ok {
		return domain.Match{}, false
	}
	return t.match, true
}

// ApplyScoreUpdate records a polled score, minute and raw status tag.
//
// The score is stored exactly as given. Decreases are legal data, and it is the
// change detector that decides whether a decrease is a cancellation. The
// elapsed minute never decreases. The status only advances.
func (r *Registry) ApplyScoreUpdate(id string, score domain.Score, minute *int, statusTag string) (domain.Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.matches[id]
	if !ok {
		return domain.Match{}, false
	}

	t.match.Score = score
	t.match.StatusTag = statusTag
	if minute != nil && (t.match.Minute == nil || *minute > *t.match.Minute) {
		v := *minute
		t.match.Minute = &v
	}

	if st, ok := domain.StatusFromTag(statusTag); ok {
		r.advance(t, st, time.Now().UTC())
	}

	t.match.UpdatedAt = time.Now().UTC()
	r.dirty = true
	return t.match, true
}

// MarkBaselined records that the first live observation for the match was
// consumed as a baseline.
func (r *Registry) MarkBaselined(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.matches[id]; ok {
		t.baselined = true
	}
}

// Baselined reports whether the match already consumed its live baseline.
func (r *Registry) Baselined(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.matches[id]
	return ok && t.baselined
}

// RecomputeStatuses advances time-derived statuses. Idempotent and safe to
// call every scheduler tick: it only moves statuses forward, except that a
// Live match past the done ceiling is force-moved to Finished.
//
// Returns the matches that transitioned to Finished on this call so the
// orchestrator can liquidate their positions.
func (r *Registry) RecomputeStatuses(now time.Time) []domain.Match {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished []domain.Match
	for _, t := range r.matches {
		before := t.match.Status
		switch t.match.Status {
		case domain.StatusUpcoming:
			if t.match.MinutesToKickoff(now) <= 10 {
				r.advance(t, domain.StatusSoon, now)
			}
			if !now.Before(t.match.Kickoff) {
				r.advance(t, domain.StatusLive, now)
			}
		case domain.StatusSoon:
			if !now.Before(t.match.Kickoff) {
				r.advance(t, domain.StatusLive, now)
			}
		case domain.StatusLive:
			// 120' ceiling: regulation + maximum extra time. Past it with no
			// confirmed finish, the feed simply lost the match. A reported
			// minute freezes when the feed goes silent, so once updates stop
			// arriving the wall clock takes over the estimate.
			elapsed := t.match.ElapsedMinute(now)
			if now.Sub(t.match.UpdatedAt) > feedSilence && !t.match.Kickoff.IsZero() {
				if wall := int(now.Sub(t.match.Kickoff).Minutes()); wall > elapsed {
					elapsed = wall
				}
			}
			if elapsed > 120 {
				slog.Warn("registry: forcing finish past ceiling",
					"id", t.match.ID, "slug", t.match.Slug, "elapsed", elapsed)
				r.advance(t, domain.StatusFinished, now)
			}
		}
		if before != t.match.Status && t.match.Status == domain.StatusFinished {
			finished = append(finished, t.match)
		}
	}
	return finished
}

// ListByStatus returns copies of all matches with the given status, ordered
// by scheduling priority of their phase (highest first) for deterministic
// processing order.
func (r *Registry) ListByStatus(status domain.MatchStatus) []domain.Match {
	now := time.Now().UTC()
	r.mu.RLock()
	out := make([]domain.Match, 0, len(r.matches))
	for _, t := range r.matches {
		if t.match.Status == status {
			out = append(out, t.match)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		pi, _ := domain.Classify(out[i], now)
		pj, _ := domain.Classify(out[j], now)
		if pi.Priority() != pj.Priority() {
			return pi.Priority() > pj.Priority()
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// List returns copies of all tracked matches.
func (r *Registry) List() []domain.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Match, 0, len(r.matches))
	for _, t := range r.matches {
		out = append(out, t.match)
	}
	return out
}

// Remove stops tracking a match.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.matches[id]; ok {
		delete(r.matches, id)
		r.dirty = true
	}
}

// PruneFinished removes matches that finished more than cooldown ago. The
// cooldown keeps the entry around for late corrections; nothing is ever
// removed mid-match. Returns the removed matches.
func (r *Registry) PruneFinished(now time.Time, cooldown time.Duration) []domain.Match {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []domain.Match
	for id, t := range r.matches {
		if t.match.Status != domain.StatusFinished {
			continue
		}
		if t.match.FinishedAt.IsZero() || now.Sub(t.match.FinishedAt) < cooldown {
			continue
		}
		removed = append(removed, t.match)
		delete(r.matches, id)
		r.dirty = true
	}
	return removed
}

// Restore loads matches from a persisted snapshot, replacing current state.
// Used once at startup.
func (r *Registry) Restore(matches []domain.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = make(map[string]*tracked, len(matches))
	for _, m := range matches {
		mm := m
		// A restored live match must re-baseline: the persisted score may be
		// stale and must not be misread as a goal on the first poll.
		r.matches[m.ID] = &tracked{match: mm}
	}
}

// Dirty reports whether state changed since the last MarkClean.
func (r *Registry) Dirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirty
}

// MarkClean clears the dirty flag after a successful persistence flush.
func (r *Registry) MarkClean() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirty = false
}

// advance moves a match status forward. Regressions are ignored: statuses
// are strictly monotone.
func (r *Registry) advance(t *tracked, to domain.MatchStatus, now time.Time) {
	if to <= t.match.Status {
		return
	}
	t.match.Status = to
	if to == domain.StatusFinished && t.match.FinishedAt.IsZero() {
		t.match.FinishedAt = now
	}
	r.dirty = true
}
