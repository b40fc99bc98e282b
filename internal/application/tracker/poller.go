package tracker

// poller.go: adaptive batched polling.
//
// One external "list live snapshots" call per tick covers every tracked match
// that is due, instead of one call per match (API cost control). Each match
// polls at the cadence its lifecycle phase recommends: 1s in play, 10s in the
// post-match limbo, 30-60s before kickoff.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/goalbot/internal/application/registry"
	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
)

// MatchChange pairs an updated match with the change detected on this tick.
type MatchChange struct {
	Match  domain.Match
	Change Change
}

// Poller drives the batched fetch cycle for all live-trackable matches.
type Poller struct {
	reg      *registry.Registry
	feed     ports.LiveFeed
	matcher  ports.RecordMatcher
	detector *Detector

	nextPoll map[string]time.Time
}

// NewPoller creates a poller. matcher may be nil, in which case only
// primary-key matching is used.
func NewPoller(reg *registry.Registry, feed ports.LiveFeed, matcher ports.RecordMatcher, det *Detector) *Poller {
	return &Poller{
		reg:      reg,
		feed:     feed,
		matcher:  matcher,
		detector: det,
		nextPoll: make(map[string]time.Time),
	}
}

// Tick polls every due match once and returns the detected changes, ordered
// by phase priority (the registry listing order). A match whose record is
// missing from the batch is left untouched: coverage gaps are expected, not
// errors.
func (p *Poller) Tick(ctx context.Context, now time.Time) ([]MatchChange, error) {
	due := p.dueMatches(now)
	if len(due) == 0 {
		return nil, nil
	}

	snapshots, err := p.feed.FetchLiveSnapshots(ctx)
	if err != nil {
		// Transient fetch failure: nothing polled this tick, the scheduler
		// retries on the next one. Due times are not advanced.
		return nil, fmt.Errorf("poller.Tick: fetch live snapshots: %w", err)
	}

	byID := make(map[string]domain.LiveSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.ExternalID] = s
	}
	fallback := p.fallbackBindings(due, byID, snapshots)

	var changes []MatchChange
	matched := 0
	for _, m := range due {
		rec, ok := byID[m.ID]
		if !ok {
			rec, ok = fallback[m.ID]
		}
		p.scheduleNext(m, now)
		if !ok {
			continue // no coverage for this match on this tick
		}
		matched++

		ch := p.detector.Detect(m, rec, now)
		if updated, found := p.reg.Get(m.ID); found {
			changes = append(changes, MatchChange{Match: updated, Change: ch})
		}
	}

	slog.Debug("poller: tick complete",
		"due", len(due), "snapshots", len(snapshots), "matched", matched)
	return changes, nil
}

// Forget drops the poll schedule for a match that stopped being tracked.
// Its only pending work is the next-due entry; nothing else to cancel.
func (p *Poller) Forget(id string) {
	delete(p.nextPoll, id)
}

// dueMatches returns the matches whose poll time has arrived, in registry
// priority order.
func (p *Poller) dueMatches(now time.Time) []domain.Match {
	var due []domain.Match
	for _, status := range []domain.MatchStatus{domain.StatusLive, domain.StatusSoon, domain.StatusUpcoming} {
		for _, m := range p.reg.ListByStatus(status) {
			phase, interval := domain.Classify(m, now)
			if phase == domain.PhaseDone || interval <= 0 {
				continue
			}
			if next, ok := p.nextPoll[m.ID]; ok && now.Before(next) {
				continue
			}
			due = append(due, m)
		}
	}
	return due
}

// scheduleNext computes the next poll time from the match's current phase.
func (p *Poller) scheduleNext(m domain.Match, now time.Time) {
	_, interval := domain.Classify(m, now)
	if interval <= 0 {
		delete(p.nextPoll, m.ID)
		return
	}
	p.nextPoll[m.ID] = now.Add(interval)
}

// fallbackBindings runs the pluggable name matcher for records that carry no
// known primary key (a provider covering the competition under another id).
// Only snapshots whose id does not belong to any tracked match are eligible;
// each one picks its BEST candidate among the due matches still unmatched by
// id, and each match binds to at most one snapshot.
func (p *Poller) fallbackBindings(due []domain.Match, byID map[string]domain.LiveSnapshot, snapshots []domain.LiveSnapshot) map[string]domain.LiveSnapshot {
	if p.matcher == nil || len(snapshots) == 0 {
		return nil
	}

	pool := make([]domain.Match, 0, len(due))
	for _, m := range due {
		if _, ok := byID[m.ID]; !ok {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		return nil
	}

	bound := make(map[string]domain.LiveSnapshot)
	for _, s := range snapshots {
		if _, tracked := p.reg.Get(s.ExternalID); tracked {
			continue
		}
		idx := p.matcher.Match(s, pool)
		if idx < 0 {
			continue
		}
		bound[pool[idx].ID] = s
		pool = append(pool[:idx], pool[idx+1:]...)
		if len(pool) == 0 {
			break
		}
	}
	return bound
}
