package tracker

// detector.go compares each polled snapshot against the last stored score
// and classifies it: genuine goal, cancellation (VAR/correction), or nothing.

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/goalbot/internal/application/registry"
	"github.com/alejandrodnm/goalbot/internal/domain"
)

// Change is the outcome of one detection: the kind plus the event payload
// for the kinds that carry one.
type Change struct {
	Kind         domain.ChangeKind
	Goal         domain.GoalEvent
	Cancellation domain.CancellationEvent
}

// Detector turns score observations into events. It owns no state of its
// own: the last stored score and the baseline marker live in the registry.
type Detector struct {
	reg *registry.Registry
}

// NewDetector creates a detector over the given registry.
func NewDetector(reg *registry.Registry) *Detector {
	return &Detector{reg: reg}
}

// Detect compares rec against the stored score for the match, stores the new
// observation, and classifies the transition.
//
// The very first observation after a match enters live is always a baseline
// (ChangeNone) regardless of its value: a pre-populated score on the first
// poll is not a goal. Skipping this rule produces systematic false goals.
func (d *Detector) Detect(m domain.Match, rec domain.LiveSnapshot, now time.Time) Change {
	prev := m.Score
	baselined := d.reg.Baselined(m.ID)

	updated, ok := d.reg.ApplyScoreUpdate(m.ID, rec.Score, rec.Minute, rec.StatusTag)
	if !ok {
		return Change{Kind: domain.ChangeNone}
	}

	if !baselined {
		d.reg.MarkBaselined(m.ID)
		slog.Debug("detector: baseline observation",
			"id", m.ID, "slug", m.Slug,
			"score", rec.Score)
		return Change{Kind: domain.ChangeNone}
	}

	minute := updated.ElapsedMinute(now)

	switch {
	case rec.Score.DecreaseFrom(prev):
		// Goal overturned or feed correction: the lower score is stored,
		// trading reaction is suppressed.
		slog.Info("detector: score decrease, treating as cancellation",
			"id", m.ID, "slug", m.Slug,
			"prev", prev, "new", rec.Score)
		return Change{
			Kind: domain.ChangeCancellation,
			Cancellation: domain.CancellationEvent{
				MatchID:    m.ID,
				PrevScore:  prev,
				NewScore:   rec.Score,
				Minute:     minute,
				DetectedAt: now,
			},
		}
	case rec.Score.IncreaseOver(prev):
		side := domain.AttributeSide(prev, rec.Score)
		slog.Info("detector: GOAL",
			"id", m.ID, "slug", m.Slug,
			"prev", prev, "new", rec.Score,
			"side", side, "minute", minute)
		return Change{
			Kind: domain.ChangeGoal,
			Goal: domain.GoalEvent{
				MatchID:    m.ID,
				PrevScore:  prev,
				NewScore:   rec.Score,
				Side:       side,
				Minute:     minute,
				DetectedAt: now,
			},
		}
	default:
		return Change{Kind: domain.ChangeNone}
	}
}
