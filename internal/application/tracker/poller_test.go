package tracker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/goalbot/internal/application/registry"
	"github.com/alejandrodnm/goalbot/internal/domain"
)

type fakeFeed struct {
	snapshots []domain.LiveSnapshot
	err       error
	calls     int
}

func (f *fakeFeed) FetchLiveSnapshots(context.Context) ([]domain.LiveSnapshot, error) {
	f.calls++
	return f.snapshots, f.err
}

// nameMatcher liga cualquier snapshot cuyo HomeTeam coincida exactamente.
type nameMatcher struct{}

func (nameMatcher) Match(rec domain.LiveSnapshot, candidates []domain.Match) int {
	for i, m := range candidates {
		if m.HomeTeam == rec.HomeTeam {
			return i
		}
	}
	return -1
}

func TestPollerTick_NoDueMatches(t *testing.T) {
	reg := registry.New()
	feed := &fakeFeed{}
	p := NewPoller(reg, feed, nil, NewDetector(reg))

	changes, err := p.Tick(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, 0, feed.calls, "no due matches means no API call")
}

func TestPollerTick_DetectsGoal(t *testing.T) {
	reg := registry.New()
	now := time.Now().UTC()
	newLive(t, reg, "m1")

	feed := &fakeFeed{snapshots: []domain.LiveSnapshot{snap("m1", domain.Score{}, 10)}}
	p := NewPoller(reg, feed, nil, NewDetector(reg))

	// primer tick: baseline
	changes, err := p.Tick(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, domain.ChangeNone, changes[0].Change.Kind)

	// segundo tick (pasado el intervalo live de 1s): gol
	feed.snapshots = []domain.LiveSnapshot{snap("m1", domain.Score{Home: 1}, 12)}
	changes, err = p.Tick(context.Background(), now.Add(2*time.Second))
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, domain.ChangeGoal, changes[0].Change.Kind)
	assert.Equal(t, domain.Score{Home: 1}, changes[0].Match.Score)
}

func TestPollerTick_RespectsPhaseCadence(t *testing.T) {
	reg := registry.New()
	now := time.Now().UTC()
	newLive(t, reg, "m1")

	feed := &fakeFeed{snapshots: []domain.LiveSnapshot{snap("m1", domain.Score{}, 10)}}
	p := NewPoller(reg, feed, nil, NewDetector(reg))

	p.Tick(context.Background(), now)
	require.Equal(t, 1, feed.calls)

	// medio segundo después: el partido live (cadencia 1s) aún no toca
	p.Tick(context.Background(), now.Add(500*time.Millisecond))
	assert.Equal(t, 1, feed.calls)

	p.Tick(context.Background(), now.Add(1100*time.Millisecond))
	assert.Equal(t, 2, feed.calls)
}

func TestPollerTick_FetchErrorDoesNotAdvanceSchedule(t *testing.T) {
	reg := registry.New()
	now := time.Now().UTC()
	newLive(t, reg, "m1")

	feed := &fakeFeed{err: errors.New("boom")}
	p := NewPoller(reg, feed, nil, NewDetector(reg))

	_, err := p.Tick(context.Background(), now)
	require.Error(t, err)

	// el siguiente tick reintenta inmediatamente, sin esperar el intervalo
	feed.err = nil
	feed.snapshots = []domain.LiveSnapshot{snap("m1", domain.Score{}, 10)}
	changes, err := p.Tick(context.Background(), now.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestPollerTick_MissingRecordLeavesMatchUntouched(t *testing.T) {
	reg := registry.New()
	now := time.Now().UTC()
	m := newLive(t, reg, "m1")

	feed := &fakeFeed{snapshots: nil} // sin cobertura este tick
	p := NewPoller(reg, feed, nil, NewDetector(reg))

	changes, err := p.Tick(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, changes)

	got, _ := reg.Get("m1")
	assert.Equal(t, m.Score, got.Score)
	assert.False(t, reg.Baselined("m1"))
}

func TestPollerTick_FallbackNameMatching(t *testing.T) {
	reg := registry.New()
	now := time.Now().UTC()
	m := domain.Match{
		ID:       "fd-123",
		Slug:     "arsenal-vs-chelsea",
		HomeTeam: "Arsenal",
		AwayTeam: "Chelsea",
		Kickoff:  now.Add(-20 * time.Minute),
		Status:   domain.StatusLive,
	}
	reg.Register(m)

	// el proveedor live usa otro id para el mismo partido
	rec := snap("other-999", domain.Score{}, 20)
	rec.HomeTeam = "Arsenal"
	rec.AwayTeam = "Chelsea"
	feed := &fakeFeed{snapshots: []domain.LiveSnapshot{rec}}
	p := NewPoller(reg, feed, nameMatcher{}, NewDetector(reg))

	changes, err := p.Tick(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, reg.Baselined("fd-123"))
}

// bestMatcher implementa el contrato completo del matcher: entre todos los
// candidatos que superan el umbral gana el de mayor solape combinado.
type bestMatcher struct{}

func (bestMatcher) Match(rec domain.LiveSnapshot, candidates []domain.Match) int {
	best, bestScore := -1, 0.0
	for i, m := range candidates {
		home := wordOverlap(rec.HomeTeam, m.HomeTeam)
		away := wordOverlap(rec.AwayTeam, m.AwayTeam)
		if home < 0.5 || away < 0.5 {
			continue
		}
		if home+away > bestScore {
			best, bestScore = i, home+away
		}
	}
	return best
}

func wordOverlap(a, b string) float64 {
	wa := strings.Fields(strings.ToLower(a))
	wb := strings.Fields(strings.ToLower(b))
	shared := 0
	for _, x := range wa {
		for _, y := range wb {
			if x == y {
				shared++
				break
			}
		}
	}
	denom := len(wa)
	if len(wb) > denom {
		denom = len(wb)
	}
	if denom == 0 {
		return 0
	}
	return float64(shared) / float64(denom)
}

func TestPollerTick_FallbackPicksBestCandidate(t *testing.T) {
	reg := registry.New()
	now := time.Now().UTC()
	a := domain.Match{
		ID: "a", Slug: "manchester-city-vs-rovers",
		HomeTeam: "Manchester City", AwayTeam: "Rovers",
		Kickoff: now.Add(-20 * time.Minute), Status: domain.StatusLive,
	}
	b := domain.Match{
		ID: "b", Slug: "manchester-vs-rovers",
		HomeTeam: "Manchester", AwayTeam: "Rovers",
		Kickoff: now.Add(-20 * time.Minute), Status: domain.StatusLive,
	}
	reg.Register(a)
	reg.Register(b)

	// el snapshot supera el umbral contra ambos, pero su mejor candidato es b
	rec := snap("prov-7", domain.Score{}, 20)
	rec.HomeTeam = "Manchester"
	rec.AwayTeam = "Rovers"
	feed := &fakeFeed{snapshots: []domain.LiveSnapshot{rec}}
	p := NewPoller(reg, feed, bestMatcher{}, NewDetector(reg))

	changes, err := p.Tick(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "b", changes[0].Match.ID,
		"the snapshot binds to its best candidate, not the first one that passes")
	assert.True(t, reg.Baselined("b"))
	assert.False(t, reg.Baselined("a"))
}

func TestPollerForget(t *testing.T) {
	reg := registry.New()
	now := time.Now().UTC()
	newLive(t, reg, "m1")

	feed := &fakeFeed{snapshots: []domain.LiveSnapshot{snap("m1", domain.Score{}, 10)}}
	p := NewPoller(reg, feed, nil, NewDetector(reg))
	p.Tick(context.Background(), now)

	p.Forget("m1")
	// sin entrada de schedule, el partido vuelve a estar due inmediatamente
	p.Tick(context.Background(), now.Add(time.Millisecond))
	assert.Equal(t, 2, feed.calls)
}
