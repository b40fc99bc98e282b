// Package tracker is the orchestrator: discover matches → register → poll per
// phase → detect changes → decide → execute → update the ledger → react to
// match completion. One polling tick and one decision/execution pass at a
// time; only the order dispatch inside a tick is concurrent.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/goalbot/internal/application/engine"
	"github.com/alejandrodnm/goalbot/internal/application/executor"
	"github.com/alejandrodnm/goalbot/internal/application/ledger"
	"github.com/alejandrodnm/goalbot/internal/application/registry"
	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
)

// Config holds the orchestrator timings.
type Config struct {
	BaseTick            time.Duration // scheduler tick
	DiscoveryInterval   time.Duration // slow cadence for match discovery
	FinishedCooldown    time.Duration // registry retention after Finished
	DiscoveryAlertAfter time.Duration // discovery outage before an operator alert
	SnapshotFlushPeriod time.Duration // persistence flush period
	RunOnce             bool          // single tick and exit, smoke-test mode
}

// Tracker wires every component into the per-tick lifecycle.
type Tracker struct {
	cfg Config

	reg    *registry.Registry
	poller *Poller
	engine *engine.Engine
	ledger *ledger.Ledger
	coord  *executor.Coordinator

	source   ports.MatchSource
	resolver ports.MarketResolver
	prices   ports.PriceProvider
	store    ports.SnapshotStore
	notify   []ports.Notifier

	markets          map[string]domain.MatchMarket // resolved market cache per match
	finishedNotified map[string]bool

	pending []outboundEvent // drained after each tick, decoupled from control flow

	goalsDetected int
	lastDiscovery time.Time
}

// New creates the orchestrator. store may be nil (no persistence) and
// notifiers may be empty.
func New(
	cfg Config,
	reg *registry.Registry,
	poller *Poller,
	eng *engine.Engine,
	led *ledger.Ledger,
	coord *executor.Coordinator,
	source ports.MatchSource,
	resolver ports.MarketResolver,
	prices ports.PriceProvider,
	store ports.SnapshotStore,
	notifiers ...ports.Notifier,
) *Tracker {
	return &Tracker{
		cfg:              cfg,
		reg:              reg,
		poller:           poller,
		engine:           eng,
		ledger:           led,
		coord:            coord,
		source:           source,
		resolver:         resolver,
		prices:           prices,
		store:            store,
		notify:           notifiers,
		markets:          make(map[string]domain.MatchMarket),
		finishedNotified: make(map[string]bool),
	}
}

// Run restores persisted state, then ticks until the context is cancelled.
// Nothing inside a tick is fatal: the orchestrator's job is to keep ticking.
func (t *Tracker) Run(ctx context.Context) error {
	if err := t.restore(ctx); err != nil {
		slog.Warn("tracker: could not restore snapshot, starting fresh", "err", err)
	}

	t.discover(ctx)

	slog.Info("tracker starting",
		"tick", t.cfg.BaseTick,
		"discovery_interval", t.cfg.DiscoveryInterval,
		"run_once", t.cfg.RunOnce,
	)

	if t.cfg.RunOnce {
		t.Tick(ctx, time.Now().UTC())
		if t.store != nil {
			t.flush(ctx)
		}
		return nil
	}

	flushed := make(chan struct{})
	if t.store != nil {
		go func() {
			defer close(flushed)
			t.flushLoop(ctx)
		}()
	} else {
		close(flushed)
	}

	tick := time.NewTicker(t.cfg.BaseTick)
	defer tick.Stop()
	discovery := time.NewTicker(t.cfg.DiscoveryInterval)
	defer discovery.Stop()

	for {
		select {
		case <-ctx.Done():
			// The flusher owns the shutdown snapshot: Run does not return
			// until it is done, so main cannot close the store underneath
			// the final write.
			<-flushed
			slog.Info("tracker stopped")
			return nil
		case <-discovery.C:
			t.discover(ctx)
		case now := <-tick.C:
			t.Tick(ctx, now.UTC())
		}
	}
}

// Tick runs one full scheduler pass: recompute statuses, poll, detect,
// decide, execute, settle, notify.
func (t *Tracker) Tick(ctx context.Context, now time.Time) {
	t.reg.RecomputeStatuses(now)

	changes, err := t.poller.Tick(ctx, now)
	if err != nil {
		// Transient: retried on the next tick, never looped here.
		slog.Warn("tracker: poll failed", "err", err)
	}

	t.refreshPrices(ctx)

	var actions []domain.OrderAction
	for _, mc := range changes {
		if mc.Change.Kind != domain.ChangeGoal {
			continue
		}
		t.goalsDetected++
		t.queue(outboundEvent{kind: evGoal, goal: mc.Change.Goal, match: mc.Match})

		market, ok := t.marketFor(ctx, mc.Match)
		if !ok {
			slog.Warn("tracker: no market resolved, goal not traded",
				"match", mc.Match.ID, "slug", mc.Match.Slug)
			continue
		}
		actions = append(actions, t.engine.Decide(mc.Change.Goal, market)...)
	}

	actions = append(actions, t.finishedLiquidations(now)...)
	actions = append(actions, t.ledger.CheckExitTargets()...)

	failed := t.dispatch(ctx, actions)

	t.pruneFinished(now)
	t.queueSummary(failed)
	t.drain(ctx)
}

// dispatch executes the batch and applies only successful results to the
// ledger. Returns the number of failed actions.
func (t *Tracker) dispatch(ctx context.Context, actions []domain.OrderAction) int {
	if len(actions) == 0 {
		return 0
	}

	results := t.coord.Execute(ctx, actions)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		switch r.Action.Type {
		case domain.ActionOpen:
			pos := domain.Position{
				ID:         uuid.New().String(),
				MatchID:    r.Action.MatchID,
				Kind:       r.Action.Kind,
				TokenID:    r.Action.TokenID,
				Shares:     r.FilledShares,
				EntryPrice: r.FillPrice,
			}
			t.queue(outboundEvent{kind: evOpened, pos: t.ledger.Open(pos)})
		case domain.ActionClose:
			pos, pnl, ok := t.ledger.Close(r.Action.PositionID, r.FilledShares, r.FillPrice, r.Action.Reason)
			if ok {
				if r.Action.Tier != nil {
					// A tier counts as fired only when its close is applied;
					// a failed execution re-emits it on the next tick.
					t.ledger.MarkTierFired(r.Action.PositionID, *r.Action.Tier)
				}
				t.queue(outboundEvent{kind: evClosed, pos: pos, pnl: pnl, reason: r.Action.Reason})
			}
		}
	}
	return failed
}

// finishedLiquidations emits full closes for every finished match with open
// positions. Re-emitted each tick until the closes succeed.
func (t *Tracker) finishedLiquidations(now time.Time) []domain.OrderAction {
	var actions []domain.OrderAction
	for _, m := range t.reg.ListByStatus(domain.StatusFinished) {
		open := t.ledger.OpenByMatch(m.ID)
		if !t.finishedNotified[m.ID] {
			t.finishedNotified[m.ID] = true
			t.queue(outboundEvent{kind: evFinished, match: m})
			slog.Info("tracker: match finished",
				"id", m.ID, "slug", m.Slug,
				"score", m.Score, "open_positions", len(open))
		}
		if len(open) == 0 {
			continue
		}
		actions = append(actions, t.engine.CloseAllActions(m.ID, "match-finished")...)
	}
	return actions
}

// refreshPrices updates current prices for every held instrument. The price
// provider fails closed (returns last known on transient errors) so a flaky
// price API never wipes unrealized PnL.
func (t *Tracker) refreshPrices(ctx context.Context) {
	for _, tokenID := range t.ledger.OpenTokenIDs() {
		price, err := t.prices.FetchPrice(ctx, tokenID)
		if err != nil {
			slog.Debug("tracker: price fetch failed, keeping last", "token", tokenID, "err", err)
			continue
		}
		t.ledger.UpdatePriceByToken(tokenID, price)
	}
}

// discover pulls upcoming/live matches from the source and registers them.
// Discovery failing for an extended period is the one operator-level alert.
func (t *Tracker) discover(ctx context.Context) {
	matches, err := t.source.DiscoverMatches(ctx)
	if err != nil {
		slog.Warn("tracker: discovery failed", "err", err)
		if !t.lastDiscovery.IsZero() && time.Since(t.lastDiscovery) > t.cfg.DiscoveryAlertAfter {
			slog.Error("*** DISCOVERY OUTAGE: no matches to track ***",
				"since", t.lastDiscovery, "err", err)
		}
		return
	}
	t.lastDiscovery = time.Now().UTC()

	for _, m := range matches {
		if m.Status == domain.StatusFinished {
			// A match the provider already lists as finished never enters
			// the registry. Registering it would announce a finish we never
			// tracked and resurrect it after every prune for as long as the
			// provider keeps listing it.
			continue
		}
		t.reg.Register(m)
		if _, ok := t.markets[m.ID]; ok {
			continue
		}
		market, err := t.resolver.ResolveMarket(ctx, m)
		if err != nil {
			// Expected for competitions the exchange does not list; retried
			// lazily if a goal arrives.
			slog.Debug("tracker: market not resolved yet",
				"match", m.ID, "slug", m.Slug, "err", err)
			continue
		}
		t.markets[m.ID] = market
	}
	slog.Info("tracker: discovery complete",
		"discovered", len(matches),
		"tracked", len(t.reg.List()),
		"markets_resolved", len(t.markets))
}

// marketFor returns the resolved market for a match, attempting a late
// resolution if discovery could not resolve it.
func (t *Tracker) marketFor(ctx context.Context, m domain.Match) (domain.MatchMarket, bool) {
	if market, ok := t.markets[m.ID]; ok {
		return market, true
	}
	market, err := t.resolver.ResolveMarket(ctx, m)
	if err != nil {
		return domain.MatchMarket{}, false
	}
	t.markets[m.ID] = market
	return market, true
}

// pruneFinished drops matches past the post-finish cooldown and clears the
// per-match state other components keep for them.
func (t *Tracker) pruneFinished(now time.Time) {
	for _, m := range t.reg.PruneFinished(now, t.cfg.FinishedCooldown) {
		t.poller.Forget(m.ID)
		t.engine.Forget(m.ID)
		delete(t.markets, m.ID)
		delete(t.finishedNotified, m.ID)
		if open := t.ledger.OpenByMatch(m.ID); len(open) > 0 {
			slog.Warn("tracker: pruned match still has open positions",
				"id", m.ID, "open", len(open))
		}
		slog.Info("tracker: match pruned", "id", m.ID, "slug", m.Slug)
	}
}

// restore reloads the persisted snapshot at startup.
func (t *Tracker) restore(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	snap, err := t.store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("tracker.restore: %w", err)
	}
	t.reg.Restore(snap.Matches)
	t.ledger.Restore(snap.Positions)
	if len(snap.Matches) > 0 || len(snap.Positions) > 0 {
		slog.Info("tracker: state restored",
			"matches", len(snap.Matches),
			"open_positions", len(snap.Positions))
	}
	return nil
}

// flushLoop persists the snapshot on a fixed period whenever state is dirty.
// A single goroutine guarantees at most one write in flight; a failed write
// keeps the dirty flag so the next period retries with the freshest state.
func (t *Tracker) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(t.cfg.SnapshotFlushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.flush(context.Background()) // last chance on shutdown
			return
		case <-ticker.C:
			t.flush(ctx)
		}
	}
}

func (t *Tracker) flush(ctx context.Context) {
	if !t.reg.Dirty() && !t.ledger.Dirty() {
		return
	}
	snap := ports.StateSnapshot{
		Matches:   t.reg.List(),
		Positions: t.ledger.OpenPositions(),
	}
	if err := t.store.SaveSnapshot(ctx, snap); err != nil {
		// In-memory state stays authoritative; retried next period.
		slog.Warn("tracker: snapshot flush failed", "err", err)
		return
	}
	t.reg.MarkClean()
	t.ledger.MarkClean()
}

// --- outbound notifications ---

type eventKind int

const (
	evGoal eventKind = iota
	evOpened
	evClosed
	evFinished
	evSummary
)

type outboundEvent struct {
	kind    eventKind
	goal    domain.GoalEvent
	match   domain.Match
	pos     domain.Position
	pnl     float64
	reason  string
	summary ports.CycleSummary
}

// queue appends an event to the outbound buffer. Events are delivered only
// when the tick's core work is done, so a slow listener cannot block trading.
func (t *Tracker) queue(ev outboundEvent) {
	t.pending = append(t.pending, ev)
}

func (t *Tracker) queueSummary(failed int) {
	t.queue(outboundEvent{kind: evSummary, summary: ports.CycleSummary{
		Tracked:       len(t.reg.List()),
		LiveTracked:   len(t.reg.ListByStatus(domain.StatusLive)),
		OpenPositions: t.ledger.OpenPositions(),
		GoalsDetected: t.goalsDetected,
		RealizedPnL:   t.ledger.RealizedPnL(),
		FailedActions: failed,
	}})
}

// drain delivers buffered events to every notifier, best effort: a listener
// failure is logged and never affects core correctness.
func (t *Tracker) drain(ctx context.Context) {
	events := t.pending
	t.pending = nil

	for _, ev := range events {
		for _, n := range t.notify {
			var err error
			switch ev.kind {
			case evGoal:
				err = n.OnGoal(ctx, ev.goal, ev.match)
			case evOpened:
				err = n.OnPositionOpened(ctx, ev.pos)
			case evClosed:
				err = n.OnPositionClosed(ctx, ev.pos, ev.pnl, ev.reason)
			case evFinished:
				err = n.OnMatchFinished(ctx, ev.match)
			case evSummary:
				err = n.OnCycleSummary(ctx, ev.summary)
			}
			if err != nil {
				slog.Warn("tracker: notifier error", "err", err)
			}
		}
	}
}
