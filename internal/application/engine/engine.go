// Package engine converts goal events into a deterministic list of position
// actions. It never talks to the exchange: it emits OrderActions that the
// execution coordinator dispatches and the ledger applies on success.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/goalbot/internal/application/ledger"
	"github.com/alejandrodnm/goalbot/internal/domain"
)

// Config holds the tunable trading constants. The lead-extension fractions
// are defaults, not invariants.
type Config struct {
	OrderSizeUSD        float64       // fresh open size
	GoalCooldown        time.Duration // per-match suppression window after a goal
	PartialProfitPct    float64       // lead-extension: partial-sell profit threshold
	PartialSellFraction float64       // lead-extension: fraction of remaining shares to sell
	ReAddFactor         float64       // lead-extension: re-add size relative to a fresh open
}

// Engine is the decision engine. The per-match cooldown is its only state.
type Engine struct {
	cfg    Config
	ledger *ledger.Ledger

	mu       sync.Mutex
	lastGoal map[string]time.Time
}

// New creates a decision engine over the given ledger.
func New(cfg Config, led *ledger.Ledger) *Engine {
	return &Engine{
		cfg:      cfg,
		ledger:   led,
		lastGoal: make(map[string]time.Time),
	}
}

// Decide maps a goal event to position actions for the match's markets.
//
// Events inside the cooldown window return no actions: the score was already
// stored by the registry, but prices need time to stabilize and duplicate or
// late confirmations of the same goal must not double-trade. Match A's
// cooldown never delays match B.
func (e *Engine) Decide(ev domain.GoalEvent, market domain.MatchMarket) []domain.OrderAction {
	if e.inCooldown(ev.MatchID, ev.DetectedAt) {
		slog.Debug("engine: goal inside cooldown, suppressed",
			"match", ev.MatchID, "score", ev.NewScore)
		return nil
	}
	e.markGoal(ev.MatchID, ev.DetectedAt)

	scenario := domain.ClassifyScenario(ev.PrevScore, ev.NewScore)
	slog.Info("engine: deciding",
		"match", ev.MatchID,
		"scenario", scenario.String(),
		"prev", ev.PrevScore, "new", ev.NewScore,
		"minute", ev.Minute)

	switch scenario {
	case domain.ScenarioFirstGoal:
		return e.firstGoal(ev, market)
	case domain.ScenarioEqualizer:
		return e.equalizer(ev, market)
	default:
		return e.leadExtension(ev, market)
	}
}

// Forget clears cooldown state for a match that stopped being tracked.
func (e *Engine) Forget(matchID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.lastGoal, matchID)
}

// firstGoal opens the three-position set around the new favorite:
// favored side wins (YES), other side wins (NO), draw (NO).
func (e *Engine) firstGoal(ev domain.GoalEvent, market domain.MatchMarket) []domain.OrderAction {
	leader := ev.NewScore.Leader()
	other := domain.SideHome
	if leader == domain.SideHome {
		other = domain.SideAway
	}

	return []domain.OrderAction{
		e.open(ev.MatchID, domain.KindFavoredWin, market.SideTokens(leader).Yes, e.cfg.OrderSizeUSD, "first-goal"),
		e.open(ev.MatchID, domain.KindOpponentNegated, market.SideTokens(other).No, e.cfg.OrderSizeUSD, "first-goal"),
		e.open(ev.MatchID, domain.KindDrawNegated, market.Draw.No, e.cfg.OrderSizeUSD, "first-goal"),
	}
}

// equalizer liquidates the whole scenario and rebuilds it around the draw:
// close everything, then home NO, away NO, draw YES.
func (e *Engine) equalizer(ev domain.GoalEvent, market domain.MatchMarket) []domain.OrderAction {
	actions := e.closeAll(ev.MatchID, "equalizer-flip")
	actions = append(actions,
		e.open(ev.MatchID, domain.KindOpponentNegated, market.Home.No, e.cfg.OrderSizeUSD, "equalizer"),
		e.open(ev.MatchID, domain.KindOpponentNegated, market.Away.No, e.cfg.OrderSizeUSD, "equalizer"),
		e.open(ev.MatchID, domain.KindDrawAffirmed, market.Draw.Yes, e.cfg.OrderSizeUSD, "equalizer"),
	)
	return actions
}

// leadExtension takes partial profit on well-performing positions and adds
// to the leading side and the draw-negated leg at reduced size.
func (e *Engine) leadExtension(ev domain.GoalEvent, market domain.MatchMarket) []domain.OrderAction {
	var actions []domain.OrderAction

	for _, pos := range e.ledger.OpenByMatch(ev.MatchID) {
		if pos.ProfitPct() > e.cfg.PartialProfitPct {
			actions = append(actions, domain.OrderAction{
				Type:       domain.ActionClose,
				MatchID:    ev.MatchID,
				PositionID: pos.ID,
				TokenID:    pos.TokenID,
				Shares:     pos.Shares * e.cfg.PartialSellFraction,
				Fraction:   e.cfg.PartialSellFraction,
				Reason:     "lead-extension-profit",
			})
		}
	}

	leader := ev.NewScore.Leader()
	addSize := e.cfg.OrderSizeUSD * e.cfg.ReAddFactor
	actions = append(actions,
		e.open(ev.MatchID, domain.KindFavoredWin, market.SideTokens(leader).Yes, addSize, "lead-extension"),
		e.open(ev.MatchID, domain.KindDrawNegated, market.Draw.No, addSize, "lead-extension"),
	)
	return actions
}

// CloseAllActions emits full closes for every open position of a match.
// Used for forced liquidation on match completion.
func (e *Engine) CloseAllActions(matchID, reason string) []domain.OrderAction {
	return e.closeAll(matchID, reason)
}

func (e *Engine) closeAll(matchID, reason string) []domain.OrderAction {
	var actions []domain.OrderAction
	for _, pos := range e.ledger.OpenByMatch(matchID) {
		actions = append(actions, domain.OrderAction{
			Type:       domain.ActionClose,
			MatchID:    matchID,
			PositionID: pos.ID,
			TokenID:    pos.TokenID,
			Shares:     pos.Shares,
			Fraction:   1.0,
			Reason:     reason,
		})
	}
	return actions
}

func (e *Engine) open(matchID string, kind domain.PositionKind, tokenID string, amount float64, reason string) domain.OrderAction {
	return domain.OrderAction{
		Type:      domain.ActionOpen,
		MatchID:   matchID,
		Kind:      kind,
		TokenID:   tokenID,
		AmountUSD: amount,
		Reason:    reason,
	}
}

func (e *Engine) inCooldown(matchID string, at time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	last, ok := e.lastGoal[matchID]
	return ok && at.Sub(last) < e.cfg.GoalCooldown
}

func (e *Engine) markGoal(matchID string, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastGoal[matchID] = at
}
