// Package ledger owns every open and closed position: shares, entry price,
// realized and unrealized PnL. Mutations are applied only for executions that
// succeeded; the decision engine and the exit rules read snapshots.
package ledger

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// closeEpsilon absorbs float residue when a sell consumes the whole position.
const closeEpsilon = 1e-9

// Ledger tracks positions and applies the graduated exit strategy.
type Ledger struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position
	byMatch   map[string]map[string]struct{} // matchID → position ids

	tiers       []domain.ExitTier // ascending by ProfitPct
	stopLossPct float64           // negative; full liquidation on breach

	fired    map[string]map[int]bool // positionID → tier index → already fired
	realized float64
	dirty    bool
}

// New creates a ledger with the given exit tiers (sorted ascending) and
// stop-loss threshold.
func New(tiers []domain.ExitTier, stopLossPct float64) *Ledger {
	sorted := make([]domain.ExitTier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProfitPct < sorted[j].ProfitPct })

	return &Ledger{
		positions:   make(map[string]*domain.Position),
		byMatch:     make(map[string]map[string]struct{}),
		tiers:       sorted,
		stopLossPct: stopLossPct,
		fired:       make(map[string]map[int]bool),
	}
}

// Open registers a freshly filled position. Committed is derived from the
// fill, preserving the shares × entry price invariant. Returns the position
// as stored.
func (l *Ledger) Open(p domain.Position) domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	p.Committed = p.Shares * p.EntryPrice
	if p.CurrentPrice == 0 {
		p.CurrentPrice = p.EntryPrice
	}
	p.Status = domain.PositionOpen
	if p.OpenedAt.IsZero() {
		p.OpenedAt = time.Now().UTC()
	}

	l.positions[p.ID] = &p
	if l.byMatch[p.MatchID] == nil {
		l.byMatch[p.MatchID] = make(map[string]struct{})
	}
	l.byMatch[p.MatchID][p.ID] = struct{}{}
	l.dirty = true

	slog.Info("ledger: position opened",
		"id", p.ID, "match", p.MatchID, "kind", p.Kind.String(),
		"shares", p.Shares, "entry", p.EntryPrice)
	return p
}

// Close sells shares of a position at the given fill price. Shares are capped
// at the remaining size: the sum removed by closes never exceeds what was
// opened. A close that consumes the position transitions it to Closed.
// Returns the updated position and the realized PnL of this close.
func (l *Ledger) Close(positionID string, shares, price float64, reason string) (domain.Position, float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[positionID]
	if !ok || p.Status == domain.PositionClosed {
		return domain.Position{}, 0, false
	}

	if shares > p.Shares {
		shares = p.Shares
	}
	pnl := (price - p.EntryPrice) * shares
	p.Shares -= shares
	p.CurrentPrice = price
	p.RealizedPnL += pnl
	l.realized += pnl

	if p.Shares <= closeEpsilon {
		p.Shares = 0
		p.Status = domain.PositionClosed
		now := time.Now().UTC()
		p.ClosedAt = &now
		delete(l.fired, positionID)
	}
	l.dirty = true

	slog.Info("ledger: position close applied",
		"id", p.ID, "match", p.MatchID, "kind", p.Kind.String(),
		"sold", shares, "remaining", p.Shares,
		"pnl", pnl, "reason", reason)
	return *p, pnl, true
}

// UpdatePrice refreshes the current price of one position.
func (l *Ledger) UpdatePrice(positionID string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.positions[positionID]; ok && p.Status == domain.PositionOpen {
		p.CurrentPrice = price
	}
}

// UpdatePriceByToken refreshes every open position holding the instrument.
func (l *Ledger) UpdatePriceByToken(tokenID string, price float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.positions {
		if p.Status == domain.PositionOpen && p.TokenID == tokenID {
			p.CurrentPrice = price
		}
	}
}

// CheckExitTargets evaluates the graduated exits and the stop-loss against
// current prices and returns the close actions to dispatch.
//
// Each tier fires at most once per position, in ascending threshold order,
// and the sell fraction applies to the shares REMAINING at check time, not
// the original size. A tier counts as fired only once its close is applied
// (MarkTierFired); a failed execution re-emits the same close on the next
// check. A stop-loss breach emits a full close instead.
func (l *Ledger) CheckExitTargets() []domain.OrderAction {
	l.mu.Lock()
	defer l.mu.Unlock()

	var actions []domain.OrderAction
	for _, p := range l.sortedOpen() {
		profit := p.ProfitPct()

		if profit <= l.stopLossPct {
			actions = append(actions, domain.OrderAction{
				Type:       domain.ActionClose,
				MatchID:    p.MatchID,
				PositionID: p.ID,
				TokenID:    p.TokenID,
				Shares:     p.Shares,
				Fraction:   1.0,
				Reason:     "stop-loss",
			})
			continue
		}

		remaining := p.Shares
		for i, tier := range l.tiers {
			if profit < tier.ProfitPct {
				break // tiers are ascending, nothing further can fire
			}
			if l.fired[p.ID][i] {
				continue
			}

			idx := i
			sell := remaining * tier.SellFraction
			remaining -= sell
			actions = append(actions, domain.OrderAction{
				Type:       domain.ActionClose,
				MatchID:    p.MatchID,
				PositionID: p.ID,
				TokenID:    p.TokenID,
				Shares:     sell,
				Fraction:   tier.SellFraction,
				Reason:     exitReason(tier),
				Tier:       &idx,
			})
		}
	}
	return actions
}

// MarkTierFired records that a graduated exit tier was applied for a
// position. Called once the corresponding close succeeds; until then the
// tier stays eligible and CheckExitTargets re-emits its close.
func (l *Ledger) MarkTierFired(positionID string, tier int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[positionID]
	if !ok || p.Status != domain.PositionOpen {
		return
	}
	if l.fired[positionID] == nil {
		l.fired[positionID] = make(map[int]bool)
	}
	l.fired[positionID][tier] = true
}

// Get returns a copy of a position.
func (l *Ledger) Get(positionID string) (domain.Position, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.positions[positionID]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// OpenByMatch returns copies of the open positions of one match.
func (l *Ledger) OpenByMatch(matchID string) []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.byMatch[matchID]
	out := make([]domain.Position, 0, len(ids))
	for id := range ids {
		if p := l.positions[id]; p.Status == domain.PositionOpen {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenPositions returns copies of all open positions.
func (l *Ledger) OpenPositions() []domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sortedOpenCopies()
}

// OpenTokenIDs returns the distinct instruments held by open positions,
// for the per-tick price refresh.
func (l *Ledger) OpenTokenIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, p := range l.positions {
		if p.Status != domain.PositionOpen {
			continue
		}
		if _, ok := seen[p.TokenID]; ok {
			continue
		}
		seen[p.TokenID] = struct{}{}
		out = append(out, p.TokenID)
	}
	sort.Strings(out)
	return out
}

// RealizedPnL returns the cumulative realized PnL.
func (l *Ledger) RealizedPnL() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.realized
}

// Restore loads open positions from a persisted snapshot, replacing current
// state. Exit-tier markers are not persisted: after a restart every tier may
// fire once more, which only risks taking profit earlier, never double-selling
// beyond remaining shares.
func (l *Ledger) Restore(positions []domain.Position) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions = make(map[string]*domain.Position, len(positions))
	l.byMatch = make(map[string]map[string]struct{})
	l.fired = make(map[string]map[int]bool)
	for _, p := range positions {
		pp := p
		pp.Status = domain.PositionOpen
		if pp.CurrentPrice == 0 {
			pp.CurrentPrice = pp.EntryPrice
		}
		l.positions[p.ID] = &pp
		if l.byMatch[p.MatchID] == nil {
			l.byMatch[p.MatchID] = make(map[string]struct{})
		}
		l.byMatch[p.MatchID][p.ID] = struct{}{}
	}
}

// Dirty reports whether state changed since the last MarkClean.
func (l *Ledger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

// MarkClean clears the dirty flag after a successful persistence flush.
func (l *Ledger) MarkClean() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dirty = false
}

// sortedOpen returns the open positions ordered by id for deterministic
// action generation. Caller must hold the lock.
func (l *Ledger) sortedOpen() []*domain.Position {
	out := make([]*domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		if p.Status == domain.PositionOpen {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (l *Ledger) sortedOpenCopies() []domain.Position {
	ptrs := l.sortedOpen()
	out := make([]domain.Position, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

func exitReason(tier domain.ExitTier) string {
	switch {
	case tier.ProfitPct >= 2.0:
		return "exit-tier-200"
	case tier.ProfitPct >= 1.0:
		return "exit-tier-100"
	default:
		return "exit-tier-50"
	}
}
