// Package executor dispatches a batch of order actions concurrently against
// the exchange and aggregates per-action results: concurrent dispatch,
// serialized aggregation.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
)

// Coordinator submits order actions to the trade executor. One failed or
// timed-out action never aborts its siblings; retries happen on the next
// scheduler tick, never synchronously.
type Coordinator struct {
	exec          ports.TradeExecutor
	timeout       time.Duration // per-action deadline so a slow exchange cannot stall a tick
	maxConcurrent int
}

// New creates a coordinator with a per-action timeout and a concurrency cap.
func New(exec ports.TradeExecutor, timeout time.Duration, maxConcurrent int) *Coordinator {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Coordinator{exec: exec, timeout: timeout, maxConcurrent: maxConcurrent}
}

// Execute dispatches all actions concurrently and joins before returning.
// Results are indexed 1:1 with the input actions; a per-action error is
// reported in the result, never returned from Execute itself.
func (c *Coordinator) Execute(ctx context.Context, actions []domain.OrderAction) []domain.ActionResult {
	if len(actions) == 0 {
		return nil
	}

	results := make([]domain.ActionResult, len(actions))

	g := new(errgroup.Group)
	g.SetLimit(c.maxConcurrent)
	for i, action := range actions {
		g.Go(func() error {
			results[i] = c.submit(ctx, action)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		slog.Warn("executor: batch completed with failures",
			"actions", len(actions), "failed", failed)
	} else {
		slog.Debug("executor: batch completed", "actions", len(actions))
	}
	return results
}

// submit executes a single action under its own deadline.
func (c *Coordinator) submit(ctx context.Context, action domain.OrderAction) domain.ActionResult {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		fill ports.Fill
		err  error
	)
	switch action.Type {
	case domain.ActionOpen:
		fill, err = c.exec.BuyAmount(actx, action.TokenID, action.AmountUSD)
	case domain.ActionClose:
		fill, err = c.exec.SellShares(actx, action.TokenID, action.Shares)
	default:
		err = fmt.Errorf("executor.submit: unknown action type %d", action.Type)
	}

	if err != nil {
		slog.Warn("executor: action failed",
			"type", action.Type.String(),
			"match", action.MatchID,
			"token", action.TokenID,
			"reason", action.Reason,
			"err", err)
		return domain.ActionResult{Action: action, Err: err}
	}

	return domain.ActionResult{
		Action:       action,
		FilledShares: fill.Shares,
		FillPrice:    fill.Price,
	}
}
