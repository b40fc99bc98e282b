package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
)

// fakeExec registra llamadas y falla para los tokens marcados.
type fakeExec struct {
	mu      sync.Mutex
	buys    []string
	sells   []string
	failFor map[string]bool
	delay   time.Duration
}

func (f *fakeExec) BuyAmount(ctx context.Context, tokenID string, amountUSD float64) (ports.Fill, error) {
	f.mu.Lock()
	f.buys = append(f.buys, tokenID)
	f.mu.Unlock()
	return f.fill(ctx, tokenID, amountUSD/0.5)
}

func (f *fakeExec) SellShares(ctx context.Context, tokenID string, shares float64) (ports.Fill, error) {
	f.mu.Lock()
	f.sells = append(f.sells, tokenID)
	f.mu.Unlock()
	return f.fill(ctx, tokenID, shares)
}

func (f *fakeExec) fill(ctx context.Context, tokenID string, shares float64) (ports.Fill, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ports.Fill{}, ctx.Err()
		}
	}
	if f.failFor[tokenID] {
		return ports.Fill{}, errors.New("rejected")
	}
	return ports.Fill{Shares: shares, Price: 0.5}, nil
}

func openAction(token string) domain.OrderAction {
	return domain.OrderAction{Type: domain.ActionOpen, MatchID: "m1", TokenID: token, AmountUSD: 10}
}

func closeAction(token string) domain.OrderAction {
	return domain.OrderAction{Type: domain.ActionClose, MatchID: "m1", TokenID: token, Shares: 5}
}

func TestExecute_Empty(t *testing.T) {
	c := New(&fakeExec{}, time.Second, 4)
	assert.Nil(t, c.Execute(context.Background(), nil))
}

func TestExecute_ResultsIndexedWithActions(t *testing.T) {
	exec := &fakeExec{}
	c := New(exec, time.Second, 4)

	actions := []domain.OrderAction{openAction("a"), closeAction("b"), openAction("c")}
	results := c.Execute(context.Background(), actions)

	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, actions[i].TokenID, r.Action.TokenID)
		assert.NoError(t, r.Err)
		assert.Equal(t, 0.5, r.FillPrice)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, exec.buys)
	assert.ElementsMatch(t, []string{"b"}, exec.sells)
}

func TestExecute_FailureDoesNotAbortSiblings(t *testing.T) {
	exec := &fakeExec{failFor: map[string]bool{"bad": true}}
	c := New(exec, time.Second, 4)

	results := c.Execute(context.Background(), []domain.OrderAction{
		openAction("ok1"), openAction("bad"), openAction("ok2"),
	})

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
}

func TestExecute_PerActionTimeout(t *testing.T) {
	exec := &fakeExec{delay: 200 * time.Millisecond}
	c := New(exec, 20*time.Millisecond, 4)

	results := c.Execute(context.Background(), []domain.OrderAction{openAction("slow")})
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

func TestExecute_ConcurrencyCap(t *testing.T) {
	// Con límite 1 y dos acciones de 50ms, la ejecución es secuencial.
	exec := &fakeExec{delay: 50 * time.Millisecond}
	c := New(exec, time.Second, 1)

	start := time.Now()
	c.Execute(context.Background(), []domain.OrderAction{openAction("a"), openAction("b")})
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestPaper_SimulatedFills(t *testing.T) {
	prices := staticPrices{"tok": 0.25}
	p := NewPaper(prices)

	fill, err := p.BuyAmount(context.Background(), "tok", 10)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, fill.Shares, 1e-9)
	assert.Equal(t, 0.25, fill.Price)

	fill, err = p.SellShares(context.Background(), "tok", 12)
	require.NoError(t, err)
	assert.Equal(t, 12.0, fill.Shares)
}

func TestPaper_RejectsMissingPrice(t *testing.T) {
	// sin mid no hay fill: ni comprar infinitas shares ni vender a cero
	p := NewPaper(staticPrices{"tok": 0})

	_, err := p.BuyAmount(context.Background(), "tok", 10)
	require.Error(t, err)

	_, err = p.SellShares(context.Background(), "tok", 5)
	require.Error(t, err)
}

type staticPrices map[string]float64

func (s staticPrices) FetchPrice(_ context.Context, tokenID string) (float64, error) {
	price, ok := s[tokenID]
	if !ok {
		return 0, errors.New("unknown token")
	}
	return price, nil
}
