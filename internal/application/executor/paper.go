package executor

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/goalbot/internal/ports"
)

// Paper simulates order execution without touching the exchange. Fills are
// assumed instant and full at the current mid price, which is optimistic but
// good enough to exercise the full decision pipeline in dry runs.
type Paper struct {
	prices ports.PriceProvider
}

// NewPaper creates a simulated executor backed by a real price feed.
func NewPaper(prices ports.PriceProvider) *Paper {
	return &Paper{prices: prices}
}

// BuyAmount simulates a market buy for amountUSD at the current mid.
func (p *Paper) BuyAmount(ctx context.Context, tokenID string, amountUSD float64) (ports.Fill, error) {
	price, err := p.prices.FetchPrice(ctx, tokenID)
	if err != nil {
		return ports.Fill{}, fmt.Errorf("executor.Paper.BuyAmount: %w", err)
	}
	if price <= 0 {
		return ports.Fill{}, fmt.Errorf("executor.Paper.BuyAmount: no price for %s", tokenID)
	}
	return ports.Fill{Shares: amountUSD / price, Price: price}, nil
}

// SellShares simulates a market sell of N shares at the current mid.
func (p *Paper) SellShares(ctx context.Context, tokenID string, shares float64) (ports.Fill, error) {
	price, err := p.prices.FetchPrice(ctx, tokenID)
	if err != nil {
		return ports.Fill{}, fmt.Errorf("executor.Paper.SellShares: %w", err)
	}
	if price <= 0 {
		// A zero mid would fill the sell for free and book the maximum
		// loss in the simulation.
		return ports.Fill{}, fmt.Errorf("executor.Paper.SellShares: no price for %s", tokenID)
	}
	return ports.Fill{Shares: shares, Price: price}, nil
}
