package polymarket

// prices.go implementa ports.PriceProvider sobre el endpoint /midpoint.
//
// Fail closed: ante un error transitorio devuelve el último precio conocido
// del token. Un precio viejo de segundos es mejor que tirar el tick o que
// tratar PnL no realizado como cero.

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

type midpointResponse struct {
	Mid string `json:"mid"`
}

// lastPrices cachea el último mid conocido por token.
type lastPrices struct {
	mu     sync.RWMutex
	prices map[string]float64
}

func (lp *lastPrices) get(tokenID string) (float64, bool) {
	lp.mu.RLock()
	defer lp.mu.RUnlock()
	p, ok := lp.prices[tokenID]
	return p, ok
}

func (lp *lastPrices) set(tokenID string, price float64) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	lp.prices[tokenID] = price
}

// FetchPrice devuelve el precio mid actual del token en [0,1].
func (c *Client) FetchPrice(ctx context.Context, tokenID string) (float64, error) {
	var resp midpointResponse
	url := fmt.Sprintf("%s/midpoint?token_id=%s", c.clobBase, tokenID)
	if err := c.get(ctx, c.clobLimiter, url, &resp); err != nil {
		if last, ok := c.last.get(tokenID); ok {
			return last, nil
		}
		return 0, fmt.Errorf("polymarket.FetchPrice: %s: %w", tokenID, err)
	}

	price, err := strconv.ParseFloat(resp.Mid, 64)
	if err != nil || price < 0 || price > 1 {
		if last, ok := c.last.get(tokenID); ok {
			return last, nil
		}
		return 0, fmt.Errorf("polymarket.FetchPrice: bad mid %q for %s", resp.Mid, tokenID)
	}

	c.last.set(tokenID, price)
	return price, nil
}
