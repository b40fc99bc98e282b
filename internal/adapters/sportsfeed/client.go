package sportsfeed

// client.go: HTTP client del proveedor de resultados con rate limiting y
// retries. El feed se consulta a cadencia sub-segundo en vivo: los límites
// van al 60% del límite documentado para dejar margen.

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// /matches live: 10/s documentado → 6/s
	liveRatePerSec = 6
	// /matches próximos (discovery, cadencia lenta): 2/s
	discoveryRatePerSec = 2

	maxRetries    = 3
	baseRetryWait = 250 * time.Millisecond
)

// Client es el HTTP client del proveedor de resultados en vivo.
type Client struct {
	http             *http.Client
	base             string
	apiKey           string
	liveLimiter      *rate.Limiter
	discoveryLimiter *rate.Limiter
}

// NewClient crea un Client contra el base URL dado. apiKey puede ser vacío
// para proveedores sin auth.
func NewClient(base, apiKey string) *Client {
	return &Client{
		http:             &http.Client{Timeout: 5 * time.Second},
		base:             base,
		apiKey:           apiKey,
		liveLimiter:      rate.NewLimiter(liveRatePerSec, 3),
		discoveryLimiter: rate.NewLimiter(discoveryRatePerSec, 1),
	}
}

// get hace un GET con rate limiting y retries con backoff exponencial.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-Auth-Token", c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			slog.Warn("sportsfeed: retrying", "status", resp.StatusCode, "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
