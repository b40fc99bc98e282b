package ports

import (
	"context"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// Fill es el resultado de una ejecución individual contra el exchange.
type Fill struct {
	Shares float64 // shares compradas o vendidas
	Price  float64 // precio medio de ejecución
}

// TradeExecutor envía órdenes de mercado al exchange. El resultado es
// siempre por-llamada, nunca batcheado internamente.
type TradeExecutor interface {
	// BuyAmount compra tokenID por un importe en USDC a precio de mercado.
	BuyAmount(ctx context.Context, tokenID string, amountUSD float64) (Fill, error)

	// SellShares vende N shares de tokenID a precio de mercado.
	SellShares(ctx context.Context, tokenID string, shares float64) (Fill, error)
}

// PriceProvider obtiene el precio actual de un instrumento en [0,1].
type PriceProvider interface {
	// FetchPrice devuelve el precio mid actual. Ante error transitorio
	// devuelve el último precio conocido (fail closed), nunca un error
	// que tire el tick.
	FetchPrice(ctx context.Context, tokenID string) (float64, error)
}

// MarketResolver descubre los mercados de resultado (home/draw/away) de un
// partido. La generación de slugs y el fuzzy matching viven en el adapter.
type MarketResolver interface {
	// ResolveMarket devuelve los token ids de los tres mercados del partido.
	ResolveMarket(ctx context.Context, m domain.Match) (domain.MatchMarket, error)
}
