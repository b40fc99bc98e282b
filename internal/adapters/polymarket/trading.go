package polymarket

// trading.go implementa ports.TradeExecutor con órdenes de mercado FOK.
//
// Dos modos, nunca batcheados: comprar por importe en USDC ("¿cuánto quiero
// arriesgar?") y vender N shares ("¿cuánto quiero soltar?"). El resultado es
// siempre por-llamada.

import (
	"context"
	"fmt"
	"strconv"

	"github.com/alejandrodnm/goalbot/internal/ports"
)

// marketOrderRequest es el JSON body de POST /order en modo market.
type marketOrderRequest struct {
	TokenID   string `json:"token_id"`
	Side      string `json:"side"`      // BUY | SELL
	Amount    string `json:"amount"`    // BUY: USDC; SELL: shares
	OrderType string `json:"orderType"` // FOK: fill-or-kill, sin restos colgando
}

type marketOrderResponse struct {
	Success      bool   `json:"success"`
	ErrorMsg     string `json:"errorMsg"`
	OrderID      string `json:"orderID"`
	TakingAmount string `json:"takingAmount"`
	MakingAmount string `json:"makingAmount"`
}

// BuyAmount compra tokenID por amountUSD a precio de mercado.
func (c *Client) BuyAmount(ctx context.Context, tokenID string, amountUSD float64) (ports.Fill, error) {
	resp, err := c.submitOrder(ctx, marketOrderRequest{
		TokenID:   tokenID,
		Side:      "BUY",
		Amount:    strconv.FormatFloat(amountUSD, 'f', 2, 64),
		OrderType: "FOK",
	})
	if err != nil {
		return ports.Fill{}, fmt.Errorf("polymarket.BuyAmount: %s: %w", tokenID, err)
	}

	// BUY: taking = shares recibidas, making = USDC pagado.
	shares := parseAmount(resp.TakingAmount)
	paid := parseAmount(resp.MakingAmount)
	if shares <= 0 {
		return ports.Fill{}, fmt.Errorf("polymarket.BuyAmount: %s: empty fill", tokenID)
	}
	return ports.Fill{Shares: shares, Price: paid / shares}, nil
}

// SellShares vende N shares de tokenID a precio de mercado.
func (c *Client) SellShares(ctx context.Context, tokenID string, shares float64) (ports.Fill, error) {
	resp, err := c.submitOrder(ctx, marketOrderRequest{
		TokenID:   tokenID,
		Side:      "SELL",
		Amount:    strconv.FormatFloat(shares, 'f', 4, 64),
		OrderType: "FOK",
	})
	if err != nil {
		return ports.Fill{}, fmt.Errorf("polymarket.SellShares: %s: %w", tokenID, err)
	}

	// SELL: making = shares entregadas, taking = USDC recibido.
	sold := parseAmount(resp.MakingAmount)
	received := parseAmount(resp.TakingAmount)
	if sold <= 0 {
		return ports.Fill{}, fmt.Errorf("polymarket.SellShares: %s: empty fill", tokenID)
	}
	return ports.Fill{Shares: sold, Price: received / sold}, nil
}

func (c *Client) submitOrder(ctx context.Context, req marketOrderRequest) (marketOrderResponse, error) {
	var resp marketOrderResponse
	if err := c.post(ctx, c.clobLimiter, c.clobBase+"/order", req, &resp); err != nil {
		return resp, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("order rejected: %s", resp.ErrorMsg)
	}
	return resp, nil
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
