package polymarket

// markets.go implementa ports.MarketResolver vía la API Gamma.
//
// Un partido de fútbol en Polymarket es un evento con tres mercados binarios
// (home gana / away gana / empate), cada uno con su par de tokens YES/NO.
// La resolución busca el evento por slug generado desde los nombres de
// equipo; el fuzzy matching de slugs vive aquí, nunca en el core.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

type gammaEvent struct {
	Slug    string        `json:"slug"`
	Markets []gammaMarket `json:"markets"`
}

type gammaMarket struct {
	Question     string `json:"question"`
	Slug         string `json:"slug"`
	ClobTokenIDs string `json:"clobTokenIds"` // JSON array serializado: ["yes","no"]
	Closed       bool   `json:"closed"`
}

// ResolveMarket devuelve los token ids de los tres mercados del partido.
func (c *Client) ResolveMarket(ctx context.Context, m domain.Match) (domain.MatchMarket, error) {
	var events []gammaEvent
	query := url.QueryEscape(m.Slug)
	u := fmt.Sprintf("%s/events?slug=%s&closed=false", c.gammaBase, query)
	if err := c.get(ctx, c.gammaLimiter, u, &events); err != nil {
		return domain.MatchMarket{}, fmt.Errorf("polymarket.ResolveMarket: %s: %w", m.Slug, err)
	}
	if len(events) == 0 {
		return domain.MatchMarket{}, fmt.Errorf("polymarket.ResolveMarket: no event for slug %q", m.Slug)
	}

	market := domain.MatchMarket{MatchID: m.ID, Slug: events[0].Slug}
	for _, gm := range events[0].Markets {
		if gm.Closed {
			continue
		}
		tokens, err := parseTokenPair(gm.ClobTokenIDs)
		if err != nil {
			continue
		}
		switch outcomeFor(gm.Question, m) {
		case "home":
			market.Home = tokens
		case "away":
			market.Away = tokens
		case "draw":
			market.Draw = tokens
		}
	}

	if market.Home.Yes == "" || market.Away.Yes == "" || market.Draw.Yes == "" {
		return domain.MatchMarket{}, fmt.Errorf("polymarket.ResolveMarket: incomplete outcome set for %q", m.Slug)
	}
	return market, nil
}

// parseTokenPair decodifica el array serializado de clobTokenIds.
// Por convención Gamma el primer token es YES y el segundo NO.
func parseTokenPair(raw string) (domain.OutcomeTokens, error) {
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return domain.OutcomeTokens{}, fmt.Errorf("parse clobTokenIds: %w", err)
	}
	if len(ids) != 2 || ids[0] == "" || ids[1] == "" {
		return domain.OutcomeTokens{}, fmt.Errorf("expected 2 token ids, got %d", len(ids))
	}
	return domain.OutcomeTokens{Yes: ids[0], No: ids[1]}, nil
}

// outcomeFor clasifica la question de un mercado como home/away/draw.
func outcomeFor(question string, m domain.Match) string {
	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "draw") || strings.Contains(q, "tie"):
		return "draw"
	case strings.Contains(q, strings.ToLower(m.HomeTeam)):
		return "home"
	case strings.Contains(q, strings.ToLower(m.AwayTeam)):
		return "away"
	}
	return ""
}
