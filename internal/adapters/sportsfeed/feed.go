package sportsfeed

// feed.go implementa ports.LiveFeed y ports.MatchSource sobre la API REST
// del proveedor de resultados (formato football-data v4).

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// apiMatch es el JSON crudo de un partido en la API.
type apiMatch struct {
	ID      int64  `json:"id"`
	UTCDate string `json:"utcDate"`
	Status  string `json:"status"`
	Minute  *int   `json:"minute"`
	Score   struct {
		FullTime struct {
			Home *int `json:"home"`
			Away *int `json:"away"`
		} `json:"fullTime"`
	} `json:"score"`
	HomeTeam struct {
		Name string `json:"name"`
	} `json:"homeTeam"`
	AwayTeam struct {
		Name string `json:"name"`
	} `json:"awayTeam"`
}

type matchesResponse struct {
	Matches []apiMatch `json:"matches"`
}

// FetchLiveSnapshots devuelve el estado de todos los partidos en juego en
// UNA llamada. Los registros con forma inválida se saltan con log, nunca
// tiran el ciclo.
func (c *Client) FetchLiveSnapshots(ctx context.Context) ([]domain.LiveSnapshot, error) {
	var resp matchesResponse
	url := fmt.Sprintf("%s/matches?status=LIVE,IN_PLAY,PAUSED", c.base)
	if err := c.get(ctx, c.liveLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("sportsfeed.FetchLiveSnapshots: %w", err)
	}

	snapshots := make([]domain.LiveSnapshot, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		snap, err := toSnapshot(m)
		if err != nil {
			// Fallo de forma de datos: se trata como NoChange para ese
			// partido en este tick.
			slog.Warn("sportsfeed: skipping malformed record", "id", m.ID, "err", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// DiscoverMatches devuelve los partidos de hoy para poblar el registry, con
// su estado de ciclo de vida mapeado desde el status del proveedor: un
// partido que ya terminó llega como Finished y nunca como próximo. Cadencia
// lenta: minutos.
func (c *Client) DiscoverMatches(ctx context.Context) ([]domain.Match, error) {
	var resp matchesResponse
	if err := c.get(ctx, c.discoveryLimiter, c.base+"/matches", &resp); err != nil {
		return nil, fmt.Errorf("sportsfeed.DiscoverMatches: %w", err)
	}

	matches := make([]domain.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		kickoff, err := time.Parse(time.RFC3339, m.UTCDate)
		if err != nil {
			slog.Warn("sportsfeed: skipping match with bad kickoff",
				"id", m.ID, "utc_date", m.UTCDate)
			continue
		}
		if m.HomeTeam.Name == "" || m.AwayTeam.Name == "" {
			continue
		}
		tag := normalizeTag(m.Status)
		status, _ := domain.StatusFromTag(tag)
		matches = append(matches, domain.Match{
			ID:        fmt.Sprintf("%d", m.ID),
			Slug:      matchSlug(m.HomeTeam.Name, m.AwayTeam.Name),
			HomeTeam:  m.HomeTeam.Name,
			AwayTeam:  m.AwayTeam.Name,
			Kickoff:   kickoff,
			StatusTag: tag,
			Status:    status,
		})
	}
	return matches, nil
}

// toSnapshot valida y convierte un registro crudo.
func toSnapshot(m apiMatch) (domain.LiveSnapshot, error) {
	if m.ID == 0 {
		return domain.LiveSnapshot{}, fmt.Errorf("missing id")
	}
	if m.Score.FullTime.Home == nil || m.Score.FullTime.Away == nil {
		return domain.LiveSnapshot{}, fmt.Errorf("missing score")
	}
	return domain.LiveSnapshot{
		ExternalID: fmt.Sprintf("%d", m.ID),
		HomeTeam:   m.HomeTeam.Name,
		AwayTeam:   m.AwayTeam.Name,
		Score: domain.Score{
			Home: *m.Score.FullTime.Home,
			Away: *m.Score.FullTime.Away,
		},
		Minute:    m.Minute,
		StatusTag: normalizeTag(m.Status),
	}, nil
}

// normalizeTag mapea los tags crudos del proveedor al vocabulario interno.
func normalizeTag(status string) string {
	switch strings.ToUpper(status) {
	case "IN_PLAY", "LIVE":
		return "in_play"
	case "PAUSED", "HALF_TIME":
		return "paused"
	case "EXTRA_TIME":
		return "extra_time"
	case "FINISHED", "FULL_TIME":
		return "finished"
	case "AFTER_EXTRA_TIME":
		return "after_extra_time"
	case "PENALTY_SHOOTOUT":
		return "penalties"
	case "TIMED", "SCHEDULED":
		return "timed"
	default:
		return strings.ToLower(status)
	}
}

// matchSlug genera un slug legible "home-vs-away" para logs y resolución.
func matchSlug(home, away string) string {
	s := strings.ToLower(home + "-vs-" + away)
	s = strings.ReplaceAll(s, " ", "-")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
