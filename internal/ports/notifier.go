package ports

import (
	"context"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// Notifier recibe los eventos del core en modo fire-and-forget: un fallo en
// el notifier nunca afecta a la corrección del core (se loguea y se sigue).
type Notifier interface {
	OnGoal(ctx context.Context, ev domain.GoalEvent, m domain.Match) error
	OnPositionOpened(ctx context.Context, p domain.Position) error
	OnPositionClosed(ctx context.Context, p domain.Position, pnl float64, reason string) error
	OnMatchFinished(ctx context.Context, m domain.Match) error

	// OnCycleSummary presenta el resumen de un tick: partidos rastreados,
	// posiciones abiertas, PnL acumulado.
	OnCycleSummary(ctx context.Context, s CycleSummary) error
}

// CycleSummary es el resumen de un tick del orchestrator.
type CycleSummary struct {
	Tracked       int
	LiveTracked   int
	OpenPositions []domain.Position
	GoalsDetected int
	RealizedPnL   float64
	FailedActions int
}
