package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador de consola. Con table=true el resumen de
// ciclo imprime la tabla completa de posiciones; si no, una línea compacta.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// OnGoal imprime el gol detectado con marcador anterior y nuevo.
func (c *Console) OnGoal(_ context.Context, ev domain.GoalEvent, m domain.Match) error {
	fmt.Fprintf(c.out, "[%s] GOAL %s %d-%d → %d-%d (%s, min %d)\n",
		stamp(), matchLabel(m),
		ev.PrevScore.Home, ev.PrevScore.Away,
		ev.NewScore.Home, ev.NewScore.Away,
		ev.Side, ev.Minute)
	return nil
}

// OnPositionOpened imprime la posición abierta.
func (c *Console) OnPositionOpened(_ context.Context, p domain.Position) error {
	fmt.Fprintf(c.out, "[%s] OPEN  %-16s %s  %.1f shares @ %.3f ($%.2f)\n",
		stamp(), p.Kind, shortToken(p.TokenID), p.Shares, p.EntryPrice, p.Committed)
	return nil
}

// OnPositionClosed imprime el cierre (parcial o total) con su PnL.
func (c *Console) OnPositionClosed(_ context.Context, p domain.Position, pnl float64, reason string) error {
	state := "PART"
	if p.Status == domain.PositionClosed {
		state = "CLOSE"
	}
	fmt.Fprintf(c.out, "[%s] %-5s %-16s %s  pnl $%+.2f  (%s)\n",
		stamp(), state, p.Kind, shortToken(p.TokenID), pnl, reason)
	return nil
}

// OnMatchFinished imprime el final del partido.
func (c *Console) OnMatchFinished(_ context.Context, m domain.Match) error {
	fmt.Fprintf(c.out, "[%s] FT    %s %d-%d\n",
		stamp(), matchLabel(m), m.Score.Home, m.Score.Away)
	return nil
}

// OnCycleSummary imprime el resumen del tick: compacto por defecto,
// tabla de posiciones con table=true.
func (c *Console) OnCycleSummary(_ context.Context, s ports.CycleSummary) error {
	if !c.table {
		c.printCompact(s)
		return nil
	}
	c.printCompact(s)
	if len(s.OpenPositions) > 0 {
		c.printPositions(s.OpenPositions)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(s ports.CycleSummary) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d tracked (%d live) | %d pos | goals:%d | pnl $%+.2f",
		stamp(), s.Tracked, s.LiveTracked, len(s.OpenPositions), s.GoalsDetected, s.RealizedPnL)
	if s.FailedActions > 0 {
		fmt.Fprintf(&sb, " | !! %d failed orders", s.FailedActions)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printPositions imprime la tabla de posiciones abiertas con PnL no realizado.
func (c *Console) printPositions(positions []domain.Position) {
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Match", "Kind", "Shares", "Entry", "Now", "uPnL", "rPnL")

	var unrealized, realized float64
	for i, p := range positions {
		unrealized += p.UnrealizedPnL()
		realized += p.RealizedPnL
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(p.MatchID, 20),
			p.Kind.String(),
			fmt.Sprintf("%.1f", p.Shares),
			fmt.Sprintf("%.3f", p.EntryPrice),
			fmt.Sprintf("%.3f", p.CurrentPrice),
			fmt.Sprintf("$%+.2f", p.UnrealizedPnL()),
			fmt.Sprintf("$%+.2f", p.RealizedPnL),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "  unrealized $%+.2f | realized $%+.2f\n", unrealized, realized)
}

// --- helpers ---

func stamp() string {
	return time.Now().Format("15:04:05")
}

func matchLabel(m domain.Match) string {
	return fmt.Sprintf("%s vs %s", m.HomeTeam, m.AwayTeam)
}

func shortToken(id string) string {
	if len(id) > 10 {
		return id[:8] + ".."
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
