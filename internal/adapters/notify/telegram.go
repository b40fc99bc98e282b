package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
)

// Telegram implementa ports.Notifier enviando mensajes a un chat fijo.
// Solo eventos puntuales: goles, aperturas, cierres y finales. El resumen
// de ciclo se descarta para no inundar el chat.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram crea el notificador validando el token contra la API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{api: api, chatID: chatID}, nil
}

func (t *Telegram) OnGoal(_ context.Context, ev domain.GoalEvent, m domain.Match) error {
	return t.send(fmt.Sprintf("⚽ GOL %s vs %s\n%d-%d → %d-%d (%s, min %d)",
		m.HomeTeam, m.AwayTeam,
		ev.PrevScore.Home, ev.PrevScore.Away,
		ev.NewScore.Home, ev.NewScore.Away,
		ev.Side, ev.Minute))
}

func (t *Telegram) OnPositionOpened(_ context.Context, p domain.Position) error {
	return t.send(fmt.Sprintf("🟢 OPEN %s\n%.1f shares @ %.3f ($%.2f)",
		p.Kind, p.Shares, p.EntryPrice, p.Committed))
}

func (t *Telegram) OnPositionClosed(_ context.Context, p domain.Position, pnl float64, reason string) error {
	icon := "🔴"
	if pnl >= 0 {
		icon = "💰"
	}
	return t.send(fmt.Sprintf("%s CLOSE %s\npnl $%+.2f (%s)", icon, p.Kind, pnl, reason))
}

func (t *Telegram) OnMatchFinished(_ context.Context, m domain.Match) error {
	return t.send(fmt.Sprintf("🏁 FINAL %s %d-%d %s",
		m.HomeTeam, m.Score.Home, m.Score.Away, m.AwayTeam))
}

// OnCycleSummary no envía nada: demasiado frecuente para un chat.
func (t *Telegram) OnCycleSummary(_ context.Context, _ ports.CycleSummary) error {
	return nil
}

func (t *Telegram) send(text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("notify.Telegram: send: %w", err)
	}
	return nil
}
