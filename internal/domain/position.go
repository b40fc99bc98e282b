package domain

import "time"

// PositionKind etiqueta qué predicción representa una posición.
type PositionKind int

const (
	// KindFavoredWin: el lado que va ganando gana el partido (token YES).
	KindFavoredWin PositionKind = iota
	// KindOpponentNegated: el otro lado NO gana (token NO de su mercado).
	KindOpponentNegated
	// KindDrawNegated: NO habrá empate (token NO del mercado draw).
	KindDrawNegated
	// KindDrawAffirmed: SÍ habrá empate (token YES del mercado draw).
	KindDrawAffirmed
)

// String devuelve el nombre legible del kind.
func (k PositionKind) String() string {
	switch k {
	case KindFavoredWin:
		return "favored-win"
	case KindOpponentNegated:
		return "opponent-negated"
	case KindDrawNegated:
		return "draw-negated"
	case KindDrawAffirmed:
		return "draw-affirmed"
	}
	return "unknown"
}

// PositionStatus es Open o Closed. Un cierre parcial reduce shares pero
// mantiene Open; solo un cierre completo transiciona a Closed.
type PositionStatus int

const (
	PositionOpen PositionStatus = iota
	PositionClosed
)

// String devuelve "open" o "closed".
func (s PositionStatus) String() string {
	if s == PositionClosed {
		return "closed"
	}
	return "open"
}

// Position es una participación abierta ligada a un resultado de un partido.
//
// Invariantes: Shares ≥ 0; Committed = Shares × EntryPrice al abrir;
// Open → Closed solo vía cierre de tamaño completo.
type Position struct {
	ID      string
	MatchID string
	Kind    PositionKind
	TokenID string // instrumento negociable (token id del CLOB)

	Shares       float64
	Committed    float64 // USDC comprometido al abrir
	EntryPrice   float64
	CurrentPrice float64
	RealizedPnL  float64

	Status   PositionStatus
	OpenedAt time.Time
	ClosedAt *time.Time
}

// UnrealizedPnL devuelve el PnL no realizado de las shares restantes.
func (p Position) UnrealizedPnL() float64 {
	return (p.CurrentPrice - p.EntryPrice) * p.Shares
}

// ProfitPct devuelve la ganancia no realizada como fracción del precio de
// entrada (0.5 = +50%). Devuelve 0 si la entrada es 0.
func (p Position) ProfitPct() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (p.CurrentPrice - p.EntryPrice) / p.EntryPrice
}

// ExitTier es un umbral de salida graduada: al cruzar ProfitPct se vende
// SellFraction de las shares RESTANTES. Cada tier dispara como máximo una
// vez por posición.
type ExitTier struct {
	ProfitPct    float64
	SellFraction float64
}

// DefaultExitTiers son los umbrales por defecto, en orden ascendente:
// +50% → vender 25%, +100% → vender 35%, +200% → vender 40%.
func DefaultExitTiers() []ExitTier {
	return []ExitTier{
		{ProfitPct: 0.50, SellFraction: 0.25},
		{ProfitPct: 1.00, SellFraction: 0.35},
		{ProfitPct: 2.00, SellFraction: 0.40},
	}
}

// OutcomeTokens son los dos token ids (YES/NO) de un mercado de resultado.
type OutcomeTokens struct {
	Yes string
	No  string
}

// MatchMarket agrupa los tres mercados de resultado de un partido.
type MatchMarket struct {
	MatchID string
	Slug    string
	Home    OutcomeTokens
	Away    OutcomeTokens
	Draw    OutcomeTokens
}

// SideTokens devuelve los tokens del mercado "gana <side>".
func (m MatchMarket) SideTokens(s Side) OutcomeTokens {
	if s == SideHome {
		return m.Home
	}
	return m.Away
}
