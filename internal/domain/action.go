package domain

// ActionType distingue aperturas de cierres.
type ActionType int

const (
	ActionOpen  ActionType = iota // comprar con importe en USDC
	ActionClose                   // vender N shares de una posición existente
)

// String devuelve "open" o "close".
func (t ActionType) String() string {
	if t == ActionClose {
		return "close"
	}
	return "open"
}

// OrderAction es una acción determinista producida por el decision engine o
// por las reglas de salida. El coordinator la ejecuta; el ledger solo aplica
// las que terminan en éxito.
type OrderAction struct {
	Type    ActionType
	MatchID string
	TokenID string
	Reason  string // "first-goal", "equalizer-flip", "exit-tier-50", "stop-loss", "match-finished"...

	// Aperturas
	Kind      PositionKind
	AmountUSD float64

	// Cierres
	PositionID string
	Shares     float64 // shares a vender
	Fraction   float64 // fracción de las shares restantes (1.0 = cierre total)
	Tier       *int    // índice del exit tier que emite este cierre; nil fuera de las salidas graduadas
}

// ActionResult es el resultado por-acción del coordinator. Err != nil marca
// fallo de esa acción sin afectar a sus hermanas.
type ActionResult struct {
	Action       OrderAction
	FilledShares float64
	FillPrice    float64
	Err          error
}
