package domain

import "time"

// ChangeKind clasifica el resultado de comparar un snapshot contra el último
// marcador almacenado.
type ChangeKind int

const (
	ChangeNone         ChangeKind = iota // marcador igual, o primera observación live
	ChangeGoal                           // subida estricta: gol genuino
	ChangeCancellation                   // bajada: gol anulado (VAR) o corrección del feed
)

// String devuelve el nombre legible del cambio.
func (k ChangeKind) String() string {
	switch k {
	case ChangeGoal:
		return "goal"
	case ChangeCancellation:
		return "cancellation"
	}
	return "none"
}

// GoalEvent es una subida estricta de marcador detectada. Se produce
// exactamente una vez por gol genuino; nunca por una bajada ni por la
// primera observación tras entrar en live.
type GoalEvent struct {
	MatchID    string
	PrevScore  Score
	NewScore   Score
	Side       Side // lado al que se atribuye el gol
	Minute     int
	DetectedAt time.Time
}

// CancellationEvent es una bajada de marcador: gol anulado o corrección.
// Actualiza el marcador almacenado pero nunca dispara trading.
type CancellationEvent struct {
	MatchID    string
	PrevScore  Score
	NewScore   Score
	Minute     int
	DetectedAt time.Time
}

// AttributeSide decide a qué lado atribuir una subida de marcador: el lado
// con mayor delta. Si ambos suben lo mismo (polls perdidos), se atribuye
// al local.
func AttributeSide(prev, new Score) Side {
	if new.Away-prev.Away > new.Home-prev.Home {
		return SideAway
	}
	return SideHome
}
