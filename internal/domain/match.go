package domain

import "time"

// MatchStatus es el estado de ciclo de vida de un partido.
// Las transiciones son estrictamente monótonas: nunca se retrocede.
type MatchStatus int

const (
	StatusUpcoming MatchStatus = iota // lejos del kickoff
	StatusSoon                        // kickoff en <10 minutos
	StatusLive                        // en juego
	StatusFinished                    // terminado (confirmado o inferido)
)

// String devuelve el nombre legible del estado.
func (s MatchStatus) String() string {
	switch s {
	case StatusUpcoming:
		return "upcoming"
	case StatusSoon:
		return "soon"
	case StatusLive:
		return "live"
	case StatusFinished:
		return "finished"
	}
	return "unknown"
}

// ParseMatchStatus convierte el nombre persistido de vuelta al estado.
func ParseMatchStatus(s string) MatchStatus {
	switch s {
	case "soon":
		return StatusSoon
	case "live":
		return StatusLive
	case "finished":
		return StatusFinished
	default:
		return StatusUpcoming
	}
}

// StatusFromTag mapea los tags normalizados del proveedor al estado de ciclo
// de vida. Los tags desconocidos no aportan información de ciclo de vida.
func StatusFromTag(tag string) (MatchStatus, bool) {
	switch tag {
	case "live", "in_play", "paused", "halftime", "extra_time":
		return StatusLive, true
	case "finished", "full_time", "after_extra_time", "penalties":
		return StatusFinished, true
	case "timed", "scheduled":
		return StatusUpcoming, true
	}
	return 0, false
}

// Score es el marcador de un partido. Bajo juego normal es monótonamente
// no-decreciente; una bajada es una corrección (VAR) y la decide el detector,
// no el modelo.
type Score struct {
	Home int
	Away int
}

// IsTied devuelve true si el marcador está empatado.
func (s Score) IsTied() bool { return s.Home == s.Away }

// Leader devuelve el lado que va ganando. No tiene sentido si IsTied().
func (s Score) Leader() Side {
	if s.Home > s.Away {
		return SideHome
	}
	return SideAway
}

// Total devuelve la suma de goles de ambos lados.
func (s Score) Total() int { return s.Home + s.Away }

// IncreaseOver devuelve true si s es estrictamente mayor que prev en algún lado
// y no menor en ninguno.
func (s Score) IncreaseOver(prev Score) bool {
	return (s.Home > prev.Home || s.Away > prev.Away) &&
		s.Home >= prev.Home && s.Away >= prev.Away
}

// DecreaseFrom devuelve true si s es menor que prev en algún lado.
func (s Score) DecreaseFrom(prev Score) bool {
	return s.Home < prev.Home || s.Away < prev.Away
}

// Side identifica uno de los dos equipos de un partido.
type Side int

const (
	SideHome Side = iota
	SideAway
)

// String devuelve "home" o "away".
func (s Side) String() string {
	if s == SideHome {
		return "home"
	}
	return "away"
}

// Match es un partido rastreado: identidad, marcador y ciclo de vida.
// El registry es el único dueño del estado canónico; el resto de componentes
// trabajan sobre copias.
type Match struct {
	ID       string // id estable del proveedor de partidos
	Slug     string // slug legible para logs y resolución de mercados
	HomeTeam string
	AwayTeam string

	Kickoff   time.Time
	Score     Score
	Minute    *int   // minuto de juego; nil antes de estar live
	StatusTag string // tag crudo del último poll del proveedor
	Status    MatchStatus

	FinishedAt time.Time // cuándo pasó a Finished (para el cooldown de borrado)
	UpdatedAt  time.Time
}

// ElapsedMinute devuelve el minuto de juego. Si el proveedor no lo informa
// pero el kickoff ya pasó, lo estima desde el reloj de pared.
func (m Match) ElapsedMinute(now time.Time) int {
	if m.Minute != nil {
		return *m.Minute
	}
	if m.Kickoff.IsZero() || now.Before(m.Kickoff) {
		return 0
	}
	return int(now.Sub(m.Kickoff).Minutes())
}

// MinutesToKickoff devuelve los minutos que faltan para el kickoff.
// Negativo si ya pasó.
func (m Match) MinutesToKickoff(now time.Time) float64 {
	return m.Kickoff.Sub(now).Minutes()
}

// LiveSnapshot es un registro crudo del feed de resultados en vivo.
type LiveSnapshot struct {
	ExternalID string
	HomeTeam   string
	AwayTeam   string
	Score      Score
	Minute     *int
	StatusTag  string
}
