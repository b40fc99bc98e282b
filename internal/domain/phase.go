package domain

// phase.go: clasificador de fases del ciclo de vida de un partido.
//
// La fase determina la cadencia de polling: un partido a 5 horas del kickoff
// no necesita más de un poll por minuto, uno en el minuto 88 necesita polls
// cada segundo con máxima prioridad de scheduling.

import "time"

// Phase es una etapa del ciclo de vida que gobierna la cadencia de polling.
// El orden importa: fases más altas tienen mayor prioridad de scheduling.
type Phase int

const (
	PhaseDiscovery     Phase = iota // lejos del kickoff
	PhasePreMatch                   // kickoff en <10 minutos
	PhaseEarly                      // minuto < 15
	PhaseMid                        // 15 ≤ minuto < 70
	PhaseCritical                   // 70 ≤ minuto < 85
	PhaseUltraCritical              // minuto ≥ 85
	PhasePostMatch                  // minuto en [90,120] sin final confirmado
	PhaseDone                       // >120 minutos o final explícito: dejar de rastrear
)

// String devuelve el nombre legible de la fase.
func (p Phase) String() string {
	switch p {
	case PhaseDiscovery:
		return "discovery"
	case PhasePreMatch:
		return "pre-match"
	case PhaseEarly:
		return "early"
	case PhaseMid:
		return "mid"
	case PhaseCritical:
		return "critical"
	case PhaseUltraCritical:
		return "ultra-critical"
	case PhasePostMatch:
		return "post-match"
	case PhaseDone:
		return "done"
	}
	return "unknown"
}

// Priority devuelve la prioridad de scheduling: mayor = se atiende antes.
// Los minutos finales deciden los mercados, ahí no se puede llegar tarde.
func (p Phase) Priority() int {
	switch p {
	case PhaseUltraCritical:
		return 3
	case PhaseCritical:
		return 2
	case PhaseEarly, PhaseMid:
		return 1
	default:
		return 0
	}
}

// Live devuelve true si la fase corresponde a un partido en juego.
func (p Phase) Live() bool {
	return p >= PhaseEarly && p <= PhaseUltraCritical
}

// Límites de fase en minutos de juego.
const (
	earlyMaxMinute    = 15
	midMaxMinute      = 70
	criticalMaxMinute = 85
	regulationMinutes = 90
	doneCeilingMinute = 120
	preMatchWindowMin = 10
)

// Intervalos de polling recomendados por fase.
const (
	intervalDiscovery = 60 * time.Second
	intervalPreMatch  = 30 * time.Second
	intervalLive      = 1 * time.Second
	intervalPostMatch = 10 * time.Second
)

// Classify mapea el estado de un partido a su fase y al intervalo de polling
// recomendado. Función pura: no consulta ni muta nada.
//
// Desempate: el status explícito del último poll gana sobre la estimación
// temporal: un partido que el proveedor confirma Finished está done aunque
// el reloj diga minuto 70.
func Classify(m Match, now time.Time) (Phase, time.Duration) {
	if m.Status == StatusFinished {
		return PhaseDone, 0
	}

	if m.Status == StatusUpcoming || m.Status == StatusSoon {
		if m.MinutesToKickoff(now) > preMatchWindowMin {
			return PhaseDiscovery, intervalDiscovery
		}
		if now.Before(m.Kickoff) {
			return PhasePreMatch, intervalPreMatch
		}
		// Kickoff pasado pero el proveedor aún no confirma live: tratar como
		// live temprano, el minuto se estima por reloj de pared.
	}

	elapsed := m.ElapsedMinute(now)
	switch {
	case elapsed > doneCeilingMinute:
		return PhaseDone, 0
	case elapsed >= regulationMinutes && m.Minute == nil:
		// Más allá del 90 sin minuto confirmado: probablemente terminó y el
		// feed no lo reporta todavía. Bajar cadencia hasta confirmar.
		return PhasePostMatch, intervalPostMatch
	case elapsed >= criticalMaxMinute:
		return PhaseUltraCritical, intervalLive
	case elapsed >= midMaxMinute:
		return PhaseCritical, intervalLive
	case elapsed >= earlyMaxMinute:
		return PhaseMid, intervalLive
	default:
		return PhaseEarly, intervalLive
	}
}
