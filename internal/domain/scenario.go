package domain

// Scenario clasifica una transición estrictamente creciente de marcador.
// La clasificación es total y mutuamente excluyente: toda subida estricta
// cae en exactamente uno de los tres escenarios.
type Scenario int

const (
	// ScenarioFirstGoal: el primer gol del partido (antes 0-0).
	ScenarioFirstGoal Scenario = iota
	// ScenarioEqualizer: el gol restaura el empate.
	ScenarioEqualizer
	// ScenarioLeadExtension: el marcador sigue desigualado tras un partido ya
	// abierto: ventaja ampliada o gol de desempate con posiciones vivas.
	ScenarioLeadExtension
)

// String devuelve el nombre legible del escenario.
func (s Scenario) String() string {
	switch s {
	case ScenarioFirstGoal:
		return "first-goal"
	case ScenarioEqualizer:
		return "equalizer"
	case ScenarioLeadExtension:
		return "lead-extension"
	}
	return "unknown"
}

// ClassifyScenario mapea la transición prev→new a su escenario.
// Asume new.IncreaseOver(prev); para cualquier otra entrada el resultado
// no está definido.
func ClassifyScenario(prev, new Score) Scenario {
	switch {
	case new.IsTied():
		// Cubre el empate restaurado (1-0 → 1-1) y también el salto
		// multi-gol 0-0 → 1-1 de un poll perdido: en ambos casos el estado
		// de mercado correcto es "empate afirmado".
		return ScenarioEqualizer
	case prev.Total() == 0:
		return ScenarioFirstGoal
	default:
		// Incluye tanto el líder que amplía (1-0 → 2-0) como el gol que
		// rompe un empate con partido ya abierto (1-1 → 2-1): en ambos se
		// recogen beneficios parciales y se añade a media talla.
		return ScenarioLeadExtension
	}
}
