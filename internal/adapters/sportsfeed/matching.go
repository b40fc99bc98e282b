package sportsfeed

// matching.go: matching de identidad por nombres de equipo.
//
// Cuando un registro live no trae la primary key de un partido rastreado
// (proveedores distintos para discovery y live), se liga por similitud de
// nombres normalizados. Implementa ports.RecordMatcher; el core nunca ve
// strings de equipos, solo el resultado del match.

import (
	"strings"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// sufijos y partículas de club que no aportan identidad.
var teamNoise = map[string]struct{}{
	"fc": {}, "cf": {}, "afc": {}, "cd": {}, "sc": {}, "ac": {},
	"club": {}, "de": {}, "el": {}, "the": {}, "utd": {}, "united": {},
}

// TeamNameMatcher liga snapshots a partidos por similitud de nombres.
type TeamNameMatcher struct {
	// MinSimilarity es el umbral combinado [0,1] para aceptar un match.
	MinSimilarity float64
}

// NewTeamNameMatcher crea un matcher con el umbral por defecto (0.75).
func NewTeamNameMatcher() *TeamNameMatcher {
	return &TeamNameMatcher{MinSimilarity: 0.75}
}

// Match devuelve el índice del candidato cuyos DOS equipos superan el umbral
// de similitud contra el snapshot, o -1 si ninguno. Con varios candidatos
// gana el de mayor similitud combinada.
func (tm *TeamNameMatcher) Match(rec domain.LiveSnapshot, candidates []domain.Match) int {
	best, bestScore := -1, 0.0
	for i, m := range candidates {
		home := similarity(rec.HomeTeam, m.HomeTeam)
		away := similarity(rec.AwayTeam, m.AwayTeam)
		if home < tm.MinSimilarity || away < tm.MinSimilarity {
			continue
		}
		combined := (home + away) / 2
		if combined > bestScore {
			best, bestScore = i, combined
		}
	}
	return best
}

// similarity devuelve el coeficiente de Dice entre los tokens normalizados
// de dos nombres de equipo: 1.0 = idénticos, 0.0 = disjuntos.
func similarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	set := make(map[string]struct{}, len(ta))
	for _, t := range ta {
		set[t] = struct{}{}
	}
	for _, t := range tb {
		if _, ok := set[t]; ok {
			common++
		}
	}
	return 2 * float64(common) / float64(len(ta)+len(tb))
}

// tokenize normaliza un nombre: minúsculas, sin puntuación, sin sufijos de
// club ("FC", "United"...).
func tokenize(name string) []string {
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	var tokens []string
	for _, t := range strings.Fields(b.String()) {
		if _, noise := teamNoise[t]; noise {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}
