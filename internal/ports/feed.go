package ports

import (
	"context"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// LiveFeed obtiene el estado en vivo de todos los partidos del proveedor
// en UNA llamada batch, sin pre-filtrado por parte del caller.
type LiveFeed interface {
	// FetchLiveSnapshots devuelve los registros live actuales. Puede devolver
	// lista vacía. Debe soportar cadencia sub-segundo y ≥50 partidos por llamada.
	FetchLiveSnapshots(ctx context.Context) ([]domain.LiveSnapshot, error)
}

// MatchSource descubre partidos próximos para poblar el registry.
// Se consulta a cadencia lenta (minutos).
type MatchSource interface {
	// DiscoverMatches devuelve los metadatos de partidos próximos o en juego.
	DiscoverMatches(ctx context.Context) ([]domain.Match, error)
}

// RecordMatcher liga un snapshot externo a un partido rastreado cuando no hay
// primary key conocida: normalización + similitud de nombres de equipo.
// Los fallos de matching son esperados y se saltan en silencio.
type RecordMatcher interface {
	// Match devuelve el índice del candidato que corresponde al snapshot,
	// o -1 si ninguno supera el umbral de similitud.
	Match(rec domain.LiveSnapshot, candidates []domain.Match) int
}
