package ports

import (
	"context"

	"github.com/alejandrodnm/goalbot/internal/domain"
)

// StateSnapshot es el contrato mínimo de persistencia: lo justo para
// retomar el tracking tras un reinicio sin re-derivar estado.
type StateSnapshot struct {
	Matches   []domain.Match
	Positions []domain.Position // solo posiciones abiertas
}

// SnapshotStore persiste el snapshot de estado en el timer de debounce.
// Un fallo de escritura se loguea y se reintenta en el siguiente ciclo;
// el estado en memoria sigue siendo autoritativo.
type SnapshotStore interface {
	// SaveSnapshot sobreescribe el snapshot persistido con el estado actual.
	SaveSnapshot(ctx context.Context, snap StateSnapshot) error

	// LoadSnapshot devuelve el último snapshot persistido, o uno vacío si
	// no hay datos previos.
	LoadSnapshot(ctx context.Context) (StateSnapshot, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
