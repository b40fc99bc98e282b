package storage

// sqlite.go: snapshot de estado para sobrevivir reinicios.
//
// Estrategia:
//   - `matches`: una fila por partido rastreado (UPSERT por id externo).
//   - `positions`: una fila por posición (UPSERT por id). Las cerradas se
//     conservan como histórico de PnL; LoadSnapshot solo devuelve abiertas.
//   - El flush lo decide el orquestador (dirty flag + periodo fijo); aquí
//     solo escribimos lo que nos pasan, en una transacción.
//   - Prune automático al arrancar: partidos finished con last_update > 24h.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/goalbot/internal/domain"
	"github.com/alejandrodnm/goalbot/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
-- Partidos rastreados, una fila por id del proveedor
CREATE TABLE IF NOT EXISTS matches (
    id          TEXT PRIMARY KEY,
    slug        TEXT NOT NULL,
    home_team   TEXT NOT NULL,
    away_team   TEXT NOT NULL,
    kickoff     DATETIME NOT NULL,
    home_goals  INTEGER NOT NULL DEFAULT 0,
    away_goals  INTEGER NOT NULL DEFAULT 0,
    minute      INTEGER,
    status_tag  TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    finished_at DATETIME,
    updated_at  DATETIME NOT NULL
);

-- Posiciones, una fila por id interno
CREATE TABLE IF NOT EXISTS positions (
    id            TEXT PRIMARY KEY,
    match_id      TEXT NOT NULL,
    kind          TEXT NOT NULL,
    token_id      TEXT NOT NULL,
    shares        REAL NOT NULL DEFAULT 0,
    committed     REAL NOT NULL DEFAULT 0,
    entry_price   REAL NOT NULL DEFAULT 0,
    current_price REAL NOT NULL DEFAULT 0,
    realized_pnl  REAL NOT NULL DEFAULT 0,
    status        TEXT NOT NULL,
    opened_at     DATETIME NOT NULL,
    closed_at     DATETIME
);

CREATE INDEX IF NOT EXISTS idx_matches_status   ON matches(status);
CREATE INDEX IF NOT EXISTS idx_positions_match  ON positions(match_id);
CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
`

// retención de partidos finished: más allá de esto ya no aportan nada
const retentionFinished = 24 * time.Hour

// SQLiteStore implementa ports.SnapshotStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia partidos antiguos.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveSnapshot hace upsert del estado completo en una transacción.
// Los partidos que ya no están en el snapshot no se borran aquí; los
// finished viejos caen por prune al siguiente arranque.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap ports.StateSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshot: begin tx: %w", err)
	}
	defer tx.Rollback()

	matchStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches
			(id, slug, home_team, away_team, kickoff, home_goals, away_goals,
			 minute, status_tag, status, finished_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug        = excluded.slug,
			home_team   = excluded.home_team,
			away_team   = excluded.away_team,
			kickoff     = excluded.kickoff,
			home_goals  = excluded.home_goals,
			away_goals  = excluded.away_goals,
			minute      = excluded.minute,
			status_tag  = excluded.status_tag,
			status      = excluded.status,
			finished_at = excluded.finished_at,
			updated_at  = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshot: prepare matches: %w", err)
	}
	defer matchStmt.Close()

	for _, m := range snap.Matches {
		var finishedAt *time.Time
		if !m.FinishedAt.IsZero() {
			t := m.FinishedAt.UTC()
			finishedAt = &t
		}
		if _, err := matchStmt.ExecContext(ctx,
			m.ID, m.Slug, m.HomeTeam, m.AwayTeam, m.Kickoff.UTC(),
			m.Score.Home, m.Score.Away, m.Minute, m.StatusTag,
			m.Status.String(), finishedAt, m.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("storage.SaveSnapshot: upsert match %s: %w", m.ID, err)
		}
	}

	posStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO positions
			(id, match_id, kind, token_id, shares, committed, entry_price,
			 current_price, realized_pnl, status, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			shares        = excluded.shares,
			committed     = excluded.committed,
			current_price = excluded.current_price,
			realized_pnl  = excluded.realized_pnl,
			status        = excluded.status,
			closed_at     = excluded.closed_at
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshot: prepare positions: %w", err)
	}
	defer posStmt.Close()

	for _, p := range snap.Positions {
		var closedAt *time.Time
		if p.ClosedAt != nil {
			t := p.ClosedAt.UTC()
			closedAt = &t
		}
		if _, err := posStmt.ExecContext(ctx,
			p.ID, p.MatchID, p.Kind.String(), p.TokenID,
			p.Shares, p.Committed, p.EntryPrice, p.CurrentPrice,
			p.RealizedPnL, p.Status.String(), p.OpenedAt.UTC(), closedAt,
		); err != nil {
			return fmt.Errorf("storage.SaveSnapshot: upsert position %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSnapshot: commit: %w", err)
	}
	return nil
}

// LoadSnapshot devuelve los partidos no terminados y las posiciones abiertas.
func (s *SQLiteStore) LoadSnapshot(ctx context.Context) (ports.StateSnapshot, error) {
	var snap ports.StateSnapshot

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, home_team, away_team, kickoff, home_goals, away_goals,
		       minute, status_tag, status, finished_at, updated_at
		FROM matches
		WHERE status != 'finished'
	`)
	if err != nil {
		return snap, fmt.Errorf("storage.LoadSnapshot: query matches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Match
		var status string
		var minute sql.NullInt64
		var finishedAt sql.NullTime
		if err := rows.Scan(
			&m.ID, &m.Slug, &m.HomeTeam, &m.AwayTeam, &m.Kickoff,
			&m.Score.Home, &m.Score.Away, &minute, &m.StatusTag,
			&status, &finishedAt, &m.UpdatedAt,
		); err != nil {
			return snap, fmt.Errorf("storage.LoadSnapshot: scan match: %w", err)
		}
		m.Status = domain.ParseMatchStatus(status)
		if minute.Valid {
			v := int(minute.Int64)
			m.Minute = &v
		}
		if finishedAt.Valid {
			m.FinishedAt = finishedAt.Time
		}
		snap.Matches = append(snap.Matches, m)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("storage.LoadSnapshot: matches rows: %w", err)
	}

	posRows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, kind, token_id, shares, committed, entry_price,
		       current_price, realized_pnl, opened_at
		FROM positions
		WHERE status = 'open'
	`)
	if err != nil {
		return snap, fmt.Errorf("storage.LoadSnapshot: query positions: %w", err)
	}
	defer posRows.Close()

	for posRows.Next() {
		var p domain.Position
		var kind string
		if err := posRows.Scan(
			&p.ID, &p.MatchID, &kind, &p.TokenID, &p.Shares, &p.Committed,
			&p.EntryPrice, &p.CurrentPrice, &p.RealizedPnL, &p.OpenedAt,
		); err != nil {
			return snap, fmt.Errorf("storage.LoadSnapshot: scan position: %w", err)
		}
		p.Kind = parseKind(kind)
		p.Status = domain.PositionOpen
		snap.Positions = append(snap.Positions, p)
	}
	if err := posRows.Err(); err != nil {
		return snap, fmt.Errorf("storage.LoadSnapshot: positions rows: %w", err)
	}

	return snap, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld elimina partidos finished antiguos y sus posiciones cerradas.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionFinished)
	s.db.ExecContext(ctx, `
		DELETE FROM positions WHERE status = 'closed' AND match_id IN
			(SELECT id FROM matches WHERE status = 'finished' AND updated_at < ?)
	`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM matches WHERE status = 'finished' AND updated_at < ?`, cutoff)
}

// parseKind convierte el nombre persistido de vuelta al kind.
func parseKind(s string) domain.PositionKind {
	switch s {
	case "opponent-negated":
		return domain.KindOpponentNegated
	case "draw-negated":
		return domain.KindDrawNegated
	case "draw-affirmed":
		return domain.KindDrawAffirmed
	default:
		return domain.KindFavoredWin
	}
}
