package storage

// sqlite.go — persistencia ligera de resúmenes y contadores.
//
// Estrategia:
//   - `cycles`: una fila por ciclo de observación (~60 bytes). Es la serie
//     temporal barata para saber qué hizo el monitor mientras no mirabas.
//   - `pair_stats`: UNA fila por (par, notional), upsert en cada ciclo.
//     Refleja los contadores monotónicos en memoria, así el resumen
//     sobrevive a un crash del proceso.
//   - Prune automático al arrancar: cycles > 30d.
//
// El registro durable por-round-trip NO vive aquí: ese es el JSONL
// append-only de recordlog. Esta base es el agregado consultable.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/dexarb/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Resumen ligero por ciclo de observación
CREATE TABLE IF NOT EXISTS cycles (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    block           INTEGER  NOT NULL,
    observed_at     DATETIME NOT NULL,
    pairs           INTEGER  NOT NULL DEFAULT 0,
    round_trips     INTEGER  NOT NULL DEFAULT 0,
    pair_failures   INTEGER  NOT NULL DEFAULT 0,
    no_route        INTEGER  NOT NULL DEFAULT 0,
    schema_mismatch INTEGER  NOT NULL DEFAULT 0,
    reverted        INTEGER  NOT NULL DEFAULT 0,
    unreachable     INTEGER  NOT NULL DEFAULT 0,
    other_failures  INTEGER  NOT NULL DEFAULT 0,
    best_spread     REAL     NOT NULL DEFAULT 0,
    best_net        REAL     NOT NULL DEFAULT 0,
    crossings       INTEGER  NOT NULL DEFAULT 0,
    alerts          INTEGER  NOT NULL DEFAULT 0,
    elapsed_ms      INTEGER  NOT NULL DEFAULT 0
);

-- Una fila por (par, notional), espejo de los contadores en memoria
CREATE TABLE IF NOT EXISTS pair_stats (
    pair               TEXT    NOT NULL,
    notional_usd       REAL    NOT NULL,
    checks             INTEGER NOT NULL DEFAULT 0,
    crossed_03         INTEGER NOT NULL DEFAULT 0,
    crossed_05         INTEGER NOT NULL DEFAULT 0,
    crossed_10         INTEGER NOT NULL DEFAULT 0,
    persistence_events INTEGER NOT NULL DEFAULT 0,
    sum_net_pct        REAL    NOT NULL DEFAULT 0,
    best_spread_pct    REAL    NOT NULL DEFAULT 0,
    no_route           INTEGER NOT NULL DEFAULT 0,
    schema_mismatch    INTEGER NOT NULL DEFAULT 0,
    reverted           INTEGER NOT NULL DEFAULT 0,
    unreachable        INTEGER NOT NULL DEFAULT 0,
    other_failures     INTEGER NOT NULL DEFAULT 0,
    updated_at         DATETIME NOT NULL,
    PRIMARY KEY (pair, notional_usd)
);

CREATE INDEX IF NOT EXISTS idx_cycles_at ON cycles(observed_at DESC);
`

const retentionCycles = 30 * 24 * time.Hour // ciclos: 30 días

// SQLiteStore implementa ports.CycleStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada, aplica el
// schema y limpia ciclos antiguos.
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

// SaveCycle inserta el resumen de un ciclo — siempre una fila nueva.
func (s *SQLiteStore) SaveCycle(ctx context.Context, sum domain.CycleSummary) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO cycles
			(block, observed_at, pairs, round_trips, pair_failures,
			 no_route, schema_mismatch, reverted, unreachable, other_failures,
			 best_spread, best_net, crossings, alerts, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.Block, sum.At.UTC(), sum.Pairs, sum.RoundTrips, sum.PairFailures,
		sum.QuoteErrors.NoRoute, sum.QuoteErrors.SchemaMismatch,
		sum.QuoteErrors.Reverted, sum.QuoteErrors.Unreachable, sum.QuoteErrors.Other,
		sum.BestSpreadPct, sum.BestNetPct, sum.Crossings, sum.Alerts,
		sum.Elapsed.Milliseconds(),
	); err != nil {
		return fmt.Errorf("storage.SaveCycle: insert: %w", err)
	}
	return nil
}

// SaveStats hace upsert de los contadores por (par, notional). Los
// contadores son monotónicos, así que sobreescribir es siempre seguro.
func (s *SQLiteStore) SaveStats(ctx context.Context, stats map[domain.StatsKey]domain.PairStats) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveStats: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pair_stats
			(pair, notional_usd, checks, crossed_03, crossed_05, crossed_10,
			 persistence_events, sum_net_pct, best_spread_pct,
			 no_route, schema_mismatch, reverted, unreachable, other_failures,
			 updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pair, notional_usd) DO UPDATE SET
			checks             = excluded.checks,
			crossed_03         = excluded.crossed_03,
			crossed_05         = excluded.crossed_05,
			crossed_10         = excluded.crossed_10,
			persistence_events = excluded.persistence_events,
			sum_net_pct        = excluded.sum_net_pct,
			best_spread_pct    = excluded.best_spread_pct,
			no_route           = excluded.no_route,
			schema_mismatch    = excluded.schema_mismatch,
			reverted           = excluded.reverted,
			unreachable        = excluded.unreachable,
			other_failures     = excluded.other_failures,
			updated_at         = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveStats: prepare: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for key, ps := range stats {
		if _, err := stmt.ExecContext(ctx,
			key.Pair, key.NotionalUSD,
			ps.Checks, ps.CrossedLow, ps.CrossedMid, ps.CrossedHigh,
			ps.PersistenceEvents, ps.SumNetPct, ps.BestSpreadPct,
			ps.QuoteFailures.NoRoute, ps.QuoteFailures.SchemaMismatch,
			ps.QuoteFailures.Reverted, ps.QuoteFailures.Unreachable,
			ps.QuoteFailures.Other, now,
		); err != nil {
			return fmt.Errorf("storage.SaveStats: upsert %s/%.0f: %w", key.Pair, key.NotionalUSD, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveStats: commit: %w", err)
	}
	return nil
}

// GetStats devuelve los contadores persistidos, para inspección offline.
func (s *SQLiteStore) GetStats(ctx context.Context) (map[domain.StatsKey]domain.PairStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pair, notional_usd, checks, crossed_03, crossed_05, crossed_10,
		       persistence_events, sum_net_pct, best_spread_pct,
		       no_route, schema_mismatch, reverted, unreachable, other_failures
		FROM pair_stats
		ORDER BY pair, notional_usd
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetStats: query: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.StatsKey]domain.PairStats)
	for rows.Next() {
		var key domain.StatsKey
		var ps domain.PairStats
		if err := rows.Scan(
			&key.Pair, &key.NotionalUSD,
			&ps.Checks, &ps.CrossedLow, &ps.CrossedMid, &ps.CrossedHigh,
			&ps.PersistenceEvents, &ps.SumNetPct, &ps.BestSpreadPct,
			&ps.QuoteFailures.NoRoute, &ps.QuoteFailures.SchemaMismatch,
			&ps.QuoteFailures.Reverted, &ps.QuoteFailures.Unreachable,
			&ps.QuoteFailures.Other,
		); err != nil {
			return nil, fmt.Errorf("storage.GetStats: scan: %w", err)
		}
		out[key] = ps
	}
	return out, rows.Err()
}

// Close cierra la conexión.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld borra ciclos más viejos que la retención. Best-effort.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionCycles)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE observed_at < ?`, cutoff)
}
