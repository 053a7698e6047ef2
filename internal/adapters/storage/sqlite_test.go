package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/dexarb/internal/adapters/storage"
	"github.com/alejandrodnm/dexarb/internal/domain"
)

func newStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	s, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveCycle(t *testing.T) {
	s := newStore(t)

	sum := domain.CycleSummary{
		Block:         12345,
		At:            time.Now().UTC(),
		Pairs:         3,
		RoundTrips:    10,
		PairFailures:  1,
		QuoteErrors:   domain.QuoteFailureCounts{NoRoute: 2, Unreachable: 1},
		BestSpreadPct: 0.42,
		BestNetPct:    0.37,
		Crossings:     2,
		Alerts:        1,
		Elapsed:       800 * time.Millisecond,
	}

	require.NoError(t, s.SaveCycle(context.Background(), sum))
	// Un resumen por ciclo: las filas son siempre nuevas.
	require.NoError(t, s.SaveCycle(context.Background(), sum))
}

func TestSQLiteStore_StatsUpsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	key := domain.StatsKey{Pair: "WETH/USDC", NotionalUSD: 1000}

	require.NoError(t, s.SaveStats(ctx, map[domain.StatsKey]domain.PairStats{
		key: {Checks: 5, CrossedLow: 2, SumNetPct: 0.8, BestSpreadPct: 0.45},
	}))

	// Segundo ciclo: los contadores avanzan y el upsert sobreescribe.
	require.NoError(t, s.SaveStats(ctx, map[domain.StatsKey]domain.PairStats{
		key: {
			Checks: 9, CrossedLow: 3, CrossedMid: 1, PersistenceEvents: 1,
			SumNetPct: 1.4, BestSpreadPct: 0.62,
			QuoteFailures: domain.QuoteFailureCounts{NoRoute: 4, SchemaMismatch: 1},
		},
	}))

	got, err := s.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	ps := got[key]
	assert.Equal(t, 9, ps.Checks)
	assert.Equal(t, 3, ps.CrossedLow)
	assert.Equal(t, 1, ps.CrossedMid)
	assert.Equal(t, 0, ps.CrossedHigh)
	assert.Equal(t, 1, ps.PersistenceEvents)
	assert.InDelta(t, 1.4, ps.SumNetPct, 1e-9)
	assert.InDelta(t, 0.62, ps.BestSpreadPct, 1e-9)
	assert.Equal(t, domain.QuoteFailureCounts{NoRoute: 4, SchemaMismatch: 1}, ps.QuoteFailures,
		"el desglose de fallos sobrevive al round trip por SQLite")
}

func TestSQLiteStore_StatsSeparateKeys(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveStats(ctx, map[domain.StatsKey]domain.PairStats{
		{Pair: "WETH/USDC", NotionalUSD: 1000}:  {Checks: 1},
		{Pair: "WETH/USDC", NotionalUSD: 10000}: {Checks: 2},
		{Pair: "WBTC/USDC", NotionalUSD: 1000}:  {Checks: 3},
	}))

	got, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 3, "el notional forma parte de la clave, no se mezclan tamaños")
}

func TestSQLiteStore_EmptyStatsIsNoop(t *testing.T) {
	s := newStore(t)
	assert.NoError(t, s.SaveStats(context.Background(), nil))
}
