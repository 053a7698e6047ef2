package monitor

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

type stubHead struct{ block uint64 }

func (s *stubHead) HeadBlock(_ context.Context) (uint64, error) { return s.block, nil }

type stubOracle struct{ prices map[string]float64 }

func (s *stubOracle) PriceUSD(_ context.Context, id string) (float64, error) {
	return s.prices[id], nil
}

type stubRecorder struct{ records []domain.RoundTrip }

func (s *stubRecorder) Record(_ context.Context, rt domain.RoundTrip) error {
	s.records = append(s.records, rt)
	return nil
}
func (s *stubRecorder) Close() error { return nil }

type stubStore struct {
	cycles []domain.CycleSummary
	stats  []map[domain.StatsKey]domain.PairStats
}

func (s *stubStore) SaveCycle(_ context.Context, sum domain.CycleSummary) error {
	s.cycles = append(s.cycles, sum)
	return nil
}

func (s *stubStore) SaveStats(_ context.Context, stats map[domain.StatsKey]domain.PairStats) error {
	s.stats = append(s.stats, stats)
	return nil
}
func (s *stubStore) Close() error { return nil }

type stubNotifier struct {
	cycles    []domain.CycleSummary
	alerts    []domain.RoundTrip
	persisted []domain.PersistenceEvent
	summaries int
}

func (s *stubNotifier) NotifyCycle(_ context.Context, sum domain.CycleSummary) error {
	s.cycles = append(s.cycles, sum)
	return nil
}

func (s *stubNotifier) NotifyAlert(_ context.Context, rt domain.RoundTrip) error {
	s.alerts = append(s.alerts, rt)
	return nil
}

func (s *stubNotifier) NotifyPersistence(_ context.Context, ev domain.PersistenceEvent) error {
	s.persisted = append(s.persisted, ev)
	return nil
}

func (s *stubNotifier) Summary(map[domain.StatsKey]domain.PairStats) error {
	s.summaries++
	return nil
}

// wethUsdcPair monta el par de referencia: WETH a 2500$, USDC a 1$, dos
// venues. El precio lo pone el oráculo stub durante refreshPrices.
func wethUsdcPair() *domain.TradingPair {
	return &domain.TradingPair{
		Token0: &domain.Asset{Symbol: "WETH", Address: common.HexToAddress("0x01"), Decimals: 18, OracleID: "ethereum"},
		Token1: &domain.Asset{Symbol: "USDC", Address: common.HexToAddress("0x02"), Decimals: 6, OracleID: "usd-coin"},
		Venues: []domain.PairVenue{
			{Venue: domain.Venue{Name: "alpha", Family: domain.FamilyConstantProduct}},
			{Venue: domain.Venue{Name: "beta", Family: domain.FamilyConcentrated}, Route: domain.Route{FeeTier: 500}},
		},
	}
}

func TestMonitor_RunOnceEndToEnd(t *testing.T) {
	// Escenario de referencia: 1000$ en WETH/USDC. El venue alpha cotiza el
	// forward a 1000.50$ equivalentes y beta desharía la posición por
	// 1004$ equivalentes: spread bruto ≈ +0.40%, neto ≈ +0.395% tras 0.05$
	// de gas. El forward contra beta no tiene pool.
	pair := wethUsdcPair()

	quoter := &stubQuoter{fn: func(venue domain.PairVenue, assetIn, _ *domain.Asset, _ *big.Int) (*big.Int, error) {
		if assetIn.Symbol == "WETH" {
			if venue.Venue.Name == "beta" {
				return nil, domain.ErrNoRoute
			}
			return big.NewInt(1_000_500_000), nil // 1000.50 USDC
		}
		// reverse en beta: 1004$/2500$ = 0.4016 WETH
		return big.NewInt(401_600_000_000_000_000), nil
	}}

	head := &stubHead{block: 12345}
	oracle := &stubOracle{prices: map[string]float64{"ethereum": 2500, "usd-coin": 1}}
	recorder := &stubRecorder{}
	store := &stubStore{}
	notifier := &stubNotifier{}

	cfg := DefaultConfig()
	cfg.PaceDelay = 0
	cfg.Workers = 2

	m := New(cfg, []*domain.TradingPair{pair}, quoter, head, oracle, recorder, store, notifier)
	require.NoError(t, m.RunOnce(context.Background()))

	// El oráculo pobló los precios antes del ciclo.
	assert.Equal(t, 2500.0, pair.Token0.PriceUSD)

	// Un único round trip: alpha compra, beta vende. La dirección inversa
	// cayó con el forward de beta.
	require.Len(t, recorder.records, 1)
	rt := recorder.records[0]
	assert.Equal(t, "alpha→beta", rt.Direction())
	assert.Equal(t, uint64(12345), rt.Block)
	assert.InDelta(t, 0.40, rt.SpreadPct, 0.01)
	assert.InDelta(t, 0.395, rt.NetPct, 0.005)
	assert.InDelta(t, 1000, rt.InUSD, 0.01)
	assert.InDelta(t, 1004, rt.OutUSD, 0.01)

	// 0.40% ≥ 0.3%: cruce contabilizado y alerta emitida (primera del par).
	require.Len(t, store.cycles, 1)
	sum := store.cycles[0]
	assert.Equal(t, uint64(12345), sum.Block)
	assert.Equal(t, 1, sum.Pairs)
	assert.Equal(t, 1, sum.RoundTrips)
	assert.Equal(t, 0, sum.PairFailures, "un forward sin pool no es fallo del par")
	assert.Equal(t, 1, sum.QuoteErrors.NoRoute, "el forward sin pool de beta queda desglosado")
	assert.Equal(t, 0, sum.QuoteErrors.Defects())
	assert.Equal(t, 1, sum.Crossings)
	assert.Equal(t, 1, sum.Alerts)
	assert.InDelta(t, 0.40, sum.BestSpreadPct, 0.01)

	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, "alpha→beta", notifier.alerts[0].Direction())
	assert.Len(t, notifier.cycles, 1)
	assert.Equal(t, 1, notifier.summaries, "RunOnce termina con el resumen final")

	require.Len(t, store.stats, 1)
	key := domain.StatsKey{Pair: "WETH/USDC", NotionalUSD: 1000}
	assert.Equal(t, 1, store.stats[0][key].Checks)
	assert.Equal(t, 1, store.stats[0][key].CrossedLow)
	assert.Equal(t, 1, store.stats[0][key].QuoteFailures.NoRoute)
}

func TestMonitor_QuoteFailureCausesStaySeparate(t *testing.T) {
	// Un venue sin pool y un venue con quoter mal configurado no pueden
	// acabar en el mismo contador: el primero es liquidez, el segundo es un
	// defecto de configuración que hay que ver en el resumen.
	pair := wethUsdcPair()

	quoter := &stubQuoter{fn: func(venue domain.PairVenue, assetIn, _ *domain.Asset, _ *big.Int) (*big.Int, error) {
		if assetIn.Symbol == "WETH" {
			if venue.Venue.Name == "alpha" {
				return nil, domain.ErrNoRoute
			}
			return nil, domain.ErrSchemaMismatch
		}
		return big.NewInt(1), nil
	}}

	store := &stubStore{}

	cfg := DefaultConfig()
	cfg.PaceDelay = 0

	m := New(cfg, []*domain.TradingPair{pair}, quoter,
		&stubHead{block: 7},
		&stubOracle{prices: map[string]float64{"ethereum": 2500, "usd-coin": 1}},
		&stubRecorder{}, store, &stubNotifier{})
	require.NoError(t, m.RunOnce(context.Background()))

	require.Len(t, store.cycles, 1)
	sum := store.cycles[0]
	assert.Equal(t, 0, sum.RoundTrips)
	assert.Equal(t, 0, sum.PairFailures)
	assert.Equal(t, domain.QuoteFailureCounts{NoRoute: 1, SchemaMismatch: 1}, sum.QuoteErrors)
	assert.Equal(t, 1, sum.QuoteErrors.Defects(), "solo el schema mismatch es defecto")

	// Los mismos desgloses llegan a las estadísticas por (par, notional).
	require.Len(t, store.stats, 1)
	key := domain.StatsKey{Pair: "WETH/USDC", NotionalUSD: 1000}
	st := store.stats[0][key]
	assert.Equal(t, 0, st.Checks)
	assert.Equal(t, domain.QuoteFailureCounts{NoRoute: 1, SchemaMismatch: 1}, st.QuoteFailures)
}

func TestMonitor_NoiseFloorFiltersDurableLog(t *testing.T) {
	// Un round trip con spread bajo el suelo de ruido no genera registro
	// durable, pero sí cuenta como check en las estadísticas.
	pair := wethUsdcPair()

	quoter := &stubQuoter{fn: func(venue domain.PairVenue, assetIn, _ *domain.Asset, _ *big.Int) (*big.Int, error) {
		if assetIn.Symbol == "WETH" {
			if venue.Venue.Name == "beta" {
				return nil, domain.ErrNoRoute
			}
			return big.NewInt(1_000_000_000), nil
		}
		// reverse devuelve 950$: spread -5%, bajo el suelo de -2%.
		return big.NewInt(380_000_000_000_000_000), nil
	}}

	recorder := &stubRecorder{}
	store := &stubStore{}

	cfg := DefaultConfig()
	cfg.PaceDelay = 0

	m := New(cfg, []*domain.TradingPair{pair}, quoter,
		&stubHead{block: 1},
		&stubOracle{prices: map[string]float64{"ethereum": 2500, "usd-coin": 1}},
		recorder, store, &stubNotifier{})
	require.NoError(t, m.RunOnce(context.Background()))

	assert.Empty(t, recorder.records)
	require.Len(t, store.stats, 1)
	key := domain.StatsKey{Pair: "WETH/USDC", NotionalUSD: 1000}
	assert.Equal(t, 1, store.stats[0][key].Checks)
}

func TestMonitor_NilStoreAndRecorderAreOptional(t *testing.T) {
	pair := wethUsdcPair()

	quoter := &stubQuoter{fn: func(_ domain.PairVenue, _, _ *domain.Asset, amountIn *big.Int) (*big.Int, error) {
		return new(big.Int).Set(amountIn), nil
	}}

	cfg := DefaultConfig()
	cfg.PaceDelay = 0

	m := New(cfg, []*domain.TradingPair{pair}, quoter,
		&stubHead{block: 1},
		&stubOracle{prices: map[string]float64{"ethereum": 2500, "usd-coin": 1}},
		nil, nil, &stubNotifier{})

	assert.NoError(t, m.RunOnce(context.Background()))
}
