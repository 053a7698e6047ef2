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

// stubQuoter enruta cada quote a una función del test.
type stubQuoter struct {
	fn func(venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error)
}

func (s *stubQuoter) Quote(_ context.Context, venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error) {
	return s.fn(venue, assetIn, assetOut, amountIn)
}

func testPair(venues ...string) *domain.TradingPair {
	pair := &domain.TradingPair{
		Token0: &domain.Asset{Symbol: "WETH", Address: common.HexToAddress("0x01"), Decimals: 18, OracleID: "weth", PriceUSD: 1},
		Token1: &domain.Asset{Symbol: "USDC", Address: common.HexToAddress("0x02"), Decimals: 18, OracleID: "usdc", PriceUSD: 1},
	}
	for _, name := range venues {
		pair.Venues = append(pair.Venues, domain.PairVenue{
			Venue: domain.Venue{Name: name, Family: domain.FamilyConstantProduct},
		})
	}
	return pair
}

func TestEvaluate_SymmetricVenuesHaveZeroSpread(t *testing.T) {
	// Dos venues con el mismo precio implícito (2:1 exacto): todo round trip
	// devuelve el input inicial, spread y neto cero.
	pair := testPair("alpha", "beta")

	quoter := &stubQuoter{fn: func(_ domain.PairVenue, assetIn, _ *domain.Asset, amountIn *big.Int) (*big.Int, error) {
		if assetIn.Symbol == "WETH" {
			return new(big.Int).Mul(amountIn, big.NewInt(2)), nil
		}
		return new(big.Int).Div(amountIn, big.NewInt(2)), nil
	}}
	ev := NewEvaluator(quoter, 0, 0)

	trips, _, err := ev.Evaluate(context.Background(), pair, 1000, 42)
	require.NoError(t, err)
	require.Len(t, trips, 2, "una combinación ordenada por cada dirección")

	for _, rt := range trips {
		assert.InDelta(t, 0, rt.SpreadPct, 1e-9, "%s", rt.Direction())
		assert.InDelta(t, 0, rt.NetPct, 1e-9, "%s", rt.Direction())
		assert.Equal(t, uint64(42), rt.Block)
		assert.Equal(t, 1000.0, rt.NotionalUSD)
	}
	assert.NotEqual(t, trips[0].Direction(), trips[1].Direction())
}

func TestEvaluate_ForwardFailureSkipsOnlyThatVenue(t *testing.T) {
	pair := testPair("alpha", "beta", "gamma")

	quoter := &stubQuoter{fn: func(venue domain.PairVenue, assetIn, _ *domain.Asset, amountIn *big.Int) (*big.Int, error) {
		if assetIn.Symbol == "WETH" && venue.Venue.Name == "beta" {
			return nil, domain.ErrNoRoute
		}
		return new(big.Int).Set(amountIn), nil
	}}
	ev := NewEvaluator(quoter, 0, 0)

	trips, fails, err := ev.Evaluate(context.Background(), pair, 1000, 1)
	require.NoError(t, err)

	// alpha y gamma cotizaron forward; beta sigue siendo candidata a venta.
	dirs := make([]string, len(trips))
	for i, rt := range trips {
		dirs[i] = rt.Direction()
		assert.NotEqual(t, "beta", rt.BuyVenue)
	}
	assert.ElementsMatch(t,
		[]string{"alpha→beta", "alpha→gamma", "gamma→alpha", "gamma→beta"}, dirs)
	assert.Equal(t, 1, fails.NoRoute, "el forward fallido de beta queda contado")
	assert.Equal(t, 1, fails.Total())
}

func TestEvaluate_FailureCountsClassifyByCause(t *testing.T) {
	// Tres venues rotos de formas distintas: cada causa termina en su propio
	// contador, no en un total indiferenciado.
	pair := testPair("alpha", "beta", "gamma", "delta")

	quoter := &stubQuoter{fn: func(venue domain.PairVenue, assetIn, _ *domain.Asset, amountIn *big.Int) (*big.Int, error) {
		if assetIn.Symbol == "WETH" {
			switch venue.Venue.Name {
			case "beta":
				return nil, domain.ErrNoRoute
			case "gamma":
				return nil, domain.ErrSchemaMismatch
			case "delta":
				return nil, domain.ErrUnreachable
			}
		}
		return new(big.Int).Set(amountIn), nil
	}}
	ev := NewEvaluator(quoter, 0, 0)

	trips, fails, err := ev.Evaluate(context.Background(), pair, 1000, 1)
	require.NoError(t, err)

	// Solo alpha cotizó forward; vende contra los otros tres.
	require.Len(t, trips, 3)

	assert.Equal(t, 1, fails.NoRoute)
	assert.Equal(t, 1, fails.SchemaMismatch)
	assert.Equal(t, 1, fails.Unreachable)
	assert.Equal(t, 3, fails.Total())
	assert.Equal(t, 2, fails.Defects(), "no-route es liquidez, no defecto")
}

func TestEvaluate_ReverseFailureExcludesOnlyThatCombination(t *testing.T) {
	pair := testPair("alpha", "beta", "gamma")

	quoter := &stubQuoter{fn: func(venue domain.PairVenue, assetIn, _ *domain.Asset, amountIn *big.Int) (*big.Int, error) {
		// El reverse contra gamma revierte; todo lo demás cotiza 1:1.
		if assetIn.Symbol == "USDC" && venue.Venue.Name == "gamma" {
			return nil, domain.ErrRevertedCall
		}
		return new(big.Int).Set(amountIn), nil
	}}
	ev := NewEvaluator(quoter, 0, 0)

	trips, fails, err := ev.Evaluate(context.Background(), pair, 1000, 1)
	require.NoError(t, err)

	dirs := make([]string, len(trips))
	for i, rt := range trips {
		dirs[i] = rt.Direction()
	}
	assert.ElementsMatch(t,
		[]string{"alpha→beta", "beta→alpha", "gamma→alpha", "gamma→beta"}, dirs,
		"solo caen las combinaciones cuya venta es gamma")
	assert.Equal(t, 2, fails.Reverted, "un reverse fallido por cada compra contra gamma")
}

func TestEvaluate_UnpricedAssetFailsTheWholePair(t *testing.T) {
	pair := testPair("alpha", "beta")
	pair.Token0.PriceUSD = 0

	ev := NewEvaluator(&stubQuoter{}, 0, 0)

	_, _, err := ev.Evaluate(context.Background(), pair, 1000, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidNotional)
}

func TestEvaluate_GasCostOnlyAffectsNet(t *testing.T) {
	// Round trip plano con gas de $1: el spread sigue en cero, el neto cae
	// exactamente el coste de gas sobre el notional.
	pair := testPair("alpha", "beta")

	quoter := &stubQuoter{fn: func(_ domain.PairVenue, _, _ *domain.Asset, amountIn *big.Int) (*big.Int, error) {
		return new(big.Int).Set(amountIn), nil
	}}
	ev := NewEvaluator(quoter, 0, 1.0)

	trips, _, err := ev.Evaluate(context.Background(), pair, 1000, 1)
	require.NoError(t, err)
	require.NotEmpty(t, trips)

	for _, rt := range trips {
		assert.InDelta(t, 0, rt.SpreadPct, 1e-9)
		assert.InDelta(t, -0.1, rt.NetPct, 1e-9, "1$ de gas sobre 1000$ = -0.1%%")
		assert.InDelta(t, -1.0, rt.NetUSD, 1e-9)
	}
}

func TestEvaluate_ContextCancellationStopsEarly(t *testing.T) {
	pair := testPair("alpha", "beta")
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	quoter := &stubQuoter{fn: func(_ domain.PairVenue, _, _ *domain.Asset, amountIn *big.Int) (*big.Int, error) {
		calls++
		if calls == 1 {
			cancel()
		}
		return new(big.Int).Set(amountIn), nil
	}}
	// Con pacing > 0 el pause detecta la cancelación entre quotes.
	ev := NewEvaluator(quoter, 1, 0)

	_, _, err := ev.Evaluate(ctx, pair, 1000, 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, calls, 6, "no se completan todas las combinaciones tras cancelar")
}
