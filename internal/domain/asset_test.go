package domain_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

func TestAmountFromUSD(t *testing.T) {
	usdc := &domain.Asset{Symbol: "USDC", Decimals: 6, PriceUSD: 1}

	amount, err := usdc.AmountFromUSD(1000)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_000_000_000), amount)
}

func TestAmountFromUSD_FloorsTowardsZero(t *testing.T) {
	// 10$ a 3$/token con 0 decimales: 3.33 tokens → 3. Redondear hacia
	// arriba sobreestimaría el input negociable.
	chunky := &domain.Asset{Symbol: "CHK", Decimals: 0, PriceUSD: 3}

	amount, err := chunky.AmountFromUSD(10)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3), amount)
}

func TestAmountFromUSD_Invalid(t *testing.T) {
	weth := &domain.Asset{Symbol: "WETH", Decimals: 18, PriceUSD: 2500}

	_, err := weth.AmountFromUSD(0)
	assert.ErrorIs(t, err, domain.ErrInvalidNotional)

	_, err = weth.AmountFromUSD(-100)
	assert.ErrorIs(t, err, domain.ErrInvalidNotional)

	unpriced := &domain.Asset{Symbol: "NEW", Decimals: 18}
	_, err = unpriced.AmountFromUSD(1000)
	assert.ErrorIs(t, err, domain.ErrInvalidNotional)
}

func TestUSDFromAmount(t *testing.T) {
	weth := &domain.Asset{Symbol: "WETH", Decimals: 18, PriceUSD: 2500}

	half := new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)
	half.Mul(half, big.NewInt(5)) // 0.5 WETH

	assert.InDelta(t, 1250, weth.USDFromAmount(half), 1e-6)
	assert.Zero(t, weth.USDFromAmount(nil))
}

func TestUSDConversionRoundTrips(t *testing.T) {
	weth := &domain.Asset{Symbol: "WETH", Decimals: 18, PriceUSD: 2734.56}

	amount, err := weth.AmountFromUSD(1000)
	require.NoError(t, err)
	// El floor en unidades de 1e-18 pierde como mucho un polvo de wei.
	assert.InDelta(t, 1000, weth.USDFromAmount(amount), 1e-9)
}

func TestParseAMMFamily(t *testing.T) {
	cases := map[string]domain.AMMFamily{
		"v2":               domain.FamilyConstantProduct,
		"constant-product": domain.FamilyConstantProduct,
		"v3":               domain.FamilyConcentrated,
		"concentrated":     domain.FamilyConcentrated,
		"algebra":          domain.FamilyDynamicFee,
		"dynamic-fee":      domain.FamilyDynamicFee,
		"lb":               domain.FamilyLiquidityBook,
		"liquidity-book":   domain.FamilyLiquidityBook,
	}
	for tag, want := range cases {
		got, ok := domain.ParseAMMFamily(tag)
		require.True(t, ok, tag)
		assert.Equal(t, want, got, tag)
	}

	_, ok := domain.ParseAMMFamily("balancer")
	assert.False(t, ok)
}

func TestRoundTripDirection(t *testing.T) {
	rt := domain.RoundTrip{BuyVenue: "sushi", SellVenue: "camelot"}
	assert.Equal(t, "sushi→camelot", rt.Direction())
}

func TestPairStatsVerdict(t *testing.T) {
	assert.Equal(t, "kill", domain.PairStats{Checks: 10}.Verdict())
	assert.Equal(t, "watch", domain.PairStats{Checks: 10, CrossedLow: 1}.Verdict())
	assert.Equal(t, "promote", domain.PairStats{Checks: 10, CrossedLow: 5, PersistenceEvents: 1}.Verdict())
}
