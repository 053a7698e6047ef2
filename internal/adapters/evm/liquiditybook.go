package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// lbQuote refleja el struct Quote que devuelve el quoter de Liquidity Book.
// Solo usamos Amounts; el resto son campos auxiliares que este nivel descarta.
type lbQuote struct {
	Route                         []common.Address
	Pairs                         []common.Address
	BinSteps                      []*big.Int
	Versions                      []uint8
	Amounts                       []*big.Int
	VirtualAmountsWithoutSlippage []*big.Int
	Fees                          []*big.Int
}

// maxUint128 es el máximo representable del campo amountIn del quoter de
// Liquidity Book, más estrecho que el uint256 general del sistema.
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// quoteLiquidityBook usa findBestPathFromAmountIn sobre la ruta directa.
//
// El input se CLAMPEA al máximo de uint128 en vez de fallar: un notional
// sobredimensionado es un problema de configuración del llamador, no una
// condición fatal, y truncar en silencio más allá del clamp no es aceptable.
func (q *Quoter) quoteLiquidityBook(ctx context.Context, venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error) {
	if amountIn.Cmp(maxUint128) > 0 {
		slog.Warn("liquidity-book amountIn clamped to uint128 max",
			"venue", venue.Venue.Name,
			"requested", amountIn.String(),
		)
		amountIn = new(big.Int).Set(maxUint128)
	}

	route := []common.Address{assetIn.Address, assetOut.Address}
	data, err := abiLBQuoter.Pack("findBestPathFromAmountIn", route, amountIn)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteLiquidityBook: pack: %w", err)
	}

	ret, err := q.client.call(ctx, venue.Venue.Quoter, data)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteLiquidityBook: %s: %w", venue.Venue.Name, err)
	}

	values, err := abiLBQuoter.Unpack("findBestPathFromAmountIn", ret)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteLiquidityBook: unpack: %w", err)
	}
	quote := *abi.ConvertType(values[0], new(lbQuote)).(*lbQuote)

	amounts := quote.Amounts
	// El quoter de LB no revierte cuando no hay pool: devuelve la ruta vacía.
	if len(amounts) == 0 {
		return nil, fmt.Errorf("evm.quoteLiquidityBook: %s sin ruta %s→%s: %w",
			venue.Venue.Name, assetIn.Symbol, assetOut.Symbol, domain.ErrNoRoute)
	}
	return amounts[len(amounts)-1], nil
}
