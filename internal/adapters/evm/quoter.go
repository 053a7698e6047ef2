package evm

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// Quoter implementa ports.QuoteProvider sobre las cuatro familias de AMM.
//
// La única pieza de estado es la cache de detección de esquema de la familia
// dynamic-fee: el esquema de un contrato desplegado no cambia en runtime, así
// que se detecta una vez por venue y se fija para toda la vida del proceso.
type Quoter struct {
	client *Client

	mu      sync.Mutex
	schemas map[common.Address]SchemaVariant
}

// NewQuoter crea un Quoter sobre el cliente RPC dado.
func NewQuoter(client *Client) *Quoter {
	return &Quoter{
		client:  client,
		schemas: make(map[common.Address]SchemaVariant),
	}
}

// Quote pide al venue el output ejecutable para amountIn. Devuelve solo la
// cantidad de salida; los campos auxiliares de cada familia se descartan.
func (q *Quoter) Quote(ctx context.Context, venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error) {
	var (
		out *big.Int
		err error
	)

	switch venue.Venue.Family {
	case domain.FamilyConstantProduct:
		out, err = q.quoteConstantProduct(ctx, venue, assetIn, assetOut, amountIn)
	case domain.FamilyConcentrated:
		out, err = q.quoteConcentrated(ctx, venue, assetIn, assetOut, amountIn)
	case domain.FamilyDynamicFee:
		out, err = q.quoteDynamicFee(ctx, venue, assetIn, assetOut, amountIn)
	case domain.FamilyLiquidityBook:
		out, err = q.quoteLiquidityBook(ctx, venue, assetIn, assetOut, amountIn)
	default:
		return nil, fmt.Errorf("evm.Quote: familia desconocida %d", venue.Venue.Family)
	}
	if err != nil {
		return nil, err
	}

	// Output cero = el pool existe pero no tiene liquidez efectiva para el
	// par. Para el consumidor es la misma señal que "sin pool".
	if out.Sign() == 0 {
		return nil, fmt.Errorf("evm.Quote: %s cotizó cero para %s→%s: %w",
			venue.Venue.Name, assetIn.Symbol, assetOut.Symbol, domain.ErrNoRoute)
	}
	return out, nil
}

// quoteConstantProduct usa el router V2: getAmountsOut(amountIn, [in, out]).
func (q *Quoter) quoteConstantProduct(ctx context.Context, venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error) {
	path := []common.Address{assetIn.Address, assetOut.Address}
	data, err := abiV2Router.Pack("getAmountsOut", amountIn, path)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteConstantProduct: pack: %w", err)
	}

	ret, err := q.client.call(ctx, venue.Venue.Quoter, data)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteConstantProduct: %s: %w", venue.Venue.Name, err)
	}

	values, err := abiV2Router.Unpack("getAmountsOut", ret)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteConstantProduct: unpack: %w", err)
	}
	amounts, ok := values[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("evm.quoteConstantProduct: respuesta vacía de %s", venue.Venue.Name)
	}
	return amounts[len(amounts)-1], nil
}

// quoterV2Params refleja el struct de entrada del QuoterV2.
type quoterV2Params struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// quoteConcentrated usa el QuoterV2: struct de parámetros con fee tier, sin
// límite de precio. De la respuesta solo nos interesa amountOut.
func (q *Quoter) quoteConcentrated(ctx context.Context, venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error) {
	params := quoterV2Params{
		TokenIn:           assetIn.Address,
		TokenOut:          assetOut.Address,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(venue.Route.FeeTier)),
		SqrtPriceLimitX96: big.NewInt(0),
	}
	data, err := abiQuoterV2.Pack("quoteExactInputSingle", params)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteConcentrated: pack: %w", err)
	}

	ret, err := q.client.call(ctx, venue.Venue.Quoter, data)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteConcentrated: %s: %w", venue.Venue.Name, err)
	}

	values, err := abiQuoterV2.Unpack("quoteExactInputSingle", ret)
	if err != nil {
		return nil, fmt.Errorf("evm.quoteConcentrated: unpack: %w", err)
	}
	return values[0].(*big.Int), nil
}
