package ports

import (
	"context"
	"math/big"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// QuoteProvider obtiene el output ejecutable de un venue para un input dado.
// Es la abstracción uniforme sobre las cuatro familias de AMM: el adapter
// resuelve por familia el esquema de llamada y extrae SOLO la cantidad de
// salida, descartando los campos auxiliares de cada venue.
type QuoteProvider interface {
	// Quote pregunta al venue cuánto assetOut se recibe por amountIn de
	// assetIn. Los fallos se devuelven envueltos sobre la taxonomía de
	// domain (ErrNoRoute, ErrSchemaMismatch, ErrRevertedCall, ErrUnreachable).
	Quote(ctx context.Context, venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error)
}
