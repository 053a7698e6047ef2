package evm

// algebra.go — familia dynamic-fee, con detección perezosa de esquema.
//
// En producción conviven dos generaciones incompatibles del quoter: la
// moderna recibe los parámetros en un struct, la legacy los recibe planos.
// Responden a selectores distintos, así que llamar con el esquema equivocado
// revierte sin datos. En el primer uso contra un venue probamos la variante
// moderna y, si el rechazo es compatible con "esquema equivocado" (no con
// "sin liquidez"), la legacy; la que responda queda fijada para el resto de
// la vida del proceso. Un esquema cacheado que falle después es un error
// genuino: no se re-negocia, porque el contrato desplegado no cambia.

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// SchemaVariant es el esquema de llamada detectado para un quoter dynamic-fee.
// Se expone para que el estado de detección sea inspeccionable, no implícito
// en el flujo de control.
type SchemaVariant int

const (
	SchemaStructArgs SchemaVariant = iota + 1 // variante moderna: parámetros en struct
	SchemaFlatArgs                            // variante legacy: parámetros planos
)

func (v SchemaVariant) String() string {
	switch v {
	case SchemaStructArgs:
		return "struct-args"
	case SchemaFlatArgs:
		return "flat-args"
	default:
		return "undetected"
	}
}

// DetectedSchema devuelve el esquema cacheado para un quoter, si ya se detectó.
func (q *Quoter) DetectedSchema(quoter common.Address) (SchemaVariant, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	v, ok := q.schemas[quoter]
	return v, ok
}

func (q *Quoter) cacheSchema(quoter common.Address, v SchemaVariant) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.schemas[quoter] = v
}

// quoteDynamicFee resuelve el esquema (cacheado o por detección) y llama.
func (q *Quoter) quoteDynamicFee(ctx context.Context, venue domain.PairVenue, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error) {
	addr := venue.Venue.Quoter

	if schema, ok := q.DetectedSchema(addr); ok {
		// Esquema ya fijado: cualquier fallo a partir de aquí es genuino.
		out, err := q.callAlgebra(ctx, venue, schema, assetIn, assetOut, amountIn)
		if err != nil {
			return nil, fmt.Errorf("evm.quoteDynamicFee: %s (%s): %w", venue.Venue.Name, schema, err)
		}
		return out, nil
	}

	for _, schema := range []SchemaVariant{SchemaStructArgs, SchemaFlatArgs} {
		out, err := q.callAlgebra(ctx, venue, schema, assetIn, assetOut, amountIn)
		if err == nil {
			q.cacheSchema(addr, schema)
			slog.Debug("algebra schema detected",
				"venue", venue.Venue.Name,
				"schema", schema.String(),
			)
			return out, nil
		}
		if !bareRevert(err) {
			// Rechazo NO compatible con esquema equivocado (liquidez, red...):
			// se propaga tal cual, sin seguir probando variantes.
			return nil, fmt.Errorf("evm.quoteDynamicFee: %s: %w", venue.Venue.Name, err)
		}
	}

	return nil, fmt.Errorf("evm.quoteDynamicFee: %s: variantes agotadas: %w",
		venue.Venue.Name, domain.ErrSchemaMismatch)
}

// algebraStructParams refleja el struct de entrada de la variante moderna.
type algebraStructParams struct {
	TokenIn        common.Address
	TokenOut       common.Address
	AmountIn       *big.Int
	LimitSqrtPrice *big.Int
}

// callAlgebra codifica y decodifica con la variante indicada.
func (q *Quoter) callAlgebra(ctx context.Context, venue domain.PairVenue, schema SchemaVariant, assetIn, assetOut *domain.Asset, amountIn *big.Int) (*big.Int, error) {
	var (
		data []byte
		err  error
	)

	switch schema {
	case SchemaStructArgs:
		data, err = abiAlgebraStruct.Pack("quoteExactInputSingle", algebraStructParams{
			TokenIn:        assetIn.Address,
			TokenOut:       assetOut.Address,
			AmountIn:       amountIn,
			LimitSqrtPrice: big.NewInt(0),
		})
	case SchemaFlatArgs:
		data, err = abiAlgebraFlat.Pack("quoteExactInputSingle",
			assetIn.Address, assetOut.Address, amountIn, big.NewInt(0))
	default:
		return nil, fmt.Errorf("evm.callAlgebra: variante desconocida %d", schema)
	}
	if err != nil {
		return nil, fmt.Errorf("evm.callAlgebra: pack: %w", err)
	}

	ret, err := q.client.call(ctx, venue.Venue.Quoter, data)
	if err != nil {
		return nil, err
	}

	switch schema {
	case SchemaStructArgs:
		values, err := abiAlgebraStruct.Unpack("quoteExactInputSingle", ret)
		if err != nil {
			return nil, fmt.Errorf("evm.callAlgebra: unpack struct-args: %w", err)
		}
		return values[0].(*big.Int), nil
	default:
		values, err := abiAlgebraFlat.Unpack("quoteExactInputSingle", ret)
		if err != nil {
			return nil, fmt.Errorf("evm.callAlgebra: unpack flat-args: %w", err)
		}
		return values[0].(*big.Int), nil
	}
}
