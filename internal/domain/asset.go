package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Asset es un token fungible monitorizado.
//
// PriceUSD es el único campo mutable: lo refresca periódicamente el oráculo
// externo. Toda la aritmética de cantidades se hace en unidades nativas
// (big.Int) hasta la conversión final a USD — nunca en float intermedio.
type Asset struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
	OracleID string // identificador del asset en el oráculo de precios

	PriceUSD float64
}

// Unit devuelve 10^Decimals, la unidad indivisible del asset.
func (a *Asset) Unit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(a.Decimals)), nil)
}

// AmountFromUSD convierte un valor en USD a unidades nativas, redondeando
// SIEMPRE hacia abajo: sobreestimar el input negociable no es seguro.
// Devuelve ErrInvalidNotional si el notional no es positivo o el asset
// no tiene precio todavía.
func (a *Asset) AmountFromUSD(usd float64) (*big.Int, error) {
	if usd <= 0 {
		return nil, fmt.Errorf("domain.AmountFromUSD: notional %.2f: %w", usd, ErrInvalidNotional)
	}
	if a.PriceUSD <= 0 {
		return nil, fmt.Errorf("domain.AmountFromUSD: %s sin precio de referencia: %w", a.Symbol, ErrInvalidNotional)
	}

	tokens := new(big.Float).Quo(big.NewFloat(usd), big.NewFloat(a.PriceUSD))
	units := new(big.Float).Mul(tokens, new(big.Float).SetInt(a.Unit()))

	out, _ := units.Int(nil) // truncamiento hacia cero = floor para valores positivos
	return out, nil
}

// USDFromAmount convierte unidades nativas a USD con el precio de referencia
// actual. Este es el único punto donde las cantidades pasan a float.
func (a *Asset) USDFromAmount(amount *big.Int) float64 {
	if amount == nil || a.PriceUSD <= 0 {
		return 0
	}
	tokens := new(big.Float).Quo(new(big.Float).SetInt(amount), new(big.Float).SetInt(a.Unit()))
	f, _ := tokens.Float64()
	return f * a.PriceUSD
}
