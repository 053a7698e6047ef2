package domain

import "fmt"

// Route son los parámetros de enrutado específicos del venue: identifican
// el pool exacto contra el que pedir el quote. Los campos a cero significan
// "sin parámetro" (familias constant-product y dynamic-fee no los necesitan).
type Route struct {
	FeeTier uint32 // fee en centésimas de bip (500, 3000, 10000) — familias concentradas
	BinStep uint16 // ancho de bin en bips — familia liquidity-book
}

// PairVenue es un venue anotado con el enrutado a usar para un par concreto.
type PairVenue struct {
	Venue Venue
	Route Route
}

// TradingPair es la unidad de monitorización: un par ordenado de assets más
// los venues en los que ambos cotizan.
type TradingPair struct {
	Token0 *Asset // asset de entrada del round trip; el notional se expresa sobre él
	Token1 *Asset
	Venues []PairVenue
}

// Name devuelve el identificador canónico del par, p.ej. "WETH/USDC".
func (p *TradingPair) Name() string {
	return fmt.Sprintf("%s/%s", p.Token0.Symbol, p.Token1.Symbol)
}
