package domain

import (
	"fmt"
	"math/big"
	"time"
)

// RoundTrip es la evaluación de comprar token1 con token0 en un venue y
// vender todo lo recibido de vuelta a token0 en otro venue, para un par y
// un notional concretos.
//
// Es un valor derivado y efímero: nunca se persiste como estado, solo
// sobrevive su proyección en el registro durable.
type RoundTrip struct {
	Pair        string
	BuyVenue    string // venue del quote forward (token0 → token1)
	SellVenue   string // venue del quote reverse (token1 → token0)
	NotionalUSD float64

	AmountIn  *big.Int // token0 invertido (unidades nativas)
	AmountOut *big.Int // token0 recuperado (unidades nativas)

	InUSD     float64
	OutUSD    float64
	NetUSD    float64 // OutUSD - InUSD - coste fijo de gas
	SpreadPct float64 // (OutUSD-InUSD)/InUSD × 100 — puede ser negativo, aquí no se filtra por signo
	NetPct    float64 // NetUSD/InUSD × 100

	Block uint64 // índice de observación (altura de bloque del ciclo)
	At    time.Time
}

// Direction identifica el par ordenado de venues, p.ej. "sushi→camelot".
func (r RoundTrip) Direction() string {
	return fmt.Sprintf("%s→%s", r.BuyVenue, r.SellVenue)
}
