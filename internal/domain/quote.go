package domain

import "math/big"

// Quote es el resultado de preguntar a UN venue "si vendo AmountIn de un
// asset, ¿cuánto recibo del otro?".
//
// Validez puntual: un Quote solo vale dentro del ciclo de observación que lo
// pidió. Nunca se cachea ni se reutiliza entre ciclos.
type Quote struct {
	Venue    PairVenue
	AmountIn *big.Int

	// AmountOut es nil si la petición falló; Err conserva el motivo para que
	// el consumidor pueda distinguir "el venue cotizó cero" de "nunca se le
	// preguntó" o "falló la llamada".
	AmountOut *big.Int
	Err       error
}

// OK indica si el quote produjo una cantidad de salida.
func (q Quote) OK() bool {
	return q.Err == nil && q.AmountOut != nil
}
