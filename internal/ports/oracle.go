package ports

import "context"

// PriceOracle expone precios de referencia en USD. El core tolera staleness
// dentro de un ciclo y solo re-consulta periódicamente: la liquidez de los
// venues se mueve más rápido de lo que necesita refrescarse el oráculo.
type PriceOracle interface {
	// PriceUSD devuelve el precio de referencia del asset identificado por
	// su OracleID.
	PriceUSD(ctx context.Context, id string) (float64, error)
}
