package domain

import "time"

// Umbrales fijos de conteo de cruces, en porcentaje de spread.
const (
	ThresholdLow  = 0.3
	ThresholdMid  = 0.5
	ThresholdHigh = 1.0
)

// StatsKey identifica los contadores de un (par, notional).
type StatsKey struct {
	Pair        string
	NotionalUSD float64
}

// PairStats son contadores monotónicos por (par, notional). Solo se
// resetean al arrancar el proceso.
type PairStats struct {
	Checks            int     // round trips evaluados
	CrossedLow        int     // spread ≥ 0.3%
	CrossedMid        int     // spread ≥ 0.5%
	CrossedHigh       int     // spread ≥ 1.0%
	PersistenceEvents int
	SumNetPct         float64 // acumulado para que el consumidor calcule la media
	BestSpreadPct     float64 // mejor spread observado (válido si Checks > 0)

	// QuoteFailures acumula los fallos de quoting por causa: en el resumen,
	// un venue seco (no-route) y un quoter mal configurado (schema,
	// unreachable) tienen que leerse distinto.
	QuoteFailures QuoteFailureCounts
}

// MeanNetPct devuelve el net medio por check, o 0 sin observaciones.
func (s PairStats) MeanNetPct() float64 {
	if s.Checks == 0 {
		return 0
	}
	return s.SumNetPct / float64(s.Checks)
}

// Verdict deriva el veredicto del resumen solo a partir de los agregados:
// "promote" si hubo algún evento de persistencia, "watch" si al menos un
// cruce alcanzó el umbral bajo, "kill" si el mejor spread nunca llegó.
func (s PairStats) Verdict() string {
	switch {
	case s.PersistenceEvents > 0:
		return "promote"
	case s.CrossedLow > 0:
		return "watch"
	default:
		return "kill"
	}
}

// CycleSummary es el resumen ligero de un ciclo de observación, pensado
// para persistirse como una fila por ciclo.
type CycleSummary struct {
	Block         uint64
	At            time.Time
	Pairs         int
	RoundTrips    int
	PairFailures  int                // pares abortados a nivel de par (p.ej. asset sin precio)
	QuoteErrors   QuoteFailureCounts // fallos de quoting por venue, desglosados por causa
	BestSpreadPct float64
	BestNetPct    float64
	Crossings     int // round trips del ciclo con spread ≥ umbral bajo
	Alerts        int
	Elapsed       time.Duration
}
