package monitor

import "github.com/alejandrodnm/dexarb/internal/domain"

// Statistics acumula los contadores monotónicos por (par, notional).
//
// Es un objeto de contexto explícito, no estado ambiental del proceso:
// varios runs de monitorización independientes (uno por chain) pueden
// componerse sin contaminarse.
type Statistics struct {
	m map[domain.StatsKey]*domain.PairStats
}

// NewStatistics crea un acumulador vacío. Solo se resetea al arrancar.
func NewStatistics() *Statistics {
	return &Statistics{m: make(map[domain.StatsKey]*domain.PairStats)}
}

// Observe registra un round trip: check, cruces de umbral y acumulados.
func (s *Statistics) Observe(rt domain.RoundTrip) {
	key := domain.StatsKey{Pair: rt.Pair, NotionalUSD: rt.NotionalUSD}
	ps, ok := s.m[key]
	if !ok {
		ps = &domain.PairStats{}
		s.m[key] = ps
	}
	if ps.Checks == 0 {
		// La entrada pudo nacer por un fallo de quoting antes del primer
		// round trip válido; el best arranca con la primera muestra real.
		ps.BestSpreadPct = rt.SpreadPct
	}

	ps.Checks++
	ps.SumNetPct += rt.NetPct
	if rt.SpreadPct > ps.BestSpreadPct {
		ps.BestSpreadPct = rt.SpreadPct
	}
	if rt.SpreadPct >= domain.ThresholdLow {
		ps.CrossedLow++
	}
	if rt.SpreadPct >= domain.ThresholdMid {
		ps.CrossedMid++
	}
	if rt.SpreadPct >= domain.ThresholdHigh {
		ps.CrossedHigh++
	}
}

// ObserveFailures acumula los fallos de quoting de una evaluación, para que
// el resumen final distinga un venue seco de un quoter mal configurado.
func (s *Statistics) ObserveFailures(pair string, notionalUSD float64, c domain.QuoteFailureCounts) {
	key := domain.StatsKey{Pair: pair, NotionalUSD: notionalUSD}
	ps, ok := s.m[key]
	if !ok {
		ps = &domain.PairStats{}
		s.m[key] = ps
	}
	ps.QuoteFailures.Add(c)
}

// AddPersistence incrementa el contador de eventos de persistencia.
func (s *Statistics) AddPersistence(ev domain.PersistenceEvent) {
	key := domain.StatsKey{Pair: ev.Pair, NotionalUSD: ev.NotionalUSD}
	ps, ok := s.m[key]
	if !ok {
		ps = &domain.PairStats{}
		s.m[key] = ps
	}
	ps.PersistenceEvents++
}

// Snapshot devuelve una copia de los contadores para el notifier/storage.
func (s *Statistics) Snapshot() map[domain.StatsKey]domain.PairStats {
	out := make(map[domain.StatsKey]domain.PairStats, len(s.m))
	for k, v := range s.m {
		out[k] = *v
	}
	return out
}
