package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/dexarb/internal/domain"
	"github.com/alejandrodnm/dexarb/internal/ports"
)

// Config contiene la configuración del monitor.
type Config struct {
	PollInterval time.Duration // cadencia de sondeo de la altura de la cadena
	Notionals    []float64     // tamaños en USD a evaluar por par

	ThresholdPct   float64 // umbral de logging/persistencia (default 0.3)
	ThresholdOnAbs bool    // aplicar el umbral a |spread| en vez del spread con signo
	NoiseFloorPct  float64 // suelo de ruido del registro durable (default -2.0)
	GasCostUSD     float64 // coste fijo de gas por round trip
	PaceDelay      time.Duration

	AlertCooldown time.Duration
	AlertMinDelta float64

	OracleRefreshCycles int // re-consultar el oráculo cada N ciclos
	Workers             int // pares evaluados en paralelo dentro de un ciclo
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		PollInterval:        4 * time.Second,
		Notionals:           []float64{1000},
		ThresholdPct:        0.3,
		NoiseFloorPct:       -2.0,
		GasCostUSD:          0.05,
		PaceDelay:           100 * time.Millisecond,
		AlertCooldown:       5 * time.Minute,
		AlertMinDelta:       0.1,
		OracleRefreshCycles: 10,
		Workers:             4,
	}
}

// Monitor es el orquestador del loop de observación: un ciclo por bloque
// nuevo, estrictamente sin solapamiento.
type Monitor struct {
	cfg   Config
	pairs []*domain.TradingPair

	head     ports.ChainHead
	oracle   ports.PriceOracle
	recorder ports.RoundTripRecorder
	store    ports.CycleStore
	notifier ports.Notifier

	evaluator *Evaluator
	tracker   *Tracker
	stats     *Statistics
	deduper   *AlertDeduper

	// Guardia de reentrada: si un tick llega con el ciclo anterior aún en
	// vuelo, el tick se SALTA (no se encola).
	running atomic.Bool

	cycles    uint64 // ciclos completados, para el refresco periódico del oráculo
	lastBlock uint64
}

// New crea un Monitor con todas las dependencias inyectadas.
func New(
	cfg Config,
	pairs []*domain.TradingPair,
	quoter ports.QuoteProvider,
	head ports.ChainHead,
	oracle ports.PriceOracle,
	recorder ports.RoundTripRecorder,
	store ports.CycleStore,
	notifier ports.Notifier,
) *Monitor {
	return &Monitor{
		cfg:       cfg,
		pairs:     pairs,
		head:      head,
		oracle:    oracle,
		recorder:  recorder,
		store:     store,
		notifier:  notifier,
		evaluator: NewEvaluator(quoter, cfg.PaceDelay, cfg.GasCostUSD),
		tracker:   NewTracker(cfg.ThresholdPct, cfg.ThresholdOnAbs),
		stats:     NewStatistics(),
		deduper:   NewAlertDeduper(cfg.AlertCooldown, cfg.AlertMinDelta),
	}
}

// Run ejecuta el loop de observación hasta que el contexto se cancele.
// Al apagar, el estado del tracker y las estadísticas se reportan en su
// última condición completamente observada; no se intenta terminar un ciclo
// interrumpido a mitad de vuelo.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"pairs", len(m.pairs),
		"notionals", m.cfg.Notionals,
		"threshold_pct", m.cfg.ThresholdPct,
		"poll", m.cfg.PollInterval,
	)

	if err := m.refreshPrices(ctx); err != nil {
		return fmt.Errorf("monitor.Run: precios iniciales: %w", err)
	}

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped", "cycles", m.cycles)
			m.reportFinal()
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

// RunOnce fuerza exactamente un ciclo contra la altura actual. Pensado para
// el modo -once y para validación manual.
func (m *Monitor) RunOnce(ctx context.Context) error {
	if err := m.refreshPrices(ctx); err != nil {
		return err
	}
	block, err := m.head.HeadBlock(ctx)
	if err != nil {
		return fmt.Errorf("monitor.RunOnce: %w", err)
	}
	m.runCycle(ctx, block)
	m.reportFinal()
	return nil
}

// tick sondea la altura y dispara un ciclo solo si hay bloque nuevo.
func (m *Monitor) tick(ctx context.Context) {
	block, err := m.head.HeadBlock(ctx)
	if err != nil {
		slog.Warn("head poll failed", "err", err)
		return
	}
	if block == m.lastBlock {
		return
	}

	if !m.running.CompareAndSwap(false, true) {
		slog.Warn("cycle overrun, skipping tick", "block", block)
		return
	}
	defer m.running.Store(false)

	m.lastBlock = block
	m.runCycle(ctx, block)
}

// pairResult es el conjunto COMPLETO de round trips de un par en un ciclo.
// El tracker y las estadísticas solo consumen agregados de ciclo completos,
// nunca una mezcla parcial de dos ciclos.
type pairResult struct {
	pair         string
	trips        []domain.RoundTrip
	pairFailures int // evaluaciones abortadas a nivel de par (p.ej. asset sin precio)
	fails        []notionalFailures
}

// notionalFailures son los fallos de quoting por venue de una evaluación,
// clasificados por causa y etiquetados con su notional.
type notionalFailures struct {
	notional float64
	counts   domain.QuoteFailureCounts
}

// runCycle evalúa todos los pares y alimenta tracker, estadísticas, registro
// durable y alertas. Ningún error aquí es fatal para el proceso.
func (m *Monitor) runCycle(ctx context.Context, block uint64) {
	start := time.Now()

	if m.cfg.OracleRefreshCycles > 0 && m.cycles%uint64(m.cfg.OracleRefreshCycles) == 0 && m.cycles > 0 {
		if err := m.refreshPrices(ctx); err != nil {
			slog.Warn("oracle refresh failed, reusing last prices", "err", err)
		}
	}

	results := m.evaluatePairs(ctx, block)

	sum := m.ingest(ctx, block, results)
	sum.At = start.UTC()
	sum.Elapsed = time.Since(start)

	if m.store != nil {
		if err := m.store.SaveCycle(ctx, sum); err != nil {
			slog.Warn("cycle store error", "err", err)
		}
		if err := m.store.SaveStats(ctx, m.stats.Snapshot()); err != nil {
			slog.Warn("stats store error", "err", err)
		}
	}

	if err := m.notifier.NotifyCycle(ctx, sum); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	m.cycles++
	slog.Debug("cycle complete",
		"block", block,
		"round_trips", sum.RoundTrips,
		"best_spread_pct", sum.BestSpreadPct,
		"elapsed", sum.Elapsed.Round(time.Millisecond),
	)
}

// evaluatePairs reparte los pares entre workers. No hay dependencia de datos
// entre pares, así que el fan-out es seguro; la secuencia forward→reverse de
// cada par sigue siendo estrictamente secuencial dentro de su goroutine.
func (m *Monitor) evaluatePairs(ctx context.Context, block uint64) []pairResult {
	results := make([]pairResult, len(m.pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(m.cfg.Workers, 1))

	for i, pair := range m.pairs {
		g.Go(func() error {
			res := pairResult{pair: pair.Name()}
			for _, notional := range m.cfg.Notionals {
				trips, fails, err := m.evaluator.Evaluate(gctx, pair, notional, block)
				if fails.Total() > 0 {
					res.fails = append(res.fails, notionalFailures{notional: notional, counts: fails})
				}
				if err != nil {
					// Un fallo a nivel de par (p.ej. asset sin precio) aborta
					// SOLO este par para este ciclo; los hermanos siguen.
					slog.Warn("pair evaluation failed",
						"pair", pair.Name(),
						"notional_usd", notional,
						"err", err,
					)
					res.pairFailures++
					continue
				}
				res.trips = append(res.trips, trips...)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait() // las goroutines nunca devuelven error: los fallos son por par

	return results
}

// ingest procesa los resultados de un ciclo completo en orden determinista:
// estadísticas, tracker, registro durable y alertas deduplicadas.
func (m *Monitor) ingest(ctx context.Context, block uint64, results []pairResult) domain.CycleSummary {
	sum := domain.CycleSummary{Block: block, Pairs: len(results)}
	now := time.Now().UTC()

	first := true
	for _, res := range results {
		sum.PairFailures += res.pairFailures
		for _, nf := range res.fails {
			sum.QuoteErrors.Add(nf.counts)
			m.stats.ObserveFailures(res.pair, nf.notional, nf.counts)
		}
		for _, rt := range res.trips {
			sum.RoundTrips++
			if first || rt.SpreadPct > sum.BestSpreadPct {
				sum.BestSpreadPct = rt.SpreadPct
			}
			if first || rt.NetPct > sum.BestNetPct {
				sum.BestNetPct = rt.NetPct
			}
			first = false

			m.stats.Observe(rt)

			if ev := m.tracker.Observe(rt, now); ev != nil {
				m.stats.AddPersistence(*ev)
				if err := m.notifier.NotifyPersistence(ctx, *ev); err != nil {
					slog.Warn("notifier error", "err", err)
				}
			}

			// Registro durable por encima del suelo de ruido: conserva
			// muestras rentables Y modestamente no rentables para análisis.
			if rt.SpreadPct > m.cfg.NoiseFloorPct && m.recorder != nil {
				if err := m.recorder.Record(ctx, rt); err != nil {
					// Perder un registro es aceptable; perder el loop no.
					slog.Warn("record log error", "err", err)
				}
			}

			if rt.SpreadPct >= m.cfg.ThresholdPct {
				sum.Crossings++
				if m.deduper.ShouldAlert(rt.Pair, rt.SpreadPct, now) {
					sum.Alerts++
					if err := m.notifier.NotifyAlert(ctx, rt); err != nil {
						slog.Warn("notifier error", "err", err)
					}
				}
			}
		}
	}
	return sum
}

// refreshPrices re-consulta el oráculo para cada asset único configurado.
// El precio es el único campo mutable de Asset y solo se escribe aquí,
// nunca con un ciclo en vuelo.
func (m *Monitor) refreshPrices(ctx context.Context) error {
	seen := make(map[string]*domain.Asset)
	for _, p := range m.pairs {
		seen[p.Token0.Symbol] = p.Token0
		seen[p.Token1.Symbol] = p.Token1
	}

	var firstErr error
	for _, asset := range seen {
		price, err := m.oracle.PriceUSD(ctx, asset.OracleID)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("monitor.refreshPrices: %s: %w", asset.Symbol, err)
			}
			continue // se mantiene el último precio conocido
		}
		asset.PriceUSD = price
	}
	return firstErr
}

// reportFinal imprime el resumen por (par, notional) con los contadores en
// su última condición completamente observada.
func (m *Monitor) reportFinal() {
	for key, st := range m.tracker.Active() {
		slog.Info("spike still open at shutdown",
			"pair", key.Pair,
			"direction", key.Direction,
			"notional_usd", key.NotionalUSD,
			"count", st.Count,
			"max_spread_pct", st.MaxSpread,
		)
	}
	if err := m.notifier.Summary(m.stats.Snapshot()); err != nil {
		slog.Warn("summary error", "err", err)
	}
}
