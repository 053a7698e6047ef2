package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/alejandrodnm/dexarb/internal/domain"
	"github.com/alejandrodnm/dexarb/internal/ports"
)

// Evaluator computa el beneficio realizable de un trade cerrado (comprar en
// un venue, vender en otro) para cada par ordenado de venues de un par.
type Evaluator struct {
	quoter     ports.QuoteProvider
	pace       time.Duration // retardo entre quotes consecutivos, por rate limits del colaborador
	gasCostUSD float64       // coste fijo de gas descontado del neto
}

// NewEvaluator crea un Evaluator.
func NewEvaluator(quoter ports.QuoteProvider, pace time.Duration, gasCostUSD float64) *Evaluator {
	return &Evaluator{quoter: quoter, pace: pace, gasCostUSD: gasCostUSD}
}

// Evaluate evalúa un par a un notional dado y devuelve un RoundTrip por cada
// combinación ordenada (i,j) de venues con quote forward y reverse válidos,
// junto con el recuento de fallos de quoting clasificados por causa.
//
// Los quotes forward fallidos se CONSERVAN en el conjunto intermedio (con
// output ausente) para distinguir "el venue cotizó cero" de "nunca se le
// preguntó"; un fallo del reverse excluye solo esa combinación (i,j).
func (e *Evaluator) Evaluate(ctx context.Context, pair *domain.TradingPair, notionalUSD float64, block uint64) ([]domain.RoundTrip, domain.QuoteFailureCounts, error) {
	var fails domain.QuoteFailureCounts

	amountIn, err := pair.Token0.AmountFromUSD(notionalUSD)
	if err != nil {
		return nil, fails, fmt.Errorf("monitor.Evaluate: %s: %w", pair.Name(), err)
	}

	forwards := e.forwardQuotes(ctx, pair, amountIn)

	var trips []domain.RoundTrip
	now := time.Now().UTC()

	for i, fwd := range forwards {
		if !fwd.OK() {
			fails.Observe(fwd.Err)
			continue
		}
		for j, sell := range pair.Venues {
			if j == i {
				continue
			}
			if err := e.pause(ctx); err != nil {
				return trips, fails, err
			}

			out, err := e.quoter.Quote(ctx, sell, pair.Token1, pair.Token0, fwd.AmountOut)
			if err != nil {
				fails.Observe(err)
				slog.Debug("reverse quote failed",
					"pair", pair.Name(),
					"buy", fwd.Venue.Venue.Name,
					"sell", sell.Venue.Name,
					"err", err,
				)
				continue
			}

			trips = append(trips, e.buildTrip(pair, notionalUSD, fwd, sell.Venue.Name, out, block, now))
		}
	}
	return trips, fails, nil
}

// forwardQuotes pide el quote token0→token1 a cada venue, secuencialmente y
// con pacing fijo entre llamadas. Un fallo no aborta a los hermanos.
func (e *Evaluator) forwardQuotes(ctx context.Context, pair *domain.TradingPair, amountIn *big.Int) []domain.Quote {
	forwards := make([]domain.Quote, len(pair.Venues))
	for i, v := range pair.Venues {
		if i > 0 {
			if err := e.pause(ctx); err != nil {
				forwards[i] = domain.Quote{Venue: v, AmountIn: amountIn, Err: err}
				continue
			}
		}

		out, err := e.quoter.Quote(ctx, v, pair.Token0, pair.Token1, amountIn)
		forwards[i] = domain.Quote{Venue: v, AmountIn: amountIn, AmountOut: out, Err: err}
		if err != nil {
			// Un venue sin ruta o con fallo transitorio es ruido esperado;
			// un schema mismatch u otro fallo permanente apunta a
			// configuración rota y merece visibilidad.
			level := slog.LevelDebug
			if !errors.Is(err, domain.ErrNoRoute) && !domain.TransientQuoteError(err) {
				level = slog.LevelWarn
			}
			slog.Log(ctx, level, "forward quote failed",
				"pair", pair.Name(),
				"venue", v.Venue.Name,
				"err", err,
			)
		}
	}
	return forwards
}

// buildTrip convierte las cantidades nativas a USD y calcula los
// porcentajes. Este es el único paso en float de todo el pipeline.
func (e *Evaluator) buildTrip(pair *domain.TradingPair, notionalUSD float64, fwd domain.Quote, sellVenue string, out *big.Int, block uint64, now time.Time) domain.RoundTrip {
	inUSD := pair.Token0.USDFromAmount(fwd.AmountIn)
	outUSD := pair.Token0.USDFromAmount(out)
	netUSD := outUSD - inUSD - e.gasCostUSD

	var spreadPct, netPct float64
	if inUSD > 0 {
		spreadPct = (outUSD - inUSD) / inUSD * 100
		netPct = netUSD / inUSD * 100
	}

	return domain.RoundTrip{
		Pair:        pair.Name(),
		BuyVenue:    fwd.Venue.Venue.Name,
		SellVenue:   sellVenue,
		NotionalUSD: notionalUSD,
		AmountIn:    fwd.AmountIn,
		AmountOut:   out,
		InUSD:       inUSD,
		OutUSD:      outUSD,
		NetUSD:      netUSD,
		SpreadPct:   spreadPct,
		NetPct:      netPct,
		Block:       block,
		At:          now,
	}
}

// pause espera el retardo de pacing respetando la cancelación del contexto.
func (e *Evaluator) pause(ctx context.Context) error {
	if e.pace <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.pace):
		return nil
	}
}
