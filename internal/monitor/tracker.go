package monitor

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// Tracker es la máquina de estados por clave (par, dirección, notional) que
// separa las muestras ruidosas de las condiciones estructurales sostenidas.
//
// Dos estados: Idle (sin entrada en el mapa) y Active (SpikeState presente).
// Sin evicción por reloj: una excursión que nunca vuelve a caer bajo el
// umbral retiene su entrada para siempre — ese canal permanentemente abierto
// es la señal más fuerte posible y no se recolecta en silencio. El mapa está
// acotado por el espacio finito de claves configuradas (par × dirección ×
// notional), que es pequeño y estático.
type Tracker struct {
	threshold float64
	onAbs     bool // aplicar el umbral a |spread| en vez de al spread con signo

	active map[domain.SpikeKey]*domain.SpikeState
}

// NewTracker crea un Tracker con el umbral dado (en %, p.ej. 0.3).
// Si onAbs es true el umbral se compara contra la magnitud del spread; la
// convención (con signo o absoluto) la fija el despliegue, no el core.
func NewTracker(threshold float64, onAbs bool) *Tracker {
	return &Tracker{
		threshold: threshold,
		onAbs:     onAbs,
		active:    make(map[domain.SpikeKey]*domain.SpikeState),
	}
}

// Observe procesa una observación y devuelve el PersistenceEvent emitido al
// cerrar una excursión de duración ≥ 2, o nil.
//
// Transiciones:
//   - Idle→Active en el primer cruce del umbral (count=1).
//   - Active→Active en cada observación consecutiva sobre el umbral.
//   - Active→Idle en la primera observación por debajo: la entrada se borra
//     SIEMPRE; el evento solo se emite si la racha duró al menos 2.
// metric devuelve el valor con el que se comparan umbral y extremo.
func (t *Tracker) metric(spreadPct float64) float64 {
	if t.onAbs {
		return math.Abs(spreadPct)
	}
	return spreadPct
}

func (t *Tracker) Observe(rt domain.RoundTrip, now time.Time) *domain.PersistenceEvent {
	key := domain.SpikeKey{Pair: rt.Pair, Direction: rt.Direction(), NotionalUSD: rt.NotionalUSD}

	value := t.metric(rt.SpreadPct)

	state, active := t.active[key]

	if value >= t.threshold {
		if !active {
			t.active[key] = &domain.SpikeState{
				StartBlock: rt.Block,
				StartedAt:  now,
				Count:      1,
				MaxSpread:  rt.SpreadPct,
			}
			return nil
		}
		state.Count++
		// El extremo se mide con la MISMA métrica que el umbral: en modo
		// absoluto, -0.6 supera a -0.5. Se conserva el signo del extremo.
		if value > t.metric(state.MaxSpread) {
			state.MaxSpread = rt.SpreadPct
		}
		return nil
	}

	if !active {
		return nil
	}

	delete(t.active, key)
	if state.Count < 2 {
		return nil
	}

	return &domain.PersistenceEvent{
		ID:           uuid.New().String(),
		Pair:         key.Pair,
		Direction:    key.Direction,
		NotionalUSD:  key.NotionalUSD,
		Duration:     state.Count,
		MaxSpread:    state.MaxSpread,
		WallDuration: now.Sub(state.StartedAt),
		StartBlock:   state.StartBlock,
		EndBlock:     rt.Block,
	}
}

// Active devuelve una copia del estado de las excursiones abiertas, para el
// reporte final: lo que sigue abierto al apagar también es señal.
func (t *Tracker) Active() map[domain.SpikeKey]domain.SpikeState {
	out := make(map[domain.SpikeKey]domain.SpikeState, len(t.active))
	for k, v := range t.active {
		out[k] = *v
	}
	return out
}
