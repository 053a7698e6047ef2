package monitor

import (
	"math"
	"time"
)

// AlertDeduper suprime alertas repetidas del mismo par: si ya alertamos hace
// menos del cooldown Y el spread no se ha movido más que el delta mínimo, la
// nueva alerta es ruido de jitter y se calla. Solo aplica a las alertas; los
// registros durables no se deduplican nunca.
type AlertDeduper struct {
	cooldown time.Duration
	minDelta float64 // movimiento mínimo de spread (en puntos de %) para re-alertar dentro del cooldown

	last map[string]alertMark // por par
}

type alertMark struct {
	at     time.Time
	spread float64
}

// NewAlertDeduper crea un deduplicador con la ventana y el delta dados.
func NewAlertDeduper(cooldown time.Duration, minDelta float64) *AlertDeduper {
	return &AlertDeduper{
		cooldown: cooldown,
		minDelta: minDelta,
		last:     make(map[string]alertMark),
	}
}

// ShouldAlert decide si la alerta se emite y, en ese caso, la registra como
// la última emitida para el par. Las alertas suprimidas NO refrescan la
// marca: expirada la ventana se vuelve a alertar aunque el spread no cambie.
func (d *AlertDeduper) ShouldAlert(pair string, spreadPct float64, now time.Time) bool {
	mark, seen := d.last[pair]
	if seen && now.Sub(mark.at) < d.cooldown && math.Abs(spreadPct-mark.spread) <= d.minDelta {
		return false
	}

	d.last[pair] = alertMark{at: now, spread: spreadPct}
	return true
}
