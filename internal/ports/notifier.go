package ports

import (
	"context"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// Notifier presenta al usuario la actividad del monitor.
type Notifier interface {
	// NotifyCycle resume un ciclo completo de observación.
	NotifyCycle(ctx context.Context, sum domain.CycleSummary) error

	// NotifyAlert anuncia un round trip sobre el umbral que sobrevivió la
	// deduplicación por cooldown.
	NotifyAlert(ctx context.Context, rt domain.RoundTrip) error

	// NotifyPersistence anuncia el cierre de una excursión sostenida.
	NotifyPersistence(ctx context.Context, ev domain.PersistenceEvent) error

	// Summary imprime el resumen final por (par, notional) con su veredicto.
	Summary(stats map[domain.StatsKey]domain.PairStats) error
}
