package ports

import (
	"context"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// CycleStore persiste los resúmenes de ciclo y los contadores agregados.
// Es best-effort: un fallo se loguea y el ciclo sigue.
type CycleStore interface {
	// SaveCycle persiste el resumen ligero de un ciclo (una fila por ciclo).
	SaveCycle(ctx context.Context, sum domain.CycleSummary) error

	// SaveStats hace upsert de los contadores por (par, notional).
	SaveStats(ctx context.Context, stats map[domain.StatsKey]domain.PairStats) error

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
