package ports

import (
	"context"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// RoundTripRecorder emite registros durables, uno por round trip, en un
// store append-only particionado por fecha. No existe update ni delete.
type RoundTripRecorder interface {
	// Record añade un registro. Un fallo se envuelve sobre domain.ErrLogWrite
	// y el llamador lo reporta sin abortar el ciclo.
	Record(ctx context.Context, rt domain.RoundTrip) error

	// Close cierra el archivo de registro actual limpiamente.
	Close() error
}
