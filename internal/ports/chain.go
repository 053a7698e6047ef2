package ports

import "context"

// ChainHead expone la altura de la cadena. El monitor la sondea para
// disparar exactamente un ciclo de observación por bloque nuevo.
type ChainHead interface {
	HeadBlock(ctx context.Context) (uint64, error)
}
