package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Taxonomía de errores del core. Los adapters envuelven estos centinelas con
// contexto (fmt.Errorf + %w) y los consumidores los distinguen con errors.Is.
var (
	// ErrNoRoute: el venue no tiene pool para este par con ningún parámetro
	// de enrutado. Señal legítima de "cero liquidez", no un defecto.
	ErrNoRoute = errors.New("no route for pair at venue")

	// ErrSchemaMismatch: la detección de esquema agotó todas las variantes
	// sin éxito, o un esquema cacheado dejó de responder como tal. Indica un
	// defecto de configuración, no de mercado.
	ErrSchemaMismatch = errors.New("quoter schema mismatch")

	// ErrRevertedCall: el venue rechazó la llamada (liquidez agotada, límite
	// de slippage, etc.). Transitorio y esperable.
	ErrRevertedCall = errors.New("quoter call reverted")

	// ErrUnreachable: el endpoint de red del venue no respondió.
	ErrUnreachable = errors.New("venue endpoint unreachable")

	// ErrInvalidNotional: notional no positivo, o el asset base no tiene
	// precio de referencia todavía. Aborta el par solo para el ciclo actual.
	ErrInvalidNotional = errors.New("invalid notional")

	// ErrLogWrite: fallo de I/O del registro durable. Se reporta pero nunca
	// aborta el ciclo: perder un registro es aceptable, perder el loop no.
	ErrLogWrite = errors.New("record log write failed")
)

// TransientQuoteError indica si un fallo de quoting puede repetirse de forma
// transitoria (reintentarlo en ciclos siguientes tiene sentido) o si es una
// condición estructural del par/venue.
func TransientQuoteError(err error) bool {
	return errors.Is(err, ErrRevertedCall) || errors.Is(err, ErrUnreachable)
}

// QuoteFailureCounts desglosa los fallos de quoting por centinela. Llega
// hasta la superficie de resumen para que un venue sin liquidez (NoRoute,
// señal legítima de cero) se distinga de un defecto de configuración o de
// red (SchemaMismatch, Unreachable) que cotiza igual de vacío pero significa
// otra cosa.
type QuoteFailureCounts struct {
	NoRoute        int
	SchemaMismatch int
	Reverted       int
	Unreachable    int
	Other          int
}

// Observe clasifica un fallo de quoting en su contador. Ignora nil.
func (c *QuoteFailureCounts) Observe(err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrNoRoute):
		c.NoRoute++
	case errors.Is(err, ErrSchemaMismatch):
		c.SchemaMismatch++
	case errors.Is(err, ErrRevertedCall):
		c.Reverted++
	case errors.Is(err, ErrUnreachable):
		c.Unreachable++
	default:
		c.Other++
	}
}

// Add acumula otro conjunto de contadores sobre este.
func (c *QuoteFailureCounts) Add(o QuoteFailureCounts) {
	c.NoRoute += o.NoRoute
	c.SchemaMismatch += o.SchemaMismatch
	c.Reverted += o.Reverted
	c.Unreachable += o.Unreachable
	c.Other += o.Other
}

// Total devuelve el número total de fallos observados.
func (c QuoteFailureCounts) Total() int {
	return c.NoRoute + c.SchemaMismatch + c.Reverted + c.Unreachable + c.Other
}

// Defects devuelve los fallos que apuntan a un defecto de configuración o de
// infraestructura, nunca a una señal legítima de mercado.
func (c QuoteFailureCounts) Defects() int {
	return c.SchemaMismatch + c.Unreachable + c.Other
}

// String renderiza los contadores no nulos, p.ej. "no-route:3 schema:1".
func (c QuoteFailureCounts) String() string {
	if c.Total() == 0 {
		return "none"
	}
	var parts []string
	add := func(label string, n int) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", label, n))
		}
	}
	add("no-route", c.NoRoute)
	add("schema", c.SchemaMismatch)
	add("reverted", c.Reverted)
	add("unreachable", c.Unreachable)
	add("other", c.Other)
	return strings.Join(parts, " ")
}
