package domain

import "time"

// SpikeKey identifica una excursión activa. Dirección y notional forman
// parte de la identidad: el mismo par puede tener spikes independientes por
// dirección y por tamaño simultáneamente.
type SpikeKey struct {
	Pair        string
	Direction   string
	NotionalUSD float64
}

// SpikeState es el registro mutable de una excursión sobre el umbral.
// Se crea al cruzar el umbral, se actualiza en cada observación consecutiva
// por encima, y se destruye al caer por debajo. Existe exactamente uno por
// excursión activa.
type SpikeState struct {
	StartBlock uint64
	StartedAt  time.Time
	Count      int     // observaciones consecutivas sobre el umbral
	MaxSpread  float64 // extremo de la excursión, medido con la métrica del umbral; conserva el signo
}

// PersistenceEvent se emite al cerrar una excursión que duró al menos dos
// observaciones consecutivas: la señal de que el spread no era ruido de una
// sola muestra sino una condición estructural sostenida.
type PersistenceEvent struct {
	ID           string
	Pair         string
	Direction    string
	NotionalUSD  float64
	Duration     int // observaciones consecutivas sobre el umbral
	MaxSpread    float64
	WallDuration time.Duration
	StartBlock   uint64
	EndBlock     uint64
}
