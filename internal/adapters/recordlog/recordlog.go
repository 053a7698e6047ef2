// Package recordlog implementa el registro durable de round trips: archivos
// JSONL particionados por fecha, append-only — no existe update ni delete.
//
// Retención: al rotar de partición se podan los archivos más antiguos por
// encima del máximo configurado. Guardia de tamaño: superado el techo de
// bytes de un archivo, las escrituras a ESE archivo se cortan (el corte a
// archivo nuevo lo hace la partición diaria, no este componente).
package recordlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

const (
	filePrefix = "roundtrips-"
	fileExt    = ".jsonl"
	dayFormat  = "2006-01-02"
)

// Config controla la retención del registro.
type Config struct {
	Dir          string
	MaxFiles     int   // nº máximo de particiones retenidas; 0 = sin límite
	MaxFileBytes int64 // techo de bytes por archivo; 0 = sin techo
}

// Log implementa ports.RoundTripRecorder.
type Log struct {
	cfg Config

	mu   sync.Mutex
	day  string // partición abierta, formato YYYY-MM-DD
	f    *os.File
	size int64
	full bool // el archivo actual superó el techo; no se escribe más en él
}

// New crea el directorio si no existe y aplica la retención inicial.
func New(cfg Config) (*Log, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("recordlog.New: directorio vacío")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("recordlog.New: mkdir %q: %w", cfg.Dir, err)
	}

	l := &Log{cfg: cfg}
	if err := l.prune(); err != nil {
		return nil, err
	}
	return l, nil
}

// record es la proyección durable de un RoundTrip. Los campos numéricos son
// strings decimales de precisión fija (4 decimales los porcentajes, 2-4 los
// USD) para que el log sea diffeable y parseable sin ambigüedad de float.
type record struct {
	Timestamp        string `json:"timestamp"`
	ObservationIndex uint64 `json:"observationIndex"`
	Pair             string `json:"pair"`
	Direction        string `json:"direction"`
	NotionalUSD      string `json:"notionalUSD"`
	SpreadPct        string `json:"spreadPct"`
	NetPct           string `json:"netPct"`
	NetUSD           string `json:"netUSD"`
	InUSD            string `json:"inUSD"`
	OutUSD           string `json:"outUSD"`
}

// Record añade una línea a la partición del día. Todo fallo se envuelve
// sobre domain.ErrLogWrite para que el llamador lo trate como no fatal.
func (l *Log) Record(_ context.Context, rt domain.RoundTrip) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := rt.At.UTC().Format(dayFormat)
	if err := l.openDay(day); err != nil {
		return err
	}
	if l.full {
		return fmt.Errorf("recordlog.Record: partición %s sobre el techo de %d bytes: %w",
			l.day, l.cfg.MaxFileBytes, domain.ErrLogWrite)
	}

	rec := record{
		Timestamp:        rt.At.UTC().Format(time.RFC3339),
		ObservationIndex: rt.Block,
		Pair:             rt.Pair,
		Direction:        rt.Direction(),
		NotionalUSD:      decimal.NewFromFloat(rt.NotionalUSD).StringFixed(2),
		SpreadPct:        decimal.NewFromFloat(rt.SpreadPct).StringFixed(4),
		NetPct:           decimal.NewFromFloat(rt.NetPct).StringFixed(4),
		NetUSD:           decimal.NewFromFloat(rt.NetUSD).StringFixed(4),
		InUSD:            decimal.NewFromFloat(rt.InUSD).StringFixed(2),
		OutUSD:           decimal.NewFromFloat(rt.OutUSD).StringFixed(2),
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("recordlog.Record: marshal: %v: %w", err, domain.ErrLogWrite)
	}
	line = append(line, '\n')

	n, err := l.f.Write(line)
	l.size += int64(n)
	if err != nil {
		return fmt.Errorf("recordlog.Record: write: %v: %w", err, domain.ErrLogWrite)
	}

	if l.cfg.MaxFileBytes > 0 && l.size >= l.cfg.MaxFileBytes {
		l.full = true
	}
	return nil
}

// Close cierra la partición abierta.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// openDay abre (en append) la partición del día, rotando si cambió la fecha.
func (l *Log) openDay(day string) error {
	if l.f != nil && l.day == day {
		return nil
	}
	if l.f != nil {
		l.f.Close()
		l.f = nil
	}

	path := filepath.Join(l.cfg.Dir, filePrefix+day+fileExt)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("recordlog: open %q: %v: %w", path, err, domain.ErrLogWrite)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("recordlog: stat %q: %v: %w", path, err, domain.ErrLogWrite)
	}

	l.f = f
	l.day = day
	l.size = info.Size()
	l.full = l.cfg.MaxFileBytes > 0 && l.size >= l.cfg.MaxFileBytes

	if err := l.prune(); err != nil {
		// La retención no bloquea la escritura del día actual.
		return nil
	}
	return nil
}

// prune borra las particiones más antiguas por encima de MaxFiles.
// El orden lexicográfico del nombre coincide con el cronológico.
func (l *Log) prune() error {
	if l.cfg.MaxFiles <= 0 {
		return nil
	}

	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return fmt.Errorf("recordlog.prune: %v: %w", err, domain.ErrLogWrite)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt) {
			files = append(files, name)
		}
	}
	if len(files) <= l.cfg.MaxFiles {
		return nil
	}

	sort.Strings(files)
	for _, name := range files[:len(files)-l.cfg.MaxFiles] {
		os.Remove(filepath.Join(l.cfg.Dir, name))
	}
	return nil
}
