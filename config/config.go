package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/dexarb/internal/domain"
)

// Config es la configuración completa del monitor, una por red.
type Config struct {
	Chain     ChainConfig     `yaml:"chain"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Assets    []AssetConfig   `yaml:"assets"`
	Venues    []VenueConfig   `yaml:"venues"`
	Pairs     []PairConfig    `yaml:"pairs"`
	Storage   StorageConfig   `yaml:"storage"`
	RecordLog RecordLogConfig `yaml:"record_log"`
	Log       LogConfig       `yaml:"log"`
}

// ChainConfig identifica la red y el nodo RPC.
type ChainConfig struct {
	Name                string  `yaml:"name"`
	RPCURL              string  `yaml:"rpc_url"`
	RPCRatePerSec       float64 `yaml:"rpc_rate_per_sec"`
	PollIntervalSeconds int     `yaml:"poll_interval_seconds"`
}

// MonitorConfig controla el comportamiento del loop de observación.
type MonitorConfig struct {
	NotionalsUSD        []float64 `yaml:"notionals_usd"`
	ThresholdPct        float64   `yaml:"threshold_pct"`
	ThresholdOnAbs      bool      `yaml:"threshold_on_abs"` // umbral sobre |spread|; por defecto con signo
	NoiseFloorPct       float64   `yaml:"noise_floor_pct"`
	GasCostUSD          float64   `yaml:"gas_cost_usd"`
	PaceMillis          int       `yaml:"pace_ms"`
	AlertCooldownSecs   int       `yaml:"alert_cooldown_seconds"`
	AlertMinDeltaPct    float64   `yaml:"alert_min_delta_pct"`
	OracleRefreshCycles int       `yaml:"oracle_refresh_cycles"`
	Workers             int       `yaml:"workers"`
}

// OracleConfig contiene el endpoint del oráculo de precios.
type OracleConfig struct {
	BaseURL    string  `yaml:"base_url"`
	RatePerSec float64 `yaml:"rate_per_sec"`
}

// AssetConfig describe un token monitorizado.
type AssetConfig struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
	OracleID string `yaml:"oracle_id"`
}

// VenueConfig describe un venue y su punto de entrada de quoting.
type VenueConfig struct {
	Name   string `yaml:"name"`
	Family string `yaml:"family"` // v2 | v3 | algebra | lb
	Quoter string `yaml:"quoter"`
}

// PairConfig describe un par y los venues donde cotiza.
type PairConfig struct {
	Base   string            `yaml:"base"`  // símbolo del token0 (el notional va sobre él)
	Quote  string            `yaml:"quote"` // símbolo del token1
	Venues []PairVenueConfig `yaml:"venues"`
}

// PairVenueConfig anota un venue con el enrutado a usar para el par.
type PairVenueConfig struct {
	Venue   string `yaml:"venue"`
	FeeTier uint32 `yaml:"fee_tier,omitempty"` // familias concentradas
	BinStep uint16 `yaml:"bin_step,omitempty"` // familia liquidity-book
}

// StorageConfig controla dónde se persisten resúmenes y contadores.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío para desactivar
}

// RecordLogConfig controla el registro durable append-only.
type RecordLogConfig struct {
	Dir          string `yaml:"dir"`
	MaxFiles     int    `yaml:"max_files"`
	MaxFileBytes int64  `yaml:"max_file_bytes"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug | info | warn | error
	Format     string `yaml:"format"` // text | json
	File       string `yaml:"file"`   // vacío = solo stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe. Las variables de entorno sobreescriben las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// PollInterval devuelve la cadencia de sondeo como time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Chain.PollIntervalSeconds) * time.Second
}

// PaceDelay devuelve el retardo entre quotes como time.Duration.
func (c *Config) PaceDelay() time.Duration {
	return time.Duration(c.Monitor.PaceMillis) * time.Millisecond
}

// AlertCooldown devuelve la ventana de deduplicación como time.Duration.
func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.Monitor.AlertCooldownSecs) * time.Second
}

// BuildPairs resuelve los símbolos y nombres de la configuración en los
// objetos de dominio, validando todas las referencias cruzadas.
func (c *Config) BuildPairs() ([]*domain.TradingPair, error) {
	assets := make(map[string]*domain.Asset, len(c.Assets))
	for _, a := range c.Assets {
		if !common.IsHexAddress(a.Address) {
			return nil, fmt.Errorf("config.BuildPairs: asset %s: dirección inválida %q", a.Symbol, a.Address)
		}
		assets[a.Symbol] = &domain.Asset{
			Symbol:   a.Symbol,
			Address:  common.HexToAddress(a.Address),
			Decimals: a.Decimals,
			OracleID: a.OracleID,
		}
	}

	venues := make(map[string]domain.Venue, len(c.Venues))
	for _, v := range c.Venues {
		family, ok := domain.ParseAMMFamily(v.Family)
		if !ok {
			return nil, fmt.Errorf("config.BuildPairs: venue %s: familia desconocida %q", v.Name, v.Family)
		}
		if !common.IsHexAddress(v.Quoter) {
			return nil, fmt.Errorf("config.BuildPairs: venue %s: quoter inválido %q", v.Name, v.Quoter)
		}
		venues[v.Name] = domain.Venue{
			Name:   v.Name,
			Family: family,
			Quoter: common.HexToAddress(v.Quoter),
		}
	}

	pairs := make([]*domain.TradingPair, 0, len(c.Pairs))
	for _, p := range c.Pairs {
		base, ok := assets[p.Base]
		if !ok {
			return nil, fmt.Errorf("config.BuildPairs: par %s/%s: asset %q no declarado", p.Base, p.Quote, p.Base)
		}
		quote, ok := assets[p.Quote]
		if !ok {
			return nil, fmt.Errorf("config.BuildPairs: par %s/%s: asset %q no declarado", p.Base, p.Quote, p.Quote)
		}
		if len(p.Venues) < 2 {
			return nil, fmt.Errorf("config.BuildPairs: par %s/%s: hacen falta al menos 2 venues", p.Base, p.Quote)
		}

		pair := &domain.TradingPair{Token0: base, Token1: quote}
		for _, pv := range p.Venues {
			venue, ok := venues[pv.Venue]
			if !ok {
				return nil, fmt.Errorf("config.BuildPairs: par %s/%s: venue %q no declarado", p.Base, p.Quote, pv.Venue)
			}
			pair.Venues = append(pair.Venues, domain.PairVenue{
				Venue: venue,
				Route: domain.Route{FeeTier: pv.FeeTier, BinStep: pv.BinStep},
			})
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

// validate comprueba lo imprescindible para arrancar.
func (c *Config) validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("config: chain.rpc_url es obligatorio (o variable RPC_URL)")
	}
	if len(c.Pairs) == 0 {
		return fmt.Errorf("config: hace falta al menos un par")
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ORACLE_BASE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}
	if v := os.Getenv("GAS_COST_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitor.GasCostUSD = f
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Chain.PollIntervalSeconds <= 0 {
		cfg.Chain.PollIntervalSeconds = 4
	}
	if cfg.Chain.RPCRatePerSec <= 0 {
		cfg.Chain.RPCRatePerSec = 10
	}
	if len(cfg.Monitor.NotionalsUSD) == 0 {
		cfg.Monitor.NotionalsUSD = []float64{1000}
	}
	if cfg.Monitor.ThresholdPct <= 0 {
		cfg.Monitor.ThresholdPct = 0.3
	}
	if cfg.Monitor.NoiseFloorPct == 0 {
		cfg.Monitor.NoiseFloorPct = -2.0
	}
	if cfg.Monitor.GasCostUSD <= 0 {
		cfg.Monitor.GasCostUSD = 0.05
	}
	if cfg.Monitor.PaceMillis <= 0 {
		cfg.Monitor.PaceMillis = 100
	}
	if cfg.Monitor.AlertCooldownSecs <= 0 {
		cfg.Monitor.AlertCooldownSecs = 300
	}
	if cfg.Monitor.AlertMinDeltaPct <= 0 {
		cfg.Monitor.AlertMinDeltaPct = 0.1
	}
	if cfg.Monitor.OracleRefreshCycles <= 0 {
		cfg.Monitor.OracleRefreshCycles = 10
	}
	if cfg.Monitor.Workers <= 0 {
		cfg.Monitor.Workers = 4
	}
	if cfg.RecordLog.Dir == "" {
		cfg.RecordLog.Dir = "records"
	}
	if cfg.RecordLog.MaxFiles <= 0 {
		cfg.RecordLog.MaxFiles = 30
	}
	if cfg.RecordLog.MaxFileBytes <= 0 {
		cfg.RecordLog.MaxFileBytes = 64 << 20 // 64 MiB por partición diaria
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 5
	}
}
