package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alejandrodnm/dexarb/config"
	"github.com/alejandrodnm/dexarb/internal/adapters/evm"
	"github.com/alejandrodnm/dexarb/internal/adapters/notify"
	"github.com/alejandrodnm/dexarb/internal/adapters/oracle"
	"github.com/alejandrodnm/dexarb/internal/adapters/recordlog"
	"github.com/alejandrodnm/dexarb/internal/adapters/storage"
	"github.com/alejandrodnm/dexarb/internal/monitor"
	"github.com/alejandrodnm/dexarb/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one observation cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print final summary as a full table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	pairs, err := cfg.BuildPairs()
	if err != nil {
		slog.Error("invalid pair configuration", "err", err)
		os.Exit(1)
	}

	slog.Info("dexarb starting",
		"config", *configPath,
		"chain", cfg.Chain.Name,
		"pairs", len(pairs),
		"poll", cfg.PollInterval(),
		"once", *once,
	)

	client, err := evm.Dial(cfg.Chain.RPCURL, cfg.Chain.RPCRatePerSec)
	if err != nil {
		slog.Error("failed to connect to RPC node", "err", err)
		os.Exit(1)
	}
	quoter := evm.NewQuoter(client)

	priceOracle := oracle.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.RatePerSec)

	recorder, err := recordlog.New(recordlog.Config{
		Dir:          cfg.RecordLog.Dir,
		MaxFiles:     cfg.RecordLog.MaxFiles,
		MaxFileBytes: cfg.RecordLog.MaxFileBytes,
	})
	if err != nil {
		slog.Error("failed to open record log", "err", err, "dir", cfg.RecordLog.Dir)
		os.Exit(1)
	}
	defer recorder.Close()

	var store *storage.SQLiteStore
	if cfg.Storage.DSN != "" {
		store, err = storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()
	}

	notifier := notify.NewConsole(*table)

	monCfg := monitor.DefaultConfig()
	monCfg.PollInterval = cfg.PollInterval()
	monCfg.Notionals = cfg.Monitor.NotionalsUSD
	monCfg.ThresholdPct = cfg.Monitor.ThresholdPct
	monCfg.ThresholdOnAbs = cfg.Monitor.ThresholdOnAbs
	monCfg.NoiseFloorPct = cfg.Monitor.NoiseFloorPct
	monCfg.GasCostUSD = cfg.Monitor.GasCostUSD
	monCfg.PaceDelay = cfg.PaceDelay()
	monCfg.AlertCooldown = cfg.AlertCooldown()
	monCfg.AlertMinDelta = cfg.Monitor.AlertMinDeltaPct
	monCfg.OracleRefreshCycles = cfg.Monitor.OracleRefreshCycles
	monCfg.Workers = cfg.Monitor.Workers

	m := monitor.New(monCfg, pairs, quoter, client, priceOracle, recorder, cycleStore(store), notifier)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *once {
		if err := m.RunOnce(ctx); err != nil {
			slog.Error("cycle failed", "err", err)
			os.Exit(1)
		}
		return
	}

	if err := m.Run(ctx); err != nil {
		slog.Error("monitor exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("dexarb stopped cleanly")
}

// cycleStore evita pasar un puntero nil tipado como interfaz no-nil.
func cycleStore(s *storage.SQLiteStore) ports.CycleStore {
	if s == nil {
		return nil
	}
	return s
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}
