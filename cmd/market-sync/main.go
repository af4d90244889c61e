package main

import (
	"cmp"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/STTM-NSU/market-sync/internal/config"
	"github.com/STTM-NSU/market-sync/internal/exchange"
	"github.com/STTM-NSU/market-sync/internal/logger"
	"github.com/STTM-NSU/market-sync/internal/market"
	"github.com/STTM-NSU/market-sync/internal/postgres"
	"github.com/STTM-NSU/market-sync/internal/server"
	"github.com/STTM-NSU/market-sync/internal/sqlite"
	"github.com/STTM-NSU/market-sync/internal/storage"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
)

const (
	_cfgFilePathEnv = "MARKET_SYNC_CONFIG"
	_cfgFilePath    = "./configs/market-sync.yaml"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("%s", err)
	}
}

// run returns instead of exiting so deferred log sync, polling stop and
// storage close always happen.
func run() error {
	// .env may set the config path, so it is read before the logger exists.
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig(cmp.Or(os.Getenv(_cfgFilePathEnv), _cfgFilePath))
	if err != nil {
		return fmt.Errorf("%w: can't load config", err)
	}

	zapLogger, loggerSync, err := logger.NewZapLoggerWithFile(logger.ParseLevel(cfg.Log.Level), &logger.FileOutput{
		Path:       cfg.Log.OutputFile,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("%w: can't init logger", err)
	}
	defer loggerSync()

	if envErr != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStorage, err := newStorage(ctx, cfg.Storage, zapLogger)
	if err != nil {
		zapLogger.Errorf("%s: can't init %s storage", err, cfg.Storage.Driver)
		return fmt.Errorf("%w: can't init %s storage", err, cfg.Storage.Driver)
	}
	defer closeStorage()

	api := exchange.NewExchangeService(cfg.API, zapLogger)
	store := market.NewStore(ctx, cfg.Store, api, st, zapLogger)

	store.StartPolling(ctx)
	defer store.StopPolling()

	handler := server.NewHandler(ctx, store, zapLogger, logger.ParseLevel(cfg.Log.Level) == logger.Debug)
	srv := server.NewHTTPServer(ctx, cfg.Server.Port, handler, zapLogger)

	zapLogger.Infof("market-sync started: backend %s, storage %s", cfg.API.BaseURL, cfg.Storage.Driver)
	if err := srv.Run(ctx); err != nil {
		zapLogger.Errorf("%s: http server stopped", err)
		return fmt.Errorf("%w: http server stopped", err)
	}
	return nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig, zapLogger logger.Logger) (storage.Storage, func(), error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Driver {
	case config.Memory:
		return storage.NewMemoryStorage(), func() {}, nil
	case config.File:
		st, err := storage.NewFileStorage(cfg.Path)
		return st, func() {}, err
	case config.SQLite:
		db, err = sqlite.NewDB(ctx, cfg.Path)
	case config.Postgres:
		pgConfig := postgres.NewConfigFromEnv().Setup()
		zapLogger.Debugf("trying to connect to db with: %s", pgConfig)
		db, err = postgres.NewDB(ctx, pgConfig)
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: can't connect to db", err)
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			zapLogger.Errorf("%s: can't close db", err)
		}
	}

	st, err := storage.NewSQLStorage(ctx, db)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return st, closeDB, nil
}
