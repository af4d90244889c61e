package config

import (
	"cmp"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/STTM-NSU/market-sync/internal/model"
	"gopkg.in/yaml.v3"
)

const (
	_apiBaseURLEnv = "MARKET_API_BASE_URL"
	_portEnv       = "MARKET_SYNC_PORT"
	_logLevelEnv   = "MARKET_SYNC_LOG_LEVEL"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

const (
	_portDefault       = "8080"
	_logLevelDefault   = "info"
	_maxSizeMBDefault  = 10
	_maxBackupsDefault = 5
	_maxAgeDaysDefault = 7
)

func (c *LogConfig) Setup() {
	c.Level = cmp.Or(c.Level, _logLevelDefault)
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = _maxSizeMBDefault
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = _maxBackupsDefault
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = _maxAgeDaysDefault
	}
}

func (c *ServerConfig) Setup() error {
	c.Port = cmp.Or(c.Port, _portDefault)
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("%w: invalid server port %q", err, c.Port)
	}
	return nil
}

type APIConfig struct {
	// BaseURL of the dashboard backend. Empty means the backend runs next to
	// the dashboard on its default address.
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

const (
	_baseURLDefault    = "http://localhost:8001"
	_apiTimeoutDefault = 10 * time.Second
)

func (c *APIConfig) Setup() error {
	c.BaseURL = cmp.Or(c.BaseURL, _baseURLDefault)
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("%w: invalid api base url", err)
	}
	if c.Timeout <= 0 {
		c.Timeout = _apiTimeoutDefault
	}
	return nil
}

type StoreConfig struct {
	PollInterval    time.Duration        `yaml:"poll_interval"`
	DefaultInstType model.InstrumentType `yaml:"default_inst_type"` // used by polling when no tickers are loaded
	HistoryInstType model.InstrumentType `yaml:"history_inst_type"`
	FavoritesKey    string               `yaml:"favorites_key"`
	SelectedSymbol  string               `yaml:"selected_symbol"`
}

const (
	_pollIntervalDefault    = 3 * time.Second
	_defaultInstTypeDefault = model.Swap
	_historyInstTypeDefault = model.Swap
	_favoritesKeyDefault    = "okx_favorites"
	_selectedSymbolDefault  = "BTC-USDT"
)

func (c *StoreConfig) Setup() {
	if c.PollInterval <= 0 {
		c.PollInterval = _pollIntervalDefault
	}
	c.DefaultInstType = cmp.Or(c.DefaultInstType, _defaultInstTypeDefault)
	c.HistoryInstType = cmp.Or(c.HistoryInstType, _historyInstTypeDefault)
	c.FavoritesKey = cmp.Or(c.FavoritesKey, _favoritesKeyDefault)
	c.SelectedSymbol = cmp.Or(c.SelectedSymbol, _selectedSymbolDefault)
}

type StorageDriver string

const (
	Memory   StorageDriver = "memory"
	File     StorageDriver = "file"
	Postgres StorageDriver = "postgres"
	SQLite   StorageDriver = "sqlite"
)

type StorageConfig struct {
	Driver StorageDriver `yaml:"driver"`
	// Path is a directory for the file driver and a database file for sqlite.
	// Postgres is configured through POSTGRES_* environment variables.
	Path string `yaml:"path"`
}

const (
	_storageDriverDefault = File
	_fileStoragePath      = "./data"
	_sqliteStoragePath    = "./data/market-sync.db"
)

func (c *StorageConfig) Setup() error {
	c.Driver = cmp.Or(c.Driver, _storageDriverDefault)
	switch c.Driver {
	case File:
		c.Path = cmp.Or(c.Path, _fileStoragePath)
	case SQLite:
		c.Path = cmp.Or(c.Path, _sqliteStoragePath)
	case Memory, Postgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Driver)
	}
	return nil
}

func (c *Config) ValidateAndSetup() error {
	if err := c.API.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup api", err)
	}
	c.Store.Setup()
	if err := c.Storage.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup storage", err)
	}
	if err := c.Server.Setup(); err != nil {
		return fmt.Errorf("%w: can't setup server", err)
	}
	c.Log.Setup()
	return nil
}

// applyEnv overrides file values with the process environment.
func (c *Config) applyEnv() {
	c.API.BaseURL = cmp.Or(os.Getenv(_apiBaseURLEnv), c.API.BaseURL)
	c.Server.Port = cmp.Or(os.Getenv(_portEnv), c.Server.Port)
	c.Log.Level = cmp.Or(os.Getenv(_logLevelEnv), c.Log.Level)
}

// LoadConfig reads the yaml file, applies env overrides and defaults. A
// missing file is not an error: env and defaults are enough to run.
func LoadConfig(filename string) (Config, error) {
	var cfg Config
	input, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(input, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: can't unmarshal config", err)
		}
	case os.IsNotExist(err):
	default:
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	cfg.applyEnv()

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
