package config

import (
	"errors"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"duoleg/internal/domain/model"
)

type Config struct {
	Server struct {
		Port int `toml:"port"`
	} `toml:"server"`

	Symbol struct {
		Default   string   `toml:"default"`
		Supported []string `toml:"supported"` // instruments allowed for futures order lookups
	} `toml:"symbol"`

	Gate struct {
		BaseURL   string `toml:"base_url"`
		APIKey    string `toml:"api_key"`
		APISecret string `toml:"api_secret"`
	} `toml:"gate"`

	Mexc struct {
		BaseURL         string  `toml:"base_url"`
		ContractBaseURL string  `toml:"contract_base_url"`
		WebAuthToken    string  `toml:"web_auth_token"`
		Leverage        float64 `toml:"leverage"`
	} `toml:"mexc"`

	Execution struct {
		MarginPct    float64 `toml:"margin_pct"`    // price offset away from the touch, percent
		MaxDriftPct  float64 `toml:"max_drift_pct"` // 0 disables the precheck staleness guard
		HTTPTimeoutS int     `toml:"http_timeout_s"`
	} `toml:"execution"`

	Reconcile struct {
		IntervalS int `toml:"interval_s"`
		// ManualNotFound leaves a spot order that disappears from the
		// book for manual reconciliation instead of assuming it filled.
		ManualNotFound bool `toml:"manual_not_found"`
	} `toml:"reconcile"`

	Storage struct {
		Driver      string `toml:"driver"` // "sqlite" or "postgres"
		SQLitePath  string `toml:"sqlite_path"`
		PostgresDSN string `toml:"postgres_dsn"`
	} `toml:"storage"`

	Redis struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
		Prefix  string `toml:"prefix"`
		TTLSec  int    `toml:"ttl_s"`
	} `toml:"redis"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if strings.TrimSpace(cfg.Symbol.Default) == "" {
		cfg.Symbol.Default = "WMTX_USDT"
	}
	if len(cfg.Symbol.Supported) == 0 {
		cfg.Symbol.Supported = []string{"BOXCAT_USDT", "WMTX_USDT", "ACS_USDT"}
	}
	if cfg.Gate.BaseURL == "" {
		cfg.Gate.BaseURL = "https://api.gateio.ws"
	}
	if cfg.Mexc.BaseURL == "" {
		cfg.Mexc.BaseURL = "https://futures.mexc.com"
	}
	if cfg.Mexc.ContractBaseURL == "" {
		cfg.Mexc.ContractBaseURL = "https://contract.mexc.com"
	}
	if cfg.Mexc.Leverage <= 0 {
		cfg.Mexc.Leverage = 1
	}
	if cfg.Execution.MarginPct <= 0 {
		cfg.Execution.MarginPct = 10
	}
	if cfg.Execution.HTTPTimeoutS <= 0 {
		cfg.Execution.HTTPTimeoutS = 8
	}
	if cfg.Reconcile.IntervalS <= 0 {
		cfg.Reconcile.IntervalS = 4
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/app.db"
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = "duoleg"
	}
	if cfg.Redis.TTLSec <= 0 {
		cfg.Redis.TTLSec = 30
	}
	cfg.Symbol.Default = strings.ToUpper(strings.TrimSpace(cfg.Symbol.Default))
	cfg.Symbol.Supported = normalizeSymbols(cfg.Symbol.Supported)
}

func validate(cfg *Config) error {
	if !model.ValidSymbol(cfg.Symbol.Default) {
		return errors.New("symbol.default must be BASE_QUOTE")
	}
	switch cfg.Storage.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(cfg.Storage.PostgresDSN) == "" {
			return errors.New("storage.postgres_dsn empty but driver is postgres")
		}
	default:
		return errors.New("storage.driver must be sqlite or postgres")
	}
	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	return nil
}

// HTTPTimeout is the shared outbound venue-call timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.Execution.HTTPTimeoutS) * time.Second
}

// PollInterval is the reconcile tick.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Reconcile.IntervalS) * time.Second
}

// RedisTTL is the quote-cache expiry.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSec) * time.Second
}

func normalizeSymbols(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		u := strings.ToUpper(strings.TrimSpace(s))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
