package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"fundarb/internal/domain/symbol"
)

type Config struct {
	App struct {
		Account          string  `toml:"account"`
		InitialCash      float64 `toml:"initial_cash"`
		SnapshotEveryMin int     `toml:"snapshot_every_min"`
		LogLevel         string  `toml:"log_level"`
	} `toml:"app"`

	HTTP struct {
		Enabled bool   `toml:"enabled"`
		Addr    string `toml:"addr"`
	} `toml:"http"`

	Symbols struct {
		List []string `toml:"list"`
	} `toml:"symbols"`

	Arbitrage struct {
		FeeRate            float64 `toml:"fee_rate"`
		FundingPeriodHours float64 `toml:"funding_period_hours"`
		SpreadThreshold    float64 `toml:"spread_threshold"`
	} `toml:"arbitrage"`

	// Risk 开仓风控，0 表示不限制
	Risk struct {
		MaxOrderNotionalUsd  float64 `toml:"max_order_notional_usd"`
		MaxTotalNotionalUsd  float64 `toml:"max_total_notional_usd"`
		MaxPositionsPerAsset int     `toml:"max_positions_per_asset"`
		MaxLeverage          float64 `toml:"max_leverage"`
	} `toml:"risk"`

	Exchange struct {
		Binance struct {
			Enabled bool   `toml:"enabled"`
			WsURL   string `toml:"ws_url"`
			RestURL string `toml:"rest_url"`
		} `toml:"binance"`

		Bybit struct {
			Enabled bool   `toml:"enabled"`
			RestURL string `toml:"rest_url"`
		} `toml:"bybit"`
	} `toml:"exchange"`

	Funding struct {
		SyncEveryMin int `toml:"sync_every_min"`
	} `toml:"funding"`

	Storage struct {
		SQLite struct {
			Enabled bool   `toml:"enabled"`
			Path    string `toml:"path"`
		} `toml:"sqlite"`

		Redis struct {
			Enabled         bool   `toml:"enabled"`
			Addr            string `toml:"addr"`
			Password        string `toml:"password"`
			DB              int    `toml:"db"`
			Prefix          string `toml:"prefix"`
			TTLSeconds      int    `toml:"ttl_seconds"`
			SnapshotStream  string `toml:"snapshot_stream"`
			SnapshotChannel string `toml:"snapshot_channel"`
		} `toml:"redis"`

		Postgres struct {
			Enabled bool   `toml:"enabled"`
			DSN     string `toml:"dsn"`
		} `toml:"postgres"`
	} `toml:"storage"`
}

// 环境变量覆盖（敏感信息不写进配置文件）
const (
	EnvRedisPassword = "FUNDARB_REDIS_PASSWORD"
	EnvPostgresDSN   = "FUNDARB_POSTGRES_DSN"
	EnvHTTPAddr      = "FUNDARB_HTTP_ADDR"
)

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FundingPeriod 资金费结算周期
func (c *Config) FundingPeriod() time.Duration {
	return time.Duration(c.Arbitrage.FundingPeriodHours * float64(time.Hour))
}

func (c *Config) SnapshotEvery() time.Duration {
	return time.Duration(c.App.SnapshotEveryMin) * time.Minute
}

func (c *Config) FundingSyncEvery() time.Duration {
	return time.Duration(c.Funding.SyncEveryMin) * time.Minute
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvRedisPassword); v != "" {
		cfg.Storage.Redis.Password = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		cfg.HTTP.Addr = v
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.App.Account) == "" {
		cfg.App.Account = "demo"
	}
	if cfg.App.InitialCash <= 0 {
		cfg.App.InitialCash = 10000
	}
	if cfg.App.SnapshotEveryMin <= 0 {
		cfg.App.SnapshotEveryMin = 5
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Arbitrage.FeeRate <= 0 {
		cfg.Arbitrage.FeeRate = 0.0001
	}
	if cfg.Arbitrage.FundingPeriodHours <= 0 {
		cfg.Arbitrage.FundingPeriodHours = 8
	}
	if cfg.Arbitrage.SpreadThreshold <= 0 {
		cfg.Arbitrage.SpreadThreshold = 0.0001
	}
	if cfg.Exchange.Binance.RestURL == "" {
		cfg.Exchange.Binance.RestURL = "https://fapi.binance.com"
	}
	if cfg.Exchange.Bybit.RestURL == "" {
		cfg.Exchange.Bybit.RestURL = "https://api.bybit.com"
	}
	if cfg.Funding.SyncEveryMin <= 0 {
		cfg.Funding.SyncEveryMin = 10
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = "data/fundarb.db"
	}
	if cfg.Storage.Redis.Prefix == "" {
		cfg.Storage.Redis.Prefix = "fundarb:"
	}
	if cfg.Storage.Redis.TTLSeconds <= 0 {
		cfg.Storage.Redis.TTLSeconds = 3600
	}
	if cfg.Storage.Redis.SnapshotStream == "" {
		cfg.Storage.Redis.SnapshotStream = "fundarb:snapshots"
	}
	if cfg.Storage.Redis.SnapshotChannel == "" {
		cfg.Storage.Redis.SnapshotChannel = "fundarb:snapshots:pub"
	}
}

func validate(cfg *Config) error {
	cfg.Symbols.List = symbol.NormalizeList(cfg.Symbols.List)
	if len(cfg.Symbols.List) == 0 {
		return errors.New("symbols.list is empty")
	}
	if cfg.Arbitrage.FeeRate >= 1 {
		return fmt.Errorf("arbitrage.fee_rate %v must be < 1", cfg.Arbitrage.FeeRate)
	}

	if cfg.Risk.MaxOrderNotionalUsd < 0 || cfg.Risk.MaxTotalNotionalUsd < 0 ||
		cfg.Risk.MaxPositionsPerAsset < 0 || cfg.Risk.MaxLeverage < 0 {
		return errors.New("risk limits must be >= 0")
	}

	if cfg.Exchange.Binance.Enabled && strings.TrimSpace(cfg.Exchange.Binance.WsURL) == "" {
		return errors.New("exchange.binance.ws_url empty but enabled")
	}
	if cfg.Storage.Redis.Enabled && strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
		return errors.New("storage.redis.addr empty but enabled")
	}
	if cfg.Storage.Postgres.Enabled && strings.TrimSpace(cfg.Storage.Postgres.DSN) == "" {
		return errors.New("storage.postgres.dsn empty but enabled")
	}
	return nil
}
