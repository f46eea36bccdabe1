package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	Chain     ChainConfig     `yaml:"chain"`
	Binance   BinanceConfig   `yaml:"binance"`
	State     StateConfig     `yaml:"state"`
	Strategy  StrategyConfig  `yaml:"strategy"`
	Risk      RiskConfig      `yaml:"risk"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	PositionManager string        `yaml:"position_manager"`
	Timeout         time.Duration `yaml:"timeout"`
}

type BinanceConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RecvWindowMS   int64         `yaml:"recv_window_ms"`
	StreamEnabled  bool          `yaml:"stream_enabled"`
	StreamURL      string        `yaml:"stream_url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type StrategyConfig struct {
	Owner          string        `yaml:"owner"`
	Symbol         string        `yaml:"symbol"`
	BaseToken      string        `yaml:"base_token"`
	USDTToken      string        `yaml:"usdt_token"`
	BaseLabel      string        `yaml:"base_label"`
	RatioThreshold float64       `yaml:"ratio_threshold"`
	DeltaThreshold float64       `yaml:"delta_threshold"`
	PollInterval   time.Duration `yaml:"poll_interval"`
}

type RiskConfig struct {
	MaxOrderQuantity float64 `yaml:"max_order_quantity"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  string `yaml:"chat_id"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	QueueSize       int           `yaml:"queue_size"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, validate(&cfg)
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 15 * time.Second
	}
	if cfg.Binance.BaseURL == "" {
		cfg.Binance.BaseURL = "https://fapi.binance.com"
	}
	if cfg.Binance.Timeout == 0 {
		cfg.Binance.Timeout = 10 * time.Second
	}
	if cfg.Binance.RecvWindowMS == 0 {
		cfg.Binance.RecvWindowMS = 5000
	}
	if cfg.Binance.StreamURL == "" {
		cfg.Binance.StreamURL = "wss://fstream.binance.com/ws"
	}
	if cfg.Binance.ReconnectDelay == 0 {
		cfg.Binance.ReconnectDelay = 3 * time.Second
	}
	if cfg.State.SQLitePath == "" {
		cfg.State.SQLitePath = "data/lp-hedge-bot.db"
	}
	if cfg.Strategy.PollInterval == 0 {
		cfg.Strategy.PollInterval = 90 * time.Second
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9090"
	}
}

func validate(cfg *Config) error {
	if cfg.Chain.RPCURL == "" {
		return errors.New("chain.rpc_url is required")
	}
	if !common.IsHexAddress(cfg.Chain.PositionManager) {
		return fmt.Errorf("chain.position_manager is not a valid address: %q", cfg.Chain.PositionManager)
	}
	if !common.IsHexAddress(cfg.Strategy.Owner) {
		return fmt.Errorf("strategy.owner is not a valid address: %q", cfg.Strategy.Owner)
	}
	if !common.IsHexAddress(cfg.Strategy.BaseToken) {
		return fmt.Errorf("strategy.base_token is not a valid address: %q", cfg.Strategy.BaseToken)
	}
	if !common.IsHexAddress(cfg.Strategy.USDTToken) {
		return fmt.Errorf("strategy.usdt_token is not a valid address: %q", cfg.Strategy.USDTToken)
	}
	if common.HexToAddress(cfg.Strategy.BaseToken) == common.HexToAddress(cfg.Strategy.USDTToken) {
		return errors.New("strategy.base_token and strategy.usdt_token must differ")
	}
	if cfg.Strategy.Symbol == "" {
		return errors.New("strategy.symbol is required")
	}
	if cfg.Strategy.DeltaThreshold <= 0 {
		return errors.New("strategy.delta_threshold must be > 0")
	}
	if cfg.Risk.MaxOrderQuantity < 0 {
		return errors.New("risk.max_order_quantity must be >= 0")
	}
	return nil
}
