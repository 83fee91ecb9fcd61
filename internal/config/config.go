// Package config loads bot configuration from an INI file first, then lets
// environment variables override any key, using spf13/viper for both.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BuySignalParams configures IndicatorWorker's EMA/RSI buy-signal filter.
type BuySignalParams struct {
	EMAFast     int     `mapstructure:"ema_fast"`
	EMASlow     int     `mapstructure:"ema_slow"`
	RSIPeriod   int     `mapstructure:"rsi_period"`
	RSIOversold float64 `mapstructure:"rsi_oversold"`
}

// SafetyFilters gates which markets SymbolManager considers safe to trade.
type SafetyFilters struct {
	ExcludeWarning  bool `mapstructure:"exclude_warning"`
	ExcludeSmallAcc bool `mapstructure:"exclude_small_acc"`
}

// WebSocketConfig configures Ingress's streaming connections.
type WebSocketConfig struct {
	Channels         []string      `mapstructure:"channels"`
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	MaxBackoff       time.Duration `mapstructure:"max_backoff"`
}

// StrategyConfig is a strategy's tunable parameters. SYMBOL_SPECIFIC_CONFIG
// in original_source overrides a package-wide default per symbol; Config
// reproduces that via StrategyConfigFor.
type StrategyConfig struct {
	Strategy       string  `mapstructure:"strategy"`
	Window         int     `mapstructure:"window"`
	TakeProfitPct  float64 `mapstructure:"take_profit_pct"`
	StopLossPct    float64 `mapstructure:"stop_loss_pct"`
	MaxSpread      float64 `mapstructure:"max_allowed_spread"`
	FastPeriod     int     `mapstructure:"fast_period"`
	SlowPeriod     int     `mapstructure:"slow_period"`
	RSIPeriod      int     `mapstructure:"rsi_period"`
	OversoldLevel  float64 `mapstructure:"oversold_level"`
	OverboughtLvl  float64 `mapstructure:"overbought_level"`

	TrailingStopEnabled     bool      `mapstructure:"trailing_stop_enabled"`
	TrailingStopPct         float64   `mapstructure:"trailing_stop_pct"`
	TrailingActivationPct   float64   `mapstructure:"trailing_activation_pct"`
	PartialCloseEnabled     bool      `mapstructure:"partial_close_enabled"`
	PartialCloseLevels      []float64 `mapstructure:"partial_close_levels"`
	PartialCloseRatios      []float64 `mapstructure:"partial_close_ratios"`
}

// Config is the fully resolved bot configuration.
type Config struct {
	ExchangeAccessKey string `mapstructure:"exchange_access_key"`
	ExchangeSecretKey string `mapstructure:"exchange_secret_key"`

	Symbols             []string        `mapstructure:"symbols"`
	TopNSymbols         int             `mapstructure:"top_n_symbols"`
	MinSymbolStableSec  int             `mapstructure:"min_symbol_stable_sec"`
	SafetyFilters       SafetyFilters   `mapstructure:"safety_filters"`
	BuySignalParams     BuySignalParams `mapstructure:"buy_signal_params"`
	WebSocket           WebSocketConfig `mapstructure:"websocket"`

	DefaultStrategyConfig StrategyConfig             `mapstructure:"default_strategy"`
	SymbolStrategyConfig  map[string]StrategyConfig `mapstructure:"symbol_strategy"`

	MaxPositionKRW        map[string]float64 `mapstructure:"max_position_krw"`
	DefaultMaxPositionKRW float64            `mapstructure:"default_max_position_krw"`
	MaxTotalPositionKRW   float64            `mapstructure:"max_total_position_krw"`
	MaxConcurrentPositions int               `mapstructure:"max_concurrent_positions"`
	DailyLossLimitKRW     float64            `mapstructure:"daily_loss_limit_krw"`
	MaxCoinRatio          float64            `mapstructure:"max_coin_ratio"`

	RedisAddr      string `mapstructure:"redis_addr"`
	CommandChannel string `mapstructure:"command_channel"`
	NotifyChannel  string `mapstructure:"notify_channel"`

	TradeLogDSN string `mapstructure:"trade_log_dsn"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("top_n_symbols", 3)
	v.SetDefault("min_symbol_stable_sec", 600)
	v.SetDefault("safety_filters.exclude_warning", true)
	v.SetDefault("safety_filters.exclude_small_acc", true)

	v.SetDefault("buy_signal_params.ema_fast", 20)
	v.SetDefault("buy_signal_params.ema_slow", 50)
	v.SetDefault("buy_signal_params.rsi_period", 14)
	v.SetDefault("buy_signal_params.rsi_oversold", 30.0)

	v.SetDefault("websocket.channels", []string{"trade", "depth"})
	v.SetDefault("websocket.heartbeat_timeout", "30s")
	v.SetDefault("websocket.max_retries", -1)
	v.SetDefault("websocket.backoff_base", "1s")
	v.SetDefault("websocket.max_backoff", "32s")

	v.SetDefault("default_strategy.strategy", "scalping")
	v.SetDefault("default_strategy.window", 5)
	v.SetDefault("default_strategy.take_profit_pct", 0.5)
	v.SetDefault("default_strategy.stop_loss_pct", 1.0)

	v.SetDefault("default_max_position_krw", 100_000.0)
	v.SetDefault("max_total_position_krw", 500_000.0)
	v.SetDefault("max_concurrent_positions", 2)
	v.SetDefault("daily_loss_limit_krw", 100_000.0)
	v.SetDefault("max_coin_ratio", 0.8)

	v.SetDefault("command_channel", "trader:commands")
	v.SetDefault("notify_channel", "trader:notifications")
}

// Load resolves configuration from iniPath (if non-empty and present) first,
// then overlays any matching environment variable, e.g. SYMBOLS,
// BUY_SIGNAL_PARAMS_EMA_FAST, MAX_TOTAL_POSITION_KRW. Keys that have neither
// a default nor an explicit binding below (the per-symbol maps and the
// optional default_strategy fields) are read from the INI file only.
func Load(iniPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if iniPath != "" {
		v.SetConfigFile(iniPath)
		v.SetConfigType("ini")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so top-level keys with
	// no default are bound to their environment variables explicitly.
	for _, key := range []string{"exchange_access_key", "exchange_secret_key", "symbols", "redis_addr", "trade_log_dsn"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"KRW-BTC", "KRW-ETH"}
	}

	return &cfg, nil
}

// StrategyConfigFor layers the symbol-specific override, if any, over the
// package-wide default strategy config.
func (c *Config) StrategyConfigFor(symbol string) StrategyConfig {
	merged := c.DefaultStrategyConfig
	override, ok := c.SymbolStrategyConfig[symbol]
	if !ok {
		return merged
	}

	if override.Strategy != "" {
		merged.Strategy = override.Strategy
	}
	if override.Window != 0 {
		merged.Window = override.Window
	}
	if override.TakeProfitPct != 0 {
		merged.TakeProfitPct = override.TakeProfitPct
	}
	if override.StopLossPct != 0 {
		merged.StopLossPct = override.StopLossPct
	}
	if override.MaxSpread != 0 {
		merged.MaxSpread = override.MaxSpread
	}
	if override.FastPeriod != 0 {
		merged.FastPeriod = override.FastPeriod
	}
	if override.SlowPeriod != 0 {
		merged.SlowPeriod = override.SlowPeriod
	}
	if override.RSIPeriod != 0 {
		merged.RSIPeriod = override.RSIPeriod
	}
	if override.OversoldLevel != 0 {
		merged.OversoldLevel = override.OversoldLevel
	}
	if override.OverboughtLvl != 0 {
		merged.OverboughtLvl = override.OverboughtLvl
	}
	merged.TrailingStopEnabled = override.TrailingStopEnabled
	if override.TrailingStopPct != 0 {
		merged.TrailingStopPct = override.TrailingStopPct
	}
	if override.TrailingActivationPct != 0 {
		merged.TrailingActivationPct = override.TrailingActivationPct
	}
	merged.PartialCloseEnabled = override.PartialCloseEnabled
	if len(override.PartialCloseLevels) > 0 {
		merged.PartialCloseLevels = override.PartialCloseLevels
	}
	if len(override.PartialCloseRatios) > 0 {
		merged.PartialCloseRatios = override.PartialCloseRatios
	}

	return merged
}

// MaxPositionKRWFor returns the per-symbol order ceiling, falling back to
// the package-wide default for newly added symbols.
func (c *Config) MaxPositionKRWFor(symbol string) float64 {
	if v, ok := c.MaxPositionKRW[symbol]; ok {
		return v
	}
	return c.DefaultMaxPositionKRW
}
