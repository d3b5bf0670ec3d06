package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration.
type Config struct {
	IntervalSeconds int                 `yaml:"interval_seconds"`
	Series          []string            `yaml:"series"`
	Trading         TradingConfig       `yaml:"trading"`
	Detector        DetectorConfig      `yaml:"detector"`
	Risk            RiskConfig          `yaml:"risk"`
	Exits           ExitsConfig         `yaml:"exits"`
	SpreadFarming   SpreadFarmingConfig `yaml:"spread_farming"`
	API             APIConfig           `yaml:"api"`
	Storage         StorageConfig       `yaml:"storage"`
	Log             LogConfig           `yaml:"log"`
}

// TradingConfig controls sizing and capital.
type TradingConfig struct {
	Live                 bool               `yaml:"live"`
	MinBalance           float64            `yaml:"min_balance"`     // no entries below this
	DryRunBalance        float64            `yaml:"dry_run_balance"` // assumed when the account is unreadable in dry run
	MaxBet               float64            `yaml:"max_bet"`
	MaxPerMarket         float64            `yaml:"max_per_market"`
	DefaultStakePerPoint float64            `yaml:"default_stake_per_point"`
	StrategyCaps         map[string]float64 `yaml:"strategy_caps"` // mispricing | bundle_arb | spread_farming
}

// DetectorConfig holds the detection thresholds.
type DetectorConfig struct {
	Threshold        float64 `yaml:"threshold"`           // percentage points
	MinEdgeAfterCost float64 `yaml:"min_edge_after_cost"` // percentage points
	FeeBuffer        float64 `yaml:"fee_buffer"`          // probability units
	ExtremeLow       float64 `yaml:"extreme_low"`
	ExtremeHigh      float64 `yaml:"extreme_high"`
	RemoveVig        bool    `yaml:"remove_vig"`
}

// RiskConfig holds the hard limits. Zero disables a limit.
type RiskConfig struct {
	MaxPositions     int     `yaml:"max_positions"`
	MaxOrderNotional float64 `yaml:"max_order_notional"`
	MaxDailyTrades   int     `yaml:"max_daily_trades"`
	MaxDailyNotional float64 `yaml:"max_daily_notional"`
	MaxDailyLoss     float64 `yaml:"max_daily_loss"`
}

// ExitsConfig holds the position exit rules.
type ExitsConfig struct {
	TakeProfitCents int     `yaml:"take_profit_cents"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	MaxHoldHours    float64 `yaml:"max_hold_hours"`
	TickImprove     int     `yaml:"tick_improve"`
}

// SpreadFarmingConfig controls the extreme-price strategy.
type SpreadFarmingConfig struct {
	Enabled              bool    `yaml:"enabled"`
	TakeProfitTicks      int     `yaml:"take_profit_ticks"`
	TakeProfitMultiplier float64 `yaml:"take_profit_multiplier"`
}

// APIConfig holds endpoints and credentials.
type APIConfig struct {
	KalshiBase       string `yaml:"kalshi_base"`
	OddsBase         string `yaml:"odds_base"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
	KalshiKeyID      string `yaml:"-"`
	KalshiKeyPath    string `yaml:"kalshi_private_key_path"`
	KalshiPrivateKey string `yaml:"-"` // PEM contents, env only
	OddsAPIKey       string `yaml:"-"`
}

// StorageConfig controls where state is persisted.
type StorageConfig struct {
	StatsPath string `yaml:"stats_path"` // daily risk counters, JSON
	DSN       string `yaml:"dsn"`        // SQLite journal path, or ":memory:"
}

// LogConfig controls log format and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load reads the YAML file and the .env file if present. Environment values
// override the YAML for the keys they cover.
func Load(path string) (*Config, error) {
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

	return &cfg, nil
}

// Interval returns the cycle interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RequestTimeout returns the per-call timeout for outbound requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// MaxHold returns the exit max-hold duration, zero when disabled.
func (c *Config) MaxHold() time.Duration {
	return time.Duration(c.Exits.MaxHoldHours * float64(time.Hour))
}

// PrivateKeyPEM returns the Kalshi private key, inline or read from path.
func (c *Config) PrivateKeyPEM() ([]byte, error) {
	if c.API.KalshiPrivateKey != "" {
		return []byte(c.API.KalshiPrivateKey), nil
	}
	if c.API.KalshiKeyPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.API.KalshiKeyPath)
	if err != nil {
		return nil, fmt.Errorf("config.PrivateKeyPEM: read %q: %w", c.API.KalshiKeyPath, err)
	}
	return data, nil
}

// strategies are the keys accepted under trading.strategy_caps.
var strategies = map[string]bool{
	"mispricing":     true,
	"bundle_arb":     true,
	"spread_farming": true,
}

// Validate reports configuration that makes the process unable to run.
// Live trading needs venue credentials and the odds key.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Series) == 0 {
		errs = append(errs, errors.New("series: at least one series is required"))
	}
	if c.Detector.ExtremeLow >= c.Detector.ExtremeHigh {
		errs = append(errs, fmt.Errorf("detector: extreme_low %.2f must be below extreme_high %.2f",
			c.Detector.ExtremeLow, c.Detector.ExtremeHigh))
	}
	for name, v := range c.Trading.StrategyCaps {
		if !strategies[name] {
			errs = append(errs, fmt.Errorf("trading.strategy_caps.%s: unknown strategy (want mispricing, bundle_arb or spread_farming)", name))
		}
		if v < 0 {
			errs = append(errs, fmt.Errorf("trading.strategy_caps.%s: must be >= 0", name))
		}
	}
	if c.Trading.Live {
		if c.API.KalshiKeyID == "" {
			errs = append(errs, errors.New("KALSHI_API_KEY_ID is required for live trading"))
		}
		if c.API.KalshiPrivateKey == "" && c.API.KalshiKeyPath == "" {
			errs = append(errs, errors.New("KALSHI_PRIVATE_KEY or KALSHI_PRIVATE_KEY_PATH is required for live trading"))
		}
		if c.API.OddsAPIKey == "" {
			errs = append(errs, errors.New("ODDS_API_KEY is required for live trading"))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	return nil
}

// applyEnvOverrides overwrites values with environment variables when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("KALSHI_API_KEY_ID"); v != "" {
		cfg.API.KalshiKeyID = v
	}
	if v := os.Getenv("KALSHI_PRIVATE_KEY_PATH"); v != "" {
		cfg.API.KalshiKeyPath = v
	}
	if v := os.Getenv("KALSHI_PRIVATE_KEY"); v != "" {
		// .env files often carry the PEM with literal \n.
		cfg.API.KalshiPrivateKey = strings.ReplaceAll(v, `\n`, "\n")
	}
	if v := os.Getenv("ODDS_API_KEY"); v != "" {
		cfg.API.OddsAPIKey = v
	}
	if v := os.Getenv("LIVE_TRADING"); v != "" {
		if live, err := strconv.ParseBool(v); err == nil {
			cfg.Trading.Live = live
		}
	}
}

// setDefaults fills missing values with sensible ones.
func setDefaults(cfg *Config) {
	if cfg.IntervalSeconds <= 0 {
		cfg.IntervalSeconds = 300
	}
	if len(cfg.Series) == 0 {
		cfg.Series = []string{"KXNBAGAME", "KXNFLGAME"}
	}

	if cfg.Trading.MinBalance <= 0 {
		cfg.Trading.MinBalance = 10
	}
	if cfg.Trading.DryRunBalance <= 0 {
		cfg.Trading.DryRunBalance = 1000
	}
	if cfg.Trading.DefaultStakePerPoint <= 0 {
		cfg.Trading.DefaultStakePerPoint = 1
	}
	if cfg.Trading.StrategyCaps == nil {
		cfg.Trading.StrategyCaps = map[string]float64{
			"mispricing":     100,
			"bundle_arb":     50,
			"spread_farming": 25,
		}
	}

	if cfg.Detector.Threshold <= 0 {
		cfg.Detector.Threshold = 10
	}
	if cfg.Detector.FeeBuffer <= 0 {
		cfg.Detector.FeeBuffer = 0.01
	}
	if cfg.Detector.ExtremeLow <= 0 {
		cfg.Detector.ExtremeLow = 0.15
	}
	if cfg.Detector.ExtremeHigh <= 0 {
		cfg.Detector.ExtremeHigh = 0.85
	}

	if cfg.SpreadFarming.TakeProfitTicks <= 0 {
		cfg.SpreadFarming.TakeProfitTicks = 3
	}

	if cfg.Exits.TickImprove < 0 {
		cfg.Exits.TickImprove = 0
	}

	if cfg.API.KalshiBase == "" {
		cfg.API.KalshiBase = "https://api.elections.kalshi.com/trade-api/v2"
	}
	if cfg.API.OddsBase == "" {
		cfg.API.OddsBase = "https://api.the-odds-api.com/v4"
	}
	if cfg.API.TimeoutSeconds <= 0 {
		cfg.API.TimeoutSeconds = 10
	}

	if cfg.Storage.StatsPath == "" {
		cfg.Storage.StatsPath = "data/daily_stats.json"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "oddsbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
