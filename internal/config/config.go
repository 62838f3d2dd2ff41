package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"saldo/internal/core"
	"saldo/internal/ledger"
)

// Dashboard defaults.
const (
	DefaultCashSeed         = "451020.90"
	DefaultInvestmentSeed   = "4341114"
	DefaultBudgetCeiling    = "1505000"
	DefaultTransferCategory = "Investment"
)

type Config struct {
	// HTTP Server
	Port string
	// Origins allowed to call /api cross-site; empty disables CORS
	CORSAllowedOrigins []string

	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Memory backend seed
	SeedFile string

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Ledger
	BudgetCeiling    decimal.Decimal // zero or less disables budget tracking
	TransferCategory string
	Streams          []ledger.Stream
	RecentLimit      int

	// Mirror worker
	MirrorDBPath string
	SyncInterval time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	problems []string
}

type streamConfig struct {
	Name  string       `mapstructure:"name"`
	Seed  string       `mapstructure:"seed"`
	Rules []ruleConfig `mapstructure:"rules"`
}

type ruleConfig struct {
	Kind     string `mapstructure:"kind"`
	Category string `mapstructure:"category"`
	Sign     int    `mapstructure:"sign"`
}

// NewViper returns a viper instance reading environment variables and, when
// present, a YAML config file. An explicit cfgFile must exist; otherwise
// saldo.yaml is looked up in the working directory and ~/.config/saldo.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("saldo")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "saldo"))
		}
	}
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8081")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("DATA_BACKEND", "memory")
	v.SetDefault("SQLITE_DB_PATH", "./data/saldo.db")
	v.SetDefault("SEED_FILE", "./data/seed.csv")
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("AMQP_EXCHANGE", "saldo")
	v.SetDefault("AMQP_QUEUE", "transactions_appended")
	v.SetDefault("GOOGLE_SHEET_NAME", "Sheet1")
	v.SetDefault("CASH_SEED", DefaultCashSeed)
	v.SetDefault("INVESTMENT_SEED", DefaultInvestmentSeed)
	v.SetDefault("BUDGET_CEILING", DefaultBudgetCeiling)
	v.SetDefault("TRANSFER_CATEGORY", DefaultTransferCategory)
	v.SetDefault("RECENT_LIMIT", 10)
	v.SetDefault("MIRROR_DB_PATH", "./data/mirror.db")
	v.SetDefault("SYNC_INTERVAL", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// Load reads the configuration from v. Values that cannot be parsed are
// recorded and reported by Validate together with every other problem.
func Load(v *viper.Viper) *Config {
	if v == nil {
		v = viper.New()
		v.AutomaticEnv()
		setDefaults(v)
	}
	cfg := &Config{
		Port:         v.GetString("PORT"),
		DataBackend:  strings.ToLower(strings.TrimSpace(v.GetString("DATA_BACKEND"))),
		SQLiteDBPath: v.GetString("SQLITE_DB_PATH"),
		SeedFile:     v.GetString("SEED_FILE"),

		AMQPURL:      v.GetString("AMQP_URL"),
		AMQPExchange: v.GetString("AMQP_EXCHANGE"),
		AMQPQueue:    v.GetString("AMQP_QUEUE"),

		GoogleSpreadsheetID:      v.GetString("GOOGLE_SPREADSHEET_ID"),
		GoogleSheetName:          v.GetString("GOOGLE_SHEET_NAME"),
		GoogleServiceAccountJSON: v.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
		GoogleServiceAccountFile: v.GetString("GOOGLE_SERVICE_ACCOUNT_FILE"),

		MirrorDBPath: v.GetString("MIRROR_DB_PATH"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		TransferCategory: strings.TrimSpace(v.GetString("TRANSFER_CATEGORY")),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
	}

	if n, err := strconv.Atoi(strings.TrimSpace(v.GetString("RECENT_LIMIT"))); err != nil {
		cfg.problems = append(cfg.problems, fmt.Sprintf("invalid RECENT_LIMIT '%s': must be a number", v.GetString("RECENT_LIMIT")))
	} else {
		cfg.RecentLimit = n
	}

	if d, err := time.ParseDuration(strings.TrimSpace(v.GetString("SYNC_INTERVAL"))); err != nil || d <= 0 {
		cfg.problems = append(cfg.problems, fmt.Sprintf("invalid SYNC_INTERVAL '%s': must be a positive duration", v.GetString("SYNC_INTERVAL")))
	} else {
		cfg.SyncInterval = d
	}

	cfg.BudgetCeiling = cfg.decimal(v, "BUDGET_CEILING")
	cashSeed := cfg.decimal(v, "CASH_SEED")
	investSeed := cfg.decimal(v, "INVESTMENT_SEED")

	var streams []streamConfig
	if err := v.UnmarshalKey("streams", &streams); err != nil {
		cfg.problems = append(cfg.problems, fmt.Sprintf("invalid streams table: %v", err))
	}
	if len(streams) == 0 {
		if cfg.TransferCategory == "" {
			cfg.problems = append(cfg.problems, "TRANSFER_CATEGORY cannot be empty when the default streams are used")
		}
		cfg.Streams = ledger.DefaultStreams(cashSeed, investSeed, cfg.TransferCategory)
	} else {
		cfg.Streams = cfg.buildStreams(streams)
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) decimal(v *viper.Viper, key string) decimal.Decimal {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := decimal.NewFromString(raw)
	if err != nil {
		c.problems = append(c.problems, fmt.Sprintf("invalid %s '%s': must be a decimal number", key, raw))
		return decimal.Zero
	}
	return d
}

func (c *Config) buildStreams(in []streamConfig) []ledger.Stream {
	out := make([]ledger.Stream, 0, len(in))
	for _, sc := range in {
		seed := decimal.Zero
		if strings.TrimSpace(sc.Seed) != "" {
			d, err := decimal.NewFromString(strings.TrimSpace(sc.Seed))
			if err != nil {
				c.problems = append(c.problems, fmt.Sprintf("invalid seed '%s' for stream '%s'", sc.Seed, sc.Name))
			} else {
				seed = d
			}
		}
		s := ledger.Stream{Name: strings.TrimSpace(sc.Name), Seed: seed}
		for _, rc := range sc.Rules {
			r := ledger.Rule{Category: strings.TrimSpace(rc.Category), Sign: ledger.Sign(rc.Sign)}
			if strings.TrimSpace(rc.Kind) != "" {
				k, err := core.ParseKind(rc.Kind)
				if err != nil {
					c.problems = append(c.problems, fmt.Sprintf("invalid kind '%s' in stream '%s'", rc.Kind, sc.Name))
				}
				r.Kind = k
			}
			s.Rules = append(s.Rules, r)
		}
		out = append(out, s)
	}
	return out
}

// BudgetEnabled reports whether a positive budget ceiling is configured.
func (c *Config) BudgetEnabled() bool {
	return c.BudgetCeiling.IsPositive()
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	errs := append([]string(nil), c.problems...)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "sheets", "sqlite"}
	valid := false
	for _, b := range validBackends {
		if c.DataBackend == b {
			valid = true
			break
		}
	}
	if !valid {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
		}
		hasJSON := strings.TrimSpace(c.GoogleServiceAccountJSON) != ""
		hasFile := strings.TrimSpace(c.GoogleServiceAccountFile) != ""
		hasADC := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")) != ""
		if !hasJSON && !hasFile && !hasADC {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for sheets backend")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RecentLimit < 1 || c.RecentLimit > 500 {
		errs = append(errs, fmt.Sprintf("invalid recent limit %d: must be between 1 and 500", c.RecentLimit))
	}

	if len(c.Streams) == 0 {
		errs = append(errs, "at least one balance stream is required")
	}
	seen := map[string]bool{}
	for _, s := range c.Streams {
		if err := s.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
		if seen[s.Name] {
			errs = append(errs, fmt.Sprintf("duplicate stream name '%s'", s.Name))
		}
		seen[s.Name] = true
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: configuration validation failed:\n- %s", core.ErrInvalidConfig, strings.Join(errs, "\n- "))
	}
	return nil
}
