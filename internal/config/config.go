// Package config loads process configuration from the environment and an
// optional config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Formula table sources
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Environment keys
const (
	KeyHTTPAddr        = "HTTP_ADDR"
	KeyFormulaSource   = "FORMULA_SOURCE"
	KeyFormulaPath     = "FORMULA_PATH"
	KeyDatabaseURL     = "DATABASE_URL"
	KeyCORSOrigins     = "CORS_ORIGINS"
	KeyRequestTimeout  = "REQUEST_TIMEOUT"
	KeyFormulaCacheTTL = "FORMULA_CACHE_TTL"
	KeyChecksFile      = "CHECKS_FILE"
	KeyConfigFile      = "CONFIG_FILE"
)

// Config is the resolved configuration of one process
type Config struct {
	HTTPAddr        string
	FormulaSource   string
	FormulaPath     string
	DatabaseURL     string
	CORSOrigins     []string
	RequestTimeout  time.Duration
	FormulaCacheTTL time.Duration
	ChecksFile      string
}

// New returns a viper instance with defaults and environment binding.
// Callers may bind command-line flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyFormulaSource, SourceCSV)
	v.SetDefault(KeyFormulaPath, "data/ivf_success_formulas.csv")
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyCORSOrigins, "*")
	v.SetDefault(KeyRequestTimeout, "60s")
	v.SetDefault(KeyFormulaCacheTTL, "0s")
	v.SetDefault(KeyChecksFile, "")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	return v
}

// Load reads the optional CONFIG_FILE and resolves every setting.
// Environment variables override file values.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		HTTPAddr:        v.GetString(KeyHTTPAddr),
		FormulaSource:   strings.ToLower(strings.TrimSpace(v.GetString(KeyFormulaSource))),
		FormulaPath:     v.GetString(KeyFormulaPath),
		DatabaseURL:     v.GetString(KeyDatabaseURL),
		CORSOrigins:     splitList(v.GetString(KeyCORSOrigins)),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
		FormulaCacheTTL: v.GetDuration(KeyFormulaCacheTTL),
		ChecksFile:      v.GetString(KeyChecksFile),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv is Load over a fresh environment-bound instance
func FromEnv() (*Config, error) {
	return Load(New())
}

// Validate checks that the chosen formula source has what it needs
func (c *Config) Validate() error {
	switch c.FormulaSource {
	case SourceCSV, SourceSQLite:
		if c.FormulaPath == "" {
			return fmt.Errorf("%s is required when %s=%s", KeyFormulaPath, KeyFormulaSource, c.FormulaSource)
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s is required when %s=%s", KeyDatabaseURL, KeyFormulaSource, c.FormulaSource)
		}
	default:
		return fmt.Errorf("unsupported %s %q (want %s, %s or %s)", KeyFormulaSource, c.FormulaSource, SourceCSV, SourcePostgres, SourceSQLite)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyRequestTimeout, c.RequestTimeout)
	}
	if c.FormulaCacheTTL < 0 {
		return fmt.Errorf("%s must not be negative, got %s", KeyFormulaCacheTTL, c.FormulaCacheTTL)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
