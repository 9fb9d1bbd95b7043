// Package bootstrap builds the formula table and scoring engine described
// by a Config.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/liamcoop/ivfsuccess/checks"
	"github.com/liamcoop/ivfsuccess/formulas"
	"github.com/liamcoop/ivfsuccess/internal/config"
	"github.com/liamcoop/ivfsuccess/internal/logger"
	"github.com/liamcoop/ivfsuccess/scoring"
)

// OpenSource returns the row source for cfg and a function releasing it
func OpenSource(ctx context.Context, cfg *config.Config) (formulas.RowSource, func() error, error) {
	noop := func() error { return nil }

	switch cfg.FormulaSource {
	case config.SourceCSV:
		return formulas.NewCSVSource(cfg.FormulaPath), noop, nil
	case config.SourceSQLite:
		src, err := formulas.OpenSQLSource(ctx, formulas.DriverSQLite, "file:"+cfg.FormulaPath)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case config.SourcePostgres:
		src, err := formulas.OpenSQLSource(ctx, formulas.DriverPostgres, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported formula source %q", cfg.FormulaSource)
	}
}

// LoadTable reads and validates the formula table
func LoadTable(ctx context.Context, cfg *config.Config) (*formulas.Table, error) {
	src, closeSource, err := OpenSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open formula source: %w", err)
	}
	defer closeSource()

	start := time.Now()
	table, err := formulas.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	logger.Info("formula table loaded",
		"source", cfg.FormulaSource,
		"formulas", table.Len(),
		"duration", time.Since(start).String(),
	)
	return table, nil
}

// NewEngine loads the table and compiles the plausibility checks
func NewEngine(ctx context.Context, cfg *config.Config) (*scoring.Engine, error) {
	table, err := LoadTable(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var extra []string
	if cfg.ChecksFile != "" {
		extra = append(extra, cfg.ChecksFile)
	}
	checker, err := checks.NewDefaultChecker(extra...)
	if err != nil {
		return nil, fmt.Errorf("compile plausibility checks: %w", err)
	}

	cache := scoring.NewInMemoryRecordCache(scoring.CacheConfig{TTL: cfg.FormulaCacheTTL})
	return scoring.NewEngineWithChecker(table, checker, cache)
}
