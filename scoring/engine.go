// Package scoring turns a selector key and patient covariates into a
// success-rate percentage using a formula table.
package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/liamcoop/ivfsuccess/checks"
	"github.com/liamcoop/ivfsuccess/formulas"
)

// Engine resolves coefficient records and evaluates the model.
// It holds no per-request state and is safe for concurrent use.
type Engine struct {
	table   *formulas.Table
	checker *checks.Checker
	cache   RecordCache
}

// NewEngine creates an engine with the built-in plausibility checks and a
// non-expiring record cache.
func NewEngine(table *formulas.Table) (*Engine, error) {
	checker, err := checks.NewDefaultChecker()
	if err != nil {
		return nil, fmt.Errorf("failed to build plausibility checks: %w", err)
	}
	return NewEngineWithChecker(table, checker, nil)
}

// NewEngineWithChecker creates an engine with a custom checker and cache.
// A nil cache gets the default in-memory one.
func NewEngineWithChecker(table *formulas.Table, checker *checks.Checker, cache RecordCache) (*Engine, error) {
	if table == nil {
		return nil, fmt.Errorf("formula table is required")
	}
	if checker == nil {
		return nil, fmt.Errorf("plausibility checker is required")
	}
	if cache == nil {
		cache = NewInMemoryRecordCache(DefaultCacheConfig())
	}

	return &Engine{
		table:   table,
		checker: checker,
		cache:   cache,
	}, nil
}

// Table returns the table the engine reads from
func (en *Engine) Table() *formulas.Table {
	return en.table
}

// Record returns the parsed coefficients for key, going through the cache
func (en *Engine) Record(key formulas.SelectorKey) (formulas.CoefficientRecord, error) {
	if rec, ok := en.cache.Get(key); ok {
		return rec, nil
	}

	rec, err := en.table.Lookup(key)
	if err != nil {
		return formulas.CoefficientRecord{}, err
	}
	en.cache.Set(key, rec)
	return rec, nil
}

// FactsFromCovariates builds the CEL activation for the plausibility checks
func FactsFromCovariates(cov PatientCovariates) map[string]any {
	return map[string]any{
		checks.VarAge:              cov.Age,
		checks.VarWeightLbs:        cov.WeightLbs,
		checks.VarHeightFeet:       int64(cov.HeightFeet),
		checks.VarHeightInches:     int64(cov.HeightInches),
		checks.VarPriorPregnancies: int64(cov.PriorPregnancies),
		checks.VarPriorLiveBirths:  int64(cov.PriorLiveBirths),
	}
}

// Validate runs the plausibility checks against the covariates
func (en *Engine) Validate(cov PatientCovariates) error {
	violations, err := en.checker.Evaluate(FactsFromCovariates(cov))
	var evalErr *checks.EvalError
	if errors.As(err, &evalErr) {
		return &InvalidInputError{
			Field:  evalErr.Check.Field,
			Reason: fmt.Sprintf("%s (%v)", evalErr.Check.Message, evalErr.Err),
		}
	}
	if err != nil {
		return fmt.Errorf("plausibility checks: %w", err)
	}
	if len(violations) == 0 {
		return nil
	}
	return &InvalidInputError{
		Field:      violations[0].Field,
		Reason:     violations[0].Message,
		Violations: violations,
	}
}

// Calculate validates the request, resolves its formula and returns the
// success rate. Any failure aborts the whole calculation.
func (en *Engine) Calculate(req Request) (*Result, error) {
	if err := en.Validate(req.Covariates); err != nil {
		return nil, err
	}

	rec, err := en.Record(req.Key)
	if err != nil {
		return nil, err
	}

	bmi, breakdown, err := predict(rec, req.Covariates)
	if err != nil {
		return nil, err
	}

	lp := breakdown.Sum()
	if math.IsNaN(lp) || math.IsInf(lp, 0) {
		return nil, fmt.Errorf("linear predictor for %s is not finite", req.Key)
	}

	return &Result{
		Key:             req.Key,
		Formula:         rec.Formula,
		BMI:             bmi,
		Breakdown:       breakdown,
		LinearPredictor: lp,
		SuccessRate:     LogisticTransform(lp),
	}, nil
}
