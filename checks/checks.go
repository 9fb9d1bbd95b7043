// Package checks evaluates covariate plausibility rules written in CEL.
package checks

import (
	"embed"
	"fmt"
	"os"
	"regexp"

	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Variables available to check expressions
const (
	VarAge              = "age"
	VarWeightLbs        = "weightLbs"
	VarHeightFeet       = "heightFeet"
	VarHeightInches     = "heightInches"
	VarPriorPregnancies = "priorPregnancies"
	VarPriorLiveBirths  = "priorLiveBirths"
)

// costLimit bounds evaluation of any single expression
const costLimit = 100000

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Check is one named plausibility rule. Expression must evaluate to true
// for valid input.
type Check struct {
	ID         string `yaml:"id"`
	Field      string `yaml:"field"`
	Expression string `yaml:"expression"`
	Message    string `yaml:"message"`
}

// Set is the file format for a group of checks
type Set struct {
	Name        string  `yaml:"name"`
	Version     int     `yaml:"version"`
	Description string  `yaml:"description"`
	Checks      []Check `yaml:"checks"`
}

// Violation is a failed check
type Violation struct {
	CheckID string `json:"check"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type compiledCheck struct {
	check Check
	prog  cel.Program
}

// Checker holds compiled checks. It is immutable after construction and
// safe for concurrent use.
type Checker struct {
	env    *cel.Env
	checks []compiledCheck
}

// NewEnv declares the covariate variables with their CEL types
func NewEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarAge, cel.DoubleType),
		cel.Variable(VarWeightLbs, cel.DoubleType),
		cel.Variable(VarHeightFeet, cel.IntType),
		cel.Variable(VarHeightInches, cel.IntType),
		cel.Variable(VarPriorPregnancies, cel.IntType),
		cel.Variable(VarPriorLiveBirths, cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

// LoadBuiltin returns the checks shipped with the binary
func LoadBuiltin() ([]Check, error) {
	data, err := builtinFS.ReadFile("builtin/plausibility.yaml")
	if err != nil {
		return nil, fmt.Errorf("checks.LoadBuiltin: %w", err)
	}
	return parseSet(data, "builtin/plausibility.yaml")
}

// LoadFile reads additional checks from a YAML file
func LoadFile(path string) ([]Check, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("checks.LoadFile: %w", err)
	}
	return parseSet(data, path)
}

func parseSet(data []byte, name string) ([]Check, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %q: %w", name, err)
	}
	if len(s.Checks) == 0 {
		return nil, fmt.Errorf("parse %q: no checks defined", name)
	}
	return s.Checks, nil
}

// NewChecker compiles the given checks
func NewChecker(checks []Check) (*Checker, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}

	c := &Checker{env: env}
	seen := make(map[string]bool, len(checks))
	for _, chk := range checks {
		if !idPattern.MatchString(chk.ID) {
			return nil, fmt.Errorf("invalid check id %q: must match %s", chk.ID, idPattern)
		}
		if seen[chk.ID] {
			return nil, fmt.Errorf("check %s defined more than once", chk.ID)
		}
		seen[chk.ID] = true

		if chk.Field == "" || chk.Message == "" {
			return nil, fmt.Errorf("check %s: field and message are required", chk.ID)
		}

		prog, err := c.compile(chk.Expression)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", chk.ID, err)
		}
		c.checks = append(c.checks, compiledCheck{check: chk, prog: prog})
	}
	return c, nil
}

// NewDefaultChecker compiles the built-in checks plus any extra files
func NewDefaultChecker(extraFiles ...string) (*Checker, error) {
	all, err := LoadBuiltin()
	if err != nil {
		return nil, err
	}
	for _, path := range extraFiles {
		extra, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, extra...)
	}
	return NewChecker(all)
}

func (c *Checker) compile(expression string) (cel.Program, error) {
	ast, issues := c.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must be boolean, got %s", ast.OutputType())
	}

	prog, err := c.env.Program(ast, cel.CostLimit(costLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Len returns the number of compiled checks
func (c *Checker) Len() int {
	return len(c.checks)
}

// EvalError reports a check that could not be evaluated, such as an
// arithmetic overflow on extreme inputs or a missing variable.
type EvalError struct {
	Check Check
	Err   error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("check %s: %v", e.Check.ID, e.Err)
}

func (e *EvalError) Unwrap() error { return e.Err }

// Evaluate runs every check against facts and returns the failures in
// definition order. An evaluation error aborts with an *EvalError.
func (c *Checker) Evaluate(facts map[string]any) ([]Violation, error) {
	var violations []Violation
	for _, cc := range c.checks {
		out, _, err := cc.prog.Eval(facts)
		if err != nil {
			return nil, &EvalError{Check: cc.check, Err: err}
		}

		if passed, ok := out.Value().(bool); ok && passed {
			continue
		}
		violations = append(violations, Violation{
			CheckID: cc.check.ID,
			Field:   cc.check.Field,
			Message: cc.check.Message,
		})
	}
	return violations, nil
}
