package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liamcoop/ivfsuccess/formulas"
	"github.com/liamcoop/ivfsuccess/internal/config"
	"github.com/liamcoop/ivfsuccess/scoring"
)

var version = "0.1.0"

// Exit codes
const (
	exitFailure       = 1
	exitInvalidInput  = 2
	exitNoFormula     = 3
	exitDataIntegrity = 4
)

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "ivfcalc",
		Short:         "Estimate IVF success rates and manage the formula table",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (overrides CONFIG_FILE)")
	pf.String("source", "", "Formula source: csv, sqlite or postgres (overrides FORMULA_SOURCE)")
	pf.String("path", "", "CSV or SQLite file path (overrides FORMULA_PATH)")
	pf.String("database-url", "", "Postgres URL (overrides DATABASE_URL)")
	pf.String("checks", "", "Extra plausibility checks YAML file (overrides CHECKS_FILE)")

	bindings := map[string]string{
		"config":       config.KeyConfigFile,
		"source":       config.KeyFormulaSource,
		"path":         config.KeyFormulaPath,
		"database-url": config.KeyDatabaseURL,
		"checks":       config.KeyChecksFile,
	}
	for flag, key := range bindings {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	root.AddCommand(newCalculateCmd(v))
	root.AddCommand(newFormulasCmd(v))
	return root
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, exitError(exitFailure, "invalid configuration: %v", err)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, ee.msg)
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFailure)
	}
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// classify maps domain errors onto exit codes
func classify(err error) error {
	var ee *exitErr
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ee):
		return err
	case errors.Is(err, scoring.ErrInvalidInput):
		return exitError(exitInvalidInput, "invalid input: %v", err)
	case errors.Is(err, formulas.ErrFormulaNotFound):
		return exitError(exitNoFormula, "%v", err)
	case errors.Is(err, formulas.ErrDataIntegrity):
		return exitError(exitDataIntegrity, "%v", err)
	default:
		return exitError(exitFailure, "%v", err)
	}
}
