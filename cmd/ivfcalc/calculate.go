package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/liamcoop/ivfsuccess/formulas"
	"github.com/liamcoop/ivfsuccess/internal/bootstrap"
	"github.com/liamcoop/ivfsuccess/scoring"
)

type calculateFlags struct {
	usingOwnEggs     string
	previousIVF      string
	reasonKnown      string
	age              float64
	weight           float64
	heightFeet       int
	heightInches     int
	priorPregnancies int
	priorLiveBirths  int
	factors          []string
	format           string
	breakdown        bool
}

// riskFactorSetters maps --factor names onto covariate fields
var riskFactorSetters = map[string]func(*scoring.RiskFactors){
	"tubal":         func(r *scoring.RiskFactors) { r.TubalFactor = true },
	"male":          func(r *scoring.RiskFactors) { r.MaleFactorInfertility = true },
	"endometriosis": func(r *scoring.RiskFactors) { r.Endometriosis = true },
	"ovulatory":     func(r *scoring.RiskFactors) { r.OvulatoryDisorder = true },
	"dor":           func(r *scoring.RiskFactors) { r.DiminishedOvarianReserve = true },
	"uterine":       func(r *scoring.RiskFactors) { r.UterineFactor = true },
	"other":         func(r *scoring.RiskFactors) { r.OtherReason = true },
	"unexplained":   func(r *scoring.RiskFactors) { r.UnexplainedInfertility = true },
}

func factorNames() []string {
	names := make([]string, 0, len(riskFactorSetters))
	for name := range riskFactorSetters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newCalculateCmd(v *viper.Viper) *cobra.Command {
	f := &calculateFlags{}

	cmd := &cobra.Command{
		Use:   "calculate",
		Short: "Compute the estimated IVF success rate for one patient",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return classify(runCalculate(cmd, v, f))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.usingOwnEggs, "own-eggs", "TRUE", "Using own eggs: TRUE or FALSE")
	flags.StringVar(&f.previousIVF, "previous-ivf", "FALSE", "Attempted IVF previously: TRUE, FALSE or N/A")
	flags.StringVar(&f.reasonKnown, "reason-known", "TRUE", "Reason for infertility known: TRUE or FALSE")
	flags.Float64Var(&f.age, "age", 0, "Age in years (20-50)")
	flags.Float64Var(&f.weight, "weight", 0, "Weight in pounds")
	flags.IntVar(&f.heightFeet, "height-feet", 0, "Height, feet part")
	flags.IntVar(&f.heightInches, "height-inches", 0, "Height, inches part")
	flags.IntVar(&f.priorPregnancies, "pregnancies", 0, "Number of prior pregnancies")
	flags.IntVar(&f.priorLiveBirths, "live-births", 0, "Number of prior live births")
	flags.StringSliceVar(&f.factors, "factor", nil, "Diagnosed risk factor (may be repeated): "+strings.Join(factorNames(), ", "))
	flags.StringVar(&f.format, "format", "text", "Output format: text or json")
	flags.BoolVar(&f.breakdown, "breakdown", false, "Show every term of the linear predictor")

	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("weight")

	return cmd
}

func (f *calculateFlags) request() (scoring.Request, error) {
	var rf scoring.RiskFactors
	for _, name := range f.factors {
		set, ok := riskFactorSetters[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return scoring.Request{}, exitError(exitInvalidInput, "unknown risk factor %q (want one of %s)", name, strings.Join(factorNames(), ", "))
		}
		set(&rf)
	}

	return scoring.Request{
		Key: formulas.ParseSelectorKey(f.usingOwnEggs, f.previousIVF, f.reasonKnown),
		Covariates: scoring.PatientCovariates{
			Age:              f.age,
			WeightLbs:        f.weight,
			HeightFeet:       f.heightFeet,
			HeightInches:     f.heightInches,
			PriorPregnancies: f.priorPregnancies,
			PriorLiveBirths:  f.priorLiveBirths,
			RiskFactors:      rf,
		},
	}, nil
}

func runCalculate(cmd *cobra.Command, v *viper.Viper, f *calculateFlags) error {
	if f.format != "text" && f.format != "json" {
		return exitError(exitFailure, "unknown format %q (want text or json)", f.format)
	}

	req, err := f.request()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	engine, err := bootstrap.NewEngine(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	result, err := engine.Calculate(req)
	if err != nil {
		return err
	}

	if f.format == "json" {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	writeResult(cmd.OutOrStdout(), result, f.breakdown)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResult(w io.Writer, r *scoring.Result, breakdown bool) {
	fmt.Fprintf(w, "Formula:       %s (%s)\n", r.Formula, r.Key)
	fmt.Fprintf(w, "BMI:           %.1f\n", r.BMI)
	fmt.Fprintf(w, "Success rate:  %.2f%%\n", r.SuccessRate)

	if !breakdown {
		return
	}
	b := r.Breakdown
	terms := []struct {
		name  string
		value float64
	}{
		{"intercept", b.Intercept},
		{"age", b.Age},
		{"bmi", b.BMI},
		{"tubal factor", b.TubalFactor},
		{"male factor infertility", b.MaleFactorInfertility},
		{"endometriosis", b.Endometriosis},
		{"ovulatory disorder", b.OvulatoryDisorder},
		{"diminished ovarian reserve", b.DiminishedOvarianReserve},
		{"uterine factor", b.UterineFactor},
		{"other reason", b.OtherReason},
		{"unexplained infertility", b.UnexplainedInfertility},
		{"prior pregnancies", b.PriorPregnancies},
		{"prior live births", b.PriorLiveBirths},
	}
	fmt.Fprintln(w)
	for _, t := range terms {
		fmt.Fprintf(w, "  %-28s %+.6f\n", t.name, t.value)
	}
	fmt.Fprintf(w, "  %-28s %+.6f\n", "linear predictor", r.LinearPredictor)
}
