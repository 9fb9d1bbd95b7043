package scoring

import "github.com/liamcoop/ivfsuccess/formulas"

// RiskFactors are the diagnosed causes of infertility. Each one selects
// the true or false coefficient of its factor.
type RiskFactors struct {
	TubalFactor              bool
	MaleFactorInfertility    bool
	Endometriosis            bool
	OvulatoryDisorder        bool
	DiminishedOvarianReserve bool
	UterineFactor            bool
	OtherReason              bool
	UnexplainedInfertility   bool
}

// PatientCovariates is the patient-specific input to a calculation
type PatientCovariates struct {
	Age              float64
	WeightLbs        float64
	HeightFeet       int
	HeightInches     int
	PriorPregnancies int
	PriorLiveBirths  int
	RiskFactors      RiskFactors
}

// Request is everything needed to compute one success rate
type Request struct {
	Key        formulas.SelectorKey
	Covariates PatientCovariates
}

// Breakdown lists every term of the linear predictor
type Breakdown struct {
	Intercept float64
	Age       float64
	BMI       float64

	TubalFactor              float64
	MaleFactorInfertility    float64
	Endometriosis            float64
	OvulatoryDisorder        float64
	DiminishedOvarianReserve float64
	UterineFactor            float64
	OtherReason              float64
	UnexplainedInfertility   float64

	PriorPregnancies float64
	PriorLiveBirths  float64
}

// Terms returns the terms in a fixed order
func (b Breakdown) Terms() []float64 {
	return []float64{
		b.Intercept,
		b.Age,
		b.BMI,
		b.TubalFactor,
		b.MaleFactorInfertility,
		b.Endometriosis,
		b.OvulatoryDisorder,
		b.DiminishedOvarianReserve,
		b.UterineFactor,
		b.OtherReason,
		b.UnexplainedInfertility,
		b.PriorPregnancies,
		b.PriorLiveBirths,
	}
}

// Sum adds every term exactly once
func (b Breakdown) Sum() float64 {
	var lp float64
	for _, term := range b.Terms() {
		lp += term
	}
	return lp
}

// Result is the outcome of a successful calculation
type Result struct {
	Key             formulas.SelectorKey
	Formula         string
	BMI             float64
	Breakdown       Breakdown
	LinearPredictor float64
	// SuccessRate is a percentage in [0, 100] with two decimals
	SuccessRate float64
}
