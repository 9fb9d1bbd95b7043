package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/liamcoop/ivfsuccess/checks"
	"github.com/liamcoop/ivfsuccess/formulas"
	"github.com/liamcoop/ivfsuccess/scoring"
)

// API request and response models

// Number accepts a JSON number or a numeric string. An empty string or
// null is zero, matching what the browser form submits for blank fields.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
		if text == "" {
			*n = 0
			return nil
		}
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = Number(v)
	return nil
}

func (n Number) int(field string) (int, error) {
	v := float64(n)
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, &scoring.InvalidInputError{Field: field, Reason: fmt.Sprintf("must be a whole number, got %v", v)}
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, &scoring.InvalidInputError{Field: field, Reason: fmt.Sprintf("is out of range, got %v", v)}
	}
	return int(v), nil
}

// String formats the value without trailing zeros
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

// CalculateRequest is the body of POST /api/v1/calculate
type CalculateRequest struct {
	UsingOwnEggs string `json:"usingOwnEggs" example:"TRUE"`
	PreviousIVF  string `json:"previousIVF" example:"FALSE"`
	ReasonKnown  string `json:"reasonKnown" example:"TRUE"`

	Age              Number `json:"age" example:"35"`
	Weight           Number `json:"weight" example:"154"`
	HeightFeet       Number `json:"heightFeet" example:"5"`
	HeightInches     Number `json:"heightInches" example:"4"`
	PriorPregnancies Number `json:"priorPregnancies" example:"1"`
	PriorLiveBirths  Number `json:"priorLiveBirths" example:"1"`

	HasTubalFactor              bool `json:"hasTubalFactor"`
	HasMaleFactorInfertility    bool `json:"hasMaleFactorInfertility"`
	HasEndometriosis            bool `json:"hasEndometriosis"`
	HasOvulatoryDisorder        bool `json:"hasOvulatoryDisorder"`
	HasDiminishedOvarianReserve bool `json:"hasDiminishedOvarianReserve"`
	HasUterineFactor            bool `json:"hasUterineFactor"`
	HasOtherReason              bool `json:"hasOtherReason"`
	HasUnexplainedInfertility   bool `json:"hasUnexplainedInfertility"`
} // @name CalculateRequest

// ToScoring converts the wire format into an engine request
func (r CalculateRequest) ToScoring() (scoring.Request, error) {
	feet, err := r.HeightFeet.int("heightFeet")
	if err != nil {
		return scoring.Request{}, err
	}
	inches, err := r.HeightInches.int("heightInches")
	if err != nil {
		return scoring.Request{}, err
	}
	pregnancies, err := r.PriorPregnancies.int("priorPregnancies")
	if err != nil {
		return scoring.Request{}, err
	}
	liveBirths, err := r.PriorLiveBirths.int("priorLiveBirths")
	if err != nil {
		return scoring.Request{}, err
	}

	return scoring.Request{
		Key: formulas.ParseSelectorKey(r.UsingOwnEggs, r.PreviousIVF, r.ReasonKnown),
		Covariates: scoring.PatientCovariates{
			Age:              float64(r.Age),
			WeightLbs:        float64(r.Weight),
			HeightFeet:       feet,
			HeightInches:     inches,
			PriorPregnancies: pregnancies,
			PriorLiveBirths:  liveBirths,
			RiskFactors: scoring.RiskFactors{
				TubalFactor:              r.HasTubalFactor,
				MaleFactorInfertility:    r.HasMaleFactorInfertility,
				Endometriosis:            r.HasEndometriosis,
				OvulatoryDisorder:        r.HasOvulatoryDisorder,
				DiminishedOvarianReserve: r.HasDiminishedOvarianReserve,
				UterineFactor:            r.HasUterineFactor,
				OtherReason:              r.HasOtherReason,
				UnexplainedInfertility:   r.HasUnexplainedInfertility,
			},
		},
	}, nil
}

// Message is the confirmation sentence shown with the result
func (r CalculateRequest) Message() string {
	return fmt.Sprintf("IVF calculation completed for a %s-year-old with height %s'%s\" and weight %s lbs.",
		r.Age, r.HeightFeet, r.HeightInches, r.Weight)
}

// CalculateResponse is the body returned for a successful calculation
type CalculateResponse struct {
	CalculationID   string  `json:"calculationId" example:"123e4567-e89b-12d3-a456-426614174000"`
	Result          float64 `json:"result" example:"24.78"`
	BMI             float64 `json:"bmi" example:"26.4"`
	Formula         string  `json:"formula" example:"3-own"`
	LinearPredictor float64 `json:"linearPredictor" example:"-1.1102"`
	Message         string  `json:"message"`
} // @name CalculateResponse

// FormulaResponse describes one loaded formula
type FormulaResponse struct {
	UsingOwnEggs string `json:"usingOwnEggs" example:"TRUE"`
	PreviousIVF  string `json:"previousIVF" example:"FALSE"`
	ReasonKnown  string `json:"reasonKnown" example:"TRUE"`
	Formula      string `json:"formula" example:"3-own"`
} // @name FormulaResponse

// FormulasListResponse lists every loaded formula
type FormulasListResponse struct {
	Formulas []FormulaResponse `json:"formulas"`
} // @name FormulasListResponse

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string             `json:"error" example:"invalid input"`
	Details    string             `json:"details,omitempty"`
	Field      string             `json:"field,omitempty" example:"age"`
	Violations []checks.Violation `json:"violations,omitempty"`
} // @name ErrorResponse

// HealthResponse represents the health check response
type HealthResponse struct {
	Status         string `json:"status" example:"healthy"`
	FormulasLoaded int    `json:"formulasLoaded" example:"6"`
} // @name HealthResponse
