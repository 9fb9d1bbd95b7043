package scoring

import (
	"errors"
	"math"

	"github.com/liamcoop/ivfsuccess/formulas"
)

// bmiFactor converts lb/in² to kg/m²
const bmiFactor = 703

// ComputeBMI returns body mass index rounded half away from zero to one
// decimal place.
func ComputeBMI(weightLbs float64, heightFeet, heightInches int) (float64, error) {
	if heightFeet < 0 {
		return 0, invalid("heightFeet", "must not be negative, got %d", heightFeet)
	}
	if heightInches < 0 {
		return 0, invalid("heightInches", "must not be negative, got %d", heightInches)
	}
	if heightFeet > math.MaxInt32 || heightInches > math.MaxInt32 {
		return 0, invalid("height", "is out of range, got %d'%d\"", heightFeet, heightInches)
	}
	totalInches := heightFeet*12 + heightInches
	if totalInches <= 0 {
		return 0, invalid("height", "total height must be greater than zero")
	}
	if !(weightLbs > 0) || math.IsInf(weightLbs, 0) {
		return 0, invalid("weight", "must be a positive number, got %v", weightLbs)
	}

	h := float64(totalInches)
	bmi := weightLbs / (h * h) * bmiFactor
	return math.Round(bmi*10) / 10, nil
}

func powerContribution(field string, linear, x, powerCoeff, powerFactor float64) (float64, error) {
	if math.IsNaN(x) || x < 0 {
		return 0, invalid(field, "must be a non-negative number, got %v", x)
	}
	v := linear*x + powerCoeff*math.Pow(x, powerFactor)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, invalid(field, "contribution is not finite for value %v", x)
	}
	return v, nil
}

// AgeContribution is linear*age + powerCoeff*age^powerFactor
func AgeContribution(linear, age, powerCoeff, powerFactor float64) (float64, error) {
	return powerContribution("age", linear, age, powerCoeff, powerFactor)
}

// BMIContribution is linear*bmi + powerCoeff*bmi^powerFactor
func BMIContribution(linear, bmi, powerCoeff, powerFactor float64) (float64, error) {
	return powerContribution("bmi", linear, bmi, powerCoeff, powerFactor)
}

// SelectFactorValue picks the coefficient for a present or absent factor
func SelectFactorValue(present bool, values formulas.FactorValues) float64 {
	if present {
		return values.True
	}
	return values.False
}

// SelectBucketValue maps a count onto the 0, 1 and 2+ buckets
func SelectBucketValue(count int, values formulas.BucketValues) (float64, error) {
	switch {
	case count < 0:
		return 0, invalid("count", "must not be negative, got %d", count)
	case count == 0:
		return values.Zero, nil
	case count == 1:
		return values.One, nil
	default:
		return values.TwoPlus, nil
	}
}

func bucket(field string, count int, values formulas.BucketValues) (float64, error) {
	v, err := SelectBucketValue(count, values)
	var invalidErr *InvalidInputError
	if errors.As(err, &invalidErr) {
		invalidErr.Field = field
	}
	return v, err
}

// LinearPredictor returns every term of the logistic model's linear
// predictor for one record and patient. Sum the breakdown for the total.
func LinearPredictor(rec formulas.CoefficientRecord, cov PatientCovariates) (Breakdown, error) {
	_, b, err := predict(rec, cov)
	return b, err
}

func predict(rec formulas.CoefficientRecord, cov PatientCovariates) (float64, Breakdown, error) {
	bmi, err := ComputeBMI(cov.WeightLbs, cov.HeightFeet, cov.HeightInches)
	if err != nil {
		return 0, Breakdown{}, err
	}

	b := Breakdown{Intercept: rec.Intercept}

	if b.Age, err = AgeContribution(rec.Age.Linear, cov.Age, rec.Age.PowerCoeff, rec.Age.PowerFactor); err != nil {
		return 0, Breakdown{}, err
	}
	if b.BMI, err = BMIContribution(rec.BMI.Linear, bmi, rec.BMI.PowerCoeff, rec.BMI.PowerFactor); err != nil {
		return 0, Breakdown{}, err
	}

	rf := cov.RiskFactors
	b.TubalFactor = SelectFactorValue(rf.TubalFactor, rec.TubalFactor)
	b.MaleFactorInfertility = SelectFactorValue(rf.MaleFactorInfertility, rec.MaleFactorInfertility)
	b.Endometriosis = SelectFactorValue(rf.Endometriosis, rec.Endometriosis)
	b.OvulatoryDisorder = SelectFactorValue(rf.OvulatoryDisorder, rec.OvulatoryDisorder)
	b.DiminishedOvarianReserve = SelectFactorValue(rf.DiminishedOvarianReserve, rec.DiminishedOvarianReserve)
	b.UterineFactor = SelectFactorValue(rf.UterineFactor, rec.UterineFactor)
	b.OtherReason = SelectFactorValue(rf.OtherReason, rec.OtherReason)
	b.UnexplainedInfertility = SelectFactorValue(rf.UnexplainedInfertility, rec.UnexplainedInfertility)

	if b.PriorPregnancies, err = bucket("priorPregnancies", cov.PriorPregnancies, rec.PriorPregnancies); err != nil {
		return 0, Breakdown{}, err
	}
	if b.PriorLiveBirths, err = bucket("priorLiveBirths", cov.PriorLiveBirths, rec.PriorLiveBirths); err != nil {
		return 0, Breakdown{}, err
	}

	return bmi, b, nil
}

// LogisticTransform maps a linear predictor to a percentage in [0, 100]
// rounded to two decimals. Large magnitudes saturate instead of overflowing.
// NaN maps to 0.
func LogisticTransform(lp float64) float64 {
	if math.IsNaN(lp) {
		return 0
	}
	var p float64
	if lp >= 0 {
		p = 1 / (1 + math.Exp(-lp))
	} else {
		e := math.Exp(lp)
		p = e / (1 + e)
	}
	pct := math.Min(100, math.Max(0, p*100))
	return math.Round(pct*100) / 100
}
