package formulas

import (
	"fmt"
	"strings"
)

// Flag is one categorical selector value as it appears in the formula table
type Flag string

const (
	FlagTrue          Flag = "TRUE"
	FlagFalse         Flag = "FALSE"
	FlagNotApplicable Flag = "N/A"
)

// ParseFlag normalizes case and surrounding whitespace.
// Returns false for anything other than TRUE, FALSE or N/A.
func ParseFlag(s string) (Flag, bool) {
	switch f := Flag(strings.ToUpper(strings.TrimSpace(s))); f {
	case FlagTrue, FlagFalse, FlagNotApplicable:
		return f, true
	default:
		return "", false
	}
}

// FlagOf converts a boolean answer into a selector flag
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// SelectorKey picks exactly one coefficient record from the table
type SelectorKey struct {
	UsingOwnEggs Flag
	PreviousIVF  Flag
	ReasonKnown  Flag
}

// ParseSelectorKey builds a key from caller-supplied text.
// Unknown values are kept verbatim so that Lookup can report them.
func ParseSelectorKey(usingOwnEggs, previousIVF, reasonKnown string) SelectorKey {
	return SelectorKey{
		UsingOwnEggs: normalize(usingOwnEggs),
		PreviousIVF:  normalize(previousIVF),
		ReasonKnown:  normalize(reasonKnown),
	}
}

func normalize(s string) Flag {
	if f, ok := ParseFlag(s); ok {
		return f
	}
	return Flag(s)
}

// Valid reports whether the key is one of the combinations the model defines.
// PreviousIVF is N/A exactly when donor eggs are used.
func (k SelectorKey) Valid() bool {
	if k.ReasonKnown != FlagTrue && k.ReasonKnown != FlagFalse {
		return false
	}
	switch k.UsingOwnEggs {
	case FlagTrue:
		return k.PreviousIVF == FlagTrue || k.PreviousIVF == FlagFalse
	case FlagFalse:
		return k.PreviousIVF == FlagNotApplicable
	default:
		return false
	}
}

func (k SelectorKey) String() string {
	return fmt.Sprintf("usingOwnEggs=%s/previousIVF=%s/reasonKnown=%s", k.UsingOwnEggs, k.PreviousIVF, k.ReasonKnown)
}

// ValidKeys lists every combination a complete table must contain
func ValidKeys() []SelectorKey {
	return []SelectorKey{
		{FlagFalse, FlagNotApplicable, FlagFalse},
		{FlagFalse, FlagNotApplicable, FlagTrue},
		{FlagTrue, FlagFalse, FlagFalse},
		{FlagTrue, FlagFalse, FlagTrue},
		{FlagTrue, FlagTrue, FlagFalse},
		{FlagTrue, FlagTrue, FlagTrue},
	}
}

// PowerTerm is a covariate contribution of the form
// Linear*x + PowerCoeff*x^PowerFactor
type PowerTerm struct {
	Linear      float64
	PowerCoeff  float64
	PowerFactor float64
}

// FactorValues holds the coefficient used when a binary risk factor is present or absent
type FactorValues struct {
	True  float64
	False float64
}

// BucketValues holds the coefficients for a count bucketed as 0, 1 or 2+
type BucketValues struct {
	Zero    float64
	One     float64
	TwoPlus float64
}

// CoefficientRecord is one fully parsed row of the formula table
type CoefficientRecord struct {
	Key     SelectorKey
	Formula string

	Intercept float64
	Age       PowerTerm
	BMI       PowerTerm

	TubalFactor              FactorValues
	MaleFactorInfertility    FactorValues
	Endometriosis            FactorValues
	OvulatoryDisorder        FactorValues
	DiminishedOvarianReserve FactorValues
	UterineFactor            FactorValues
	OtherReason              FactorValues
	UnexplainedInfertility   FactorValues

	PriorPregnancies BucketValues
	PriorLiveBirths  BucketValues
}

// Row is one raw record of the formula table, keyed by column name
type Row map[string]string
