package formulas

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Table is the immutable coefficient lookup, keyed by selector combination.
// Numeric text is kept raw until Lookup so parse failures name their field.
// A built Table is never mutated and is safe for concurrent reads.
type Table struct {
	entries map[SelectorKey]Row
}

// Build indexes rows by their selector columns.
// Duplicate keys are rejected rather than overwritten.
func Build(rows []Row) (*Table, error) {
	t := &Table{entries: make(map[SelectorKey]Row, len(rows))}

	for i, row := range rows {
		rowNum := i + 1

		key, err := selectorKeyOf(rowNum, row)
		if err != nil {
			return nil, err
		}

		if _, exists := t.entries[key]; exists {
			return nil, &DataIntegrityError{Row: rowNum, Key: &key, Reason: "duplicate selector combination"}
		}

		// Copy so later changes to the caller's map cannot reach the table
		stored := make(Row, len(row))
		for col, v := range row {
			stored[col] = v
		}
		t.entries[key] = stored
	}

	return t, nil
}

func selectorKeyOf(rowNum int, row Row) (SelectorKey, error) {
	var flags [3]Flag
	for i, col := range SelectorColumns {
		raw, ok := row[col]
		if !ok || strings.TrimSpace(raw) == "" {
			return SelectorKey{}, &DataIntegrityError{Row: rowNum, Field: col, Reason: "missing selector value"}
		}
		f, ok := ParseFlag(raw)
		if !ok {
			return SelectorKey{}, &DataIntegrityError{Row: rowNum, Field: col, Reason: fmt.Sprintf("unknown selector value %q", raw)}
		}
		flags[i] = f
	}

	key := SelectorKey{UsingOwnEggs: flags[0], PreviousIVF: flags[1], ReasonKnown: flags[2]}
	if !key.Valid() {
		return SelectorKey{}, &DataIntegrityError{Row: rowNum, Key: &key, Reason: "invalid selector combination"}
	}
	return key, nil
}

// Lookup returns the fully parsed record for key.
// An invalid or absent key is a FormulaNotFoundError; unparseable numeric
// text is a DataIntegrityError naming the field.
func (t *Table) Lookup(key SelectorKey) (CoefficientRecord, error) {
	if !key.Valid() {
		return CoefficientRecord{}, &FormulaNotFoundError{Key: key}
	}
	row, exists := t.entries[key]
	if !exists {
		return CoefficientRecord{}, &FormulaNotFoundError{Key: key}
	}
	return parseRecord(key, row)
}

// Keys returns the stored selector keys in a stable order
func (t *Table) Keys() []SelectorKey {
	keys := make([]SelectorKey, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Len returns the number of stored records
func (t *Table) Len() int {
	return len(t.entries)
}

// Validate checks that every valid combination is present and that every
// stored record parses. It is the startup gate before serving requests.
func (t *Table) Validate() error {
	var missing []string
	for _, k := range ValidKeys() {
		if _, ok := t.entries[k]; !ok {
			missing = append(missing, k.String())
		}
	}
	if len(missing) > 0 {
		return &DataIntegrityError{Reason: "missing selector combinations: " + strings.Join(missing, ", ")}
	}

	for _, k := range t.Keys() {
		if _, err := t.Lookup(k); err != nil {
			return err
		}
	}
	return nil
}

// Load reads rows from src and returns a built and validated table
func Load(ctx context.Context, src RowSource) (*Table, error) {
	rows, err := src.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read formula rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, &DataIntegrityError{Reason: "formula source contains no rows"}
	}

	t, err := Build(rows)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// recordParser accumulates the first parse failure so parseRecord reads flat
type recordParser struct {
	key SelectorKey
	row Row
	err error
}

func (p *recordParser) float(col string) float64 {
	if p.err != nil {
		return 0
	}
	raw, ok := p.row[col]
	if !ok {
		p.err = &DataIntegrityError{Key: &p.key, Field: col, Reason: "missing column"}
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		p.err = &DataIntegrityError{Key: &p.key, Field: col, Reason: fmt.Sprintf("malformed number %q", raw), Err: err}
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = &DataIntegrityError{Key: &p.key, Field: col, Reason: fmt.Sprintf("non-finite number %q", raw)}
		return 0
	}
	return v
}

func (p *recordParser) factor(trueCol, falseCol string) FactorValues {
	return FactorValues{True: p.float(trueCol), False: p.float(falseCol)}
}

func (p *recordParser) bucket(zeroCol, oneCol, twoPlusCol string) BucketValues {
	return BucketValues{Zero: p.float(zeroCol), One: p.float(oneCol), TwoPlus: p.float(twoPlusCol)}
}

func parseRecord(key SelectorKey, row Row) (CoefficientRecord, error) {
	p := &recordParser{key: key, row: row}

	rec := CoefficientRecord{
		Key:       key,
		Formula:   strings.TrimSpace(row[ColFormula]),
		Intercept: p.float(ColIntercept),
		Age: PowerTerm{
			Linear:      p.float(ColAgeLinear),
			PowerCoeff:  p.float(ColAgePowerCoeff),
			PowerFactor: p.float(ColAgePowerFactor),
		},
		BMI: PowerTerm{
			Linear:      p.float(ColBMILinear),
			PowerCoeff:  p.float(ColBMIPowerCoeff),
			PowerFactor: p.float(ColBMIPowerFactor),
		},
		TubalFactor:              p.factor(ColTubalFactorTrue, ColTubalFactorFalse),
		MaleFactorInfertility:    p.factor(ColMaleFactorInfertilityTrue, ColMaleFactorInfertilityFalse),
		Endometriosis:            p.factor(ColEndometriosisTrue, ColEndometriosisFalse),
		OvulatoryDisorder:        p.factor(ColOvulatoryDisorderTrue, ColOvulatoryDisorderFalse),
		DiminishedOvarianReserve: p.factor(ColDiminishedOvarianReserveTrue, ColDiminishedOvarianReserveFalse),
		UterineFactor:            p.factor(ColUterineFactorTrue, ColUterineFactorFalse),
		OtherReason:              p.factor(ColOtherReasonTrue, ColOtherReasonFalse),
		UnexplainedInfertility:   p.factor(ColUnexplainedInfertilityTrue, ColUnexplainedInfertilityFalse),
		PriorPregnancies:         p.bucket(ColPriorPregnancies0, ColPriorPregnancies1, ColPriorPregnancies2Plus),
		PriorLiveBirths:          p.bucket(ColPriorLiveBirths0, ColPriorLiveBirths1, ColPriorLiveBirths2Plus),
	}

	if p.err != nil {
		return CoefficientRecord{}, p.err
	}
	return rec, nil
}
