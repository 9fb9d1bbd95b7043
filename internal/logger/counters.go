package logger

import "sync/atomic"

// Counters are incremented regardless of sampling
var (
	totalErrors   atomic.Int64
	totalWarnings atomic.Int64

	calculations        atomic.Int64
	invalidInputs       atomic.Int64
	formulaMisses       atomic.Int64
	dataIntegrityErrors atomic.Int64

	total4xx atomic.Int64
	total5xx atomic.Int64
	total400 atomic.Int64
	total404 atomic.Int64
)

// Metrics is a point-in-time copy of the counters
type Metrics struct {
	Errors              int64 `json:"errors"`
	Warnings            int64 `json:"warnings"`
	Calculations        int64 `json:"calculations"`
	InvalidInputs       int64 `json:"invalidInputs"`
	FormulaMisses       int64 `json:"formulaMisses"`
	DataIntegrityErrors int64 `json:"dataIntegrityErrors"`
	HTTP4xx             int64 `json:"http4xx"`
	HTTP5xx             int64 `json:"http5xx"`
	HTTP400             int64 `json:"http400"`
	HTTP404             int64 `json:"http404"`
}

func Snapshot() Metrics {
	return Metrics{
		Errors:              totalErrors.Load(),
		Warnings:            totalWarnings.Load(),
		Calculations:        calculations.Load(),
		InvalidInputs:       invalidInputs.Load(),
		FormulaMisses:       formulaMisses.Load(),
		DataIntegrityErrors: dataIntegrityErrors.Load(),
		HTTP4xx:             total4xx.Load(),
		HTTP5xx:             total5xx.Load(),
		HTTP400:             total400.Load(),
		HTTP404:             total404.Load(),
	}
}

// CountCalculation records a completed calculation
func CountCalculation() { calculations.Add(1) }

// CountInvalidInput records a calculation rejected for its covariates
func CountInvalidInput() { invalidInputs.Add(1) }

// CountFormulaMiss records a selector key with no formula
func CountFormulaMiss() { formulaMisses.Add(1) }

// CountDataIntegrity records a malformed coefficient record
func CountDataIntegrity() { dataIntegrityErrors.Add(1) }

// ErrorHttp5xx counts a server error response
func ErrorHttp5xx() {
	total5xx.Add(1)
	totalErrors.Add(1)
}

// WarnHttp4xx counts a client error response
func WarnHttp4xx(status int) {
	total4xx.Add(1)
	totalWarnings.Add(1)

	switch status {
	case 400:
		total400.Add(1)
	case 404:
		total404.Add(1)
	}
}
