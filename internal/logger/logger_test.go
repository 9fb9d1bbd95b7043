package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Configure(&buf)

	prevLevel := GetLevel()
	t.Cleanup(func() {
		SetLevel(prevLevel)
		SetSampleRate(1)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input   string
		want    Level
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"info", LevelInfo, false},
		{"DEBUG", LevelDebug, false},
		{" warn ", LevelWarning, false},
		{"WARNING", LevelWarning, false},
		{"error", LevelError, false},
		{"trace", LevelTrace, false},
		{"fatal", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseLevel(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestInfoWritesJSON(t *testing.T) {
	buf := captureLogs(t)
	SetLevel(LevelInfo)

	Info("calculation completed", "formula", "3-own", "successRate", 24.78)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "calculation completed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["formula"] != "3-own" {
		t.Errorf("formula = %v", entry["formula"])
	}
}

func TestSetLevelFilters(t *testing.T) {
	buf := captureLogs(t)
	SetLevel(LevelWarning)

	Info("hidden")
	Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("messages below the level should be dropped, got %q", buf.String())
	}

	Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warning should be logged, got %q", buf.String())
	}
}

func TestSampledErrorsAreAlwaysCounted(t *testing.T) {
	buf := captureLogs(t)
	SetSampleRate(1000000)

	before := Snapshot()
	for i := 0; i < 10; i++ {
		Error("sampled")
	}
	after := Snapshot()

	if after.Errors-before.Errors != 10 {
		t.Errorf("Errors increased by %d, want 10", after.Errors-before.Errors)
	}
	if strings.Count(buf.String(), "sampled") > 10 {
		t.Errorf("sampling should not duplicate output")
	}
}

func TestHTTPCounters(t *testing.T) {
	before := Snapshot()

	WarnHttp4xx(400)
	WarnHttp4xx(404)
	WarnHttp4xx(422)
	ErrorHttp5xx()

	after := Snapshot()
	if d := after.HTTP4xx - before.HTTP4xx; d != 3 {
		t.Errorf("HTTP4xx increased by %d, want 3", d)
	}
	if d := after.HTTP400 - before.HTTP400; d != 1 {
		t.Errorf("HTTP400 increased by %d, want 1", d)
	}
	if d := after.HTTP404 - before.HTTP404; d != 1 {
		t.Errorf("HTTP404 increased by %d, want 1", d)
	}
	if d := after.HTTP5xx - before.HTTP5xx; d != 1 {
		t.Errorf("HTTP5xx increased by %d, want 1", d)
	}
	if d := after.Errors - before.Errors; d != 1 {
		t.Errorf("Errors increased by %d, want 1", d)
	}
}

func TestCalculationCounters(t *testing.T) {
	before := Snapshot()

	CountCalculation()
	CountCalculation()
	CountInvalidInput()
	CountFormulaMiss()
	CountDataIntegrity()

	after := Snapshot()
	if d := after.Calculations - before.Calculations; d != 2 {
		t.Errorf("Calculations increased by %d, want 2", d)
	}
	if d := after.InvalidInputs - before.InvalidInputs; d != 1 {
		t.Errorf("InvalidInputs increased by %d, want 1", d)
	}
	if d := after.FormulaMisses - before.FormulaMisses; d != 1 {
		t.Errorf("FormulaMisses increased by %d, want 1", d)
	}
	if d := after.DataIntegrityErrors - before.DataIntegrityErrors; d != 1 {
		t.Errorf("DataIntegrityErrors increased by %d, want 1", d)
	}
}

func TestShutdownWithoutOTEL(t *testing.T) {
	if err := Shutdown(t.Context()); err != nil {
		t.Errorf("Shutdown() without OTEL should be a no-op, got %v", err)
	}
}
