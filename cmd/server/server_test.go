package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/liamcoop/ivfsuccess/internal/config"
	"github.com/liamcoop/ivfsuccess/internal/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:       ":0",
		FormulaSource:  config.SourceCSV,
		FormulaPath:    "../../formulas/testdata/formulas.csv",
		CORSOrigins:    []string{"https://clinic.example"},
		RequestTimeout: 5 * time.Second,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(t.Context(), testConfig())
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	return server
}

func doRequest(t *testing.T, server *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

const referenceBody = `{
	"usingOwnEggs": "TRUE",
	"previousIVF": "FALSE",
	"reasonKnown": "FALSE",
	"age": "35",
	"weight": "154",
	"heightFeet": "5",
	"heightInches": "4",
	"priorPregnancies": 0,
	"priorLiveBirths": 0
}`

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" || resp.FormulasLoaded != 6 {
		t.Errorf("health = %+v, want healthy with 6 formulas", resp)
	}
}

func TestCalculateReferencePatient(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/calculate", referenceBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp CalculateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Result != 24.78 {
		t.Errorf("result = %v, want 24.78", resp.Result)
	}
	if resp.BMI != 26.4 {
		t.Errorf("bmi = %v, want 26.4", resp.BMI)
	}
	if resp.Formula != "3-own" {
		t.Errorf("formula = %q, want 3-own", resp.Formula)
	}
	if _, err := uuid.Parse(resp.CalculationID); err != nil {
		t.Errorf("calculationId %q is not a UUID: %v", resp.CalculationID, err)
	}

	wantMsg := `IVF calculation completed for a 35-year-old with height 5'4" and weight 154 lbs.`
	if resp.Message != wantMsg {
		t.Errorf("message = %q, want %q", resp.Message, wantMsg)
	}
}

func TestCalculateNumericFieldsAndRiskFactors(t *testing.T) {
	server := newTestServer(t)

	body := map[string]any{
		"usingOwnEggs":     "true",
		"previousIVF":      "false",
		"reasonKnown":      "false",
		"age":              35,
		"weight":           154,
		"heightFeet":       5,
		"heightInches":     4,
		"priorPregnancies": 2,
		"priorLiveBirths":  1,
		"hasTubalFactor":   true,
	}
	data, _ := json.Marshal(body)

	rec := doRequest(t, server, http.MethodPost, "/api/v1/calculate", string(data))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp CalculateResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result != 32.95 {
		t.Errorf("result = %v, want 32.95", resp.Result)
	}
}

func TestCalculateErrors(t *testing.T) {
	testCases := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "Malformed JSON",
			body:       `{"age":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "Non-numeric age",
			body:       `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":"thirty"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "Fractional height",
			body:       `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":5.5,"heightInches":0}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid input",
		},
		{
			name:       "Age out of range",
			body:       `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":55,"weight":154,"heightFeet":5,"heightInches":4}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid input",
		},
		{
			name:       "Live births exceed pregnancies",
			body:       `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":5,"heightInches":4,"priorPregnancies":1,"priorLiveBirths":2}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid input",
		},
		{
			name:       "Donor eggs with previous IVF",
			body:       `{"usingOwnEggs":"FALSE","previousIVF":"TRUE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":5,"heightInches":4}`,
			wantStatus: http.StatusNotFound,
			wantError:  "formula not found",
		},
	}

	server := newTestServer(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodPost, "/api/v1/calculate", tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.wantStatus, rec.Body.String())
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error != tc.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tc.wantError)
			}
		})
	}
}

func TestCalculateRejectsExtremeIntegers(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		wantField string
	}{
		{
			name:      "Height in feet overflows checks",
			body:      `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":1e18,"heightInches":4}`,
			wantField: "heightFeet",
		},
		{
			name:      "Height in feet just above the checked maximum",
			body:      `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":922337203685477580,"heightInches":4}`,
			wantField: "heightFeet",
		},
		{
			name:      "Pregnancies beyond int range",
			body:      `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":5,"heightInches":4,"priorPregnancies":1e19}`,
			wantField: "priorPregnancies",
		},
		{
			name:      "Pregnancies above the checked maximum",
			body:      `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":5,"heightInches":4,"priorPregnancies":500}`,
			wantField: "priorPregnancies",
		},
	}

	server := newTestServer(t)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, server, http.MethodPost, "/api/v1/calculate", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Error != "invalid input" {
				t.Errorf("error = %q, want invalid input", resp.Error)
			}
			if resp.Field != tc.wantField {
				t.Errorf("field = %q, want %q", resp.Field, tc.wantField)
			}
			if strings.Contains(resp.Details, "negative") {
				t.Errorf("details = %q, should not report a negative value", resp.Details)
			}
		})
	}
}

func TestCalculateReportsViolations(t *testing.T) {
	server := newTestServer(t)

	body := `{"usingOwnEggs":"TRUE","previousIVF":"FALSE","reasonKnown":"TRUE","age":19,"weight":0,"heightFeet":5,"heightInches":4}`
	rec := doRequest(t, server, http.MethodPost, "/api/v1/calculate", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Field != "age" {
		t.Errorf("field = %q, want age", resp.Field)
	}
	if len(resp.Violations) != 2 {
		t.Errorf("violations = %v, want age and weight", resp.Violations)
	}
}

func TestListFormulas(t *testing.T) {
	server := newTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/formulas", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp FormulasListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Formulas) != 6 {
		t.Fatalf("got %d formulas, want 6", len(resp.Formulas))
	}
	first := resp.Formulas[0]
	if first.UsingOwnEggs != "FALSE" || first.PreviousIVF != "N/A" || first.Formula != "1-donor" {
		t.Errorf("first formula = %+v, want FALSE/N/A 1-donor", first)
	}
}

func TestMetricsCountCalculations(t *testing.T) {
	server := newTestServer(t)
	before := logger.Snapshot()

	doRequest(t, server, http.MethodPost, "/api/v1/calculate", referenceBody)
	doRequest(t, server, http.MethodPost, "/api/v1/calculate", `{"usingOwnEggs":"FALSE","previousIVF":"TRUE","reasonKnown":"TRUE","age":35,"weight":154,"heightFeet":5,"heightInches":4}`)

	rec := doRequest(t, server, http.MethodGet, "/api/v1/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var after logger.Metrics
	if err := json.NewDecoder(rec.Body).Decode(&after); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if d := after.Calculations - before.Calculations; d != 1 {
		t.Errorf("calculations increased by %d, want 1", d)
	}
	if d := after.FormulaMisses - before.FormulaMisses; d != 1 {
		t.Errorf("formulaMisses increased by %d, want 1", d)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/calculate", nil)
	req.Header.Set("Origin", "https://clinic.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://clinic.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want the configured origin", got)
	}
}

func TestNumberUnmarshal(t *testing.T) {
	testCases := []struct {
		input   string
		want    Number
		wantErr bool
	}{
		{`35`, 35, false},
		{`"35"`, 35, false},
		{`" 5.5 "`, 5.5, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
		{`true`, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			var n Number
			err := json.NewDecoder(bytes.NewBufferString(tc.input)).Decode(&n)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Decode(%s) error = %v, wantErr %v", tc.input, err, tc.wantErr)
			}
			if !tc.wantErr && n != tc.want {
				t.Errorf("Decode(%s) = %v, want %v", tc.input, n, tc.want)
			}
		})
	}
}
