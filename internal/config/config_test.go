package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.FormulaSource != SourceCSV {
		t.Errorf("FormulaSource = %q, want %q", cfg.FormulaSource, SourceCSV)
	}
	if cfg.RequestTimeout != 60*time.Second {
		t.Errorf("RequestTimeout = %s, want 60s", cfg.RequestTimeout)
	}
	if cfg.FormulaCacheTTL != 0 {
		t.Errorf("FormulaCacheTTL = %s, want 0", cfg.FormulaCacheTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(KeyHTTPAddr, ":9090")
	t.Setenv(KeyFormulaSource, " Postgres ")
	t.Setenv(KeyDatabaseURL, "postgres://localhost/ivf?sslmode=disable")
	t.Setenv(KeyCORSOrigins, "https://a.example, https://b.example,")
	t.Setenv(KeyRequestTimeout, "5s")
	t.Setenv(KeyFormulaCacheTTL, "10m")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() failed: %v", err)
	}

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.FormulaSource != SourcePostgres {
		t.Errorf("FormulaSource = %q, want %q", cfg.FormulaSource, SourcePostgres)
	}
	if got := strings.Join(cfg.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %s, want 5s", cfg.RequestTimeout)
	}
	if cfg.FormulaCacheTTL != 10*time.Minute {
		t.Errorf("FormulaCacheTTL = %s, want 10m", cfg.FormulaCacheTTL)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ivf.yaml")
	content := "formula_source: sqlite\nformula_path: /var/lib/ivf/formulas.db\nhttp_addr: \":7070\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	t.Setenv(KeyConfigFile, path)
	t.Setenv(KeyHTTPAddr, ":6060")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() failed: %v", err)
	}

	if cfg.FormulaSource != SourceSQLite {
		t.Errorf("FormulaSource = %q, want %q", cfg.FormulaSource, SourceSQLite)
	}
	if cfg.FormulaPath != "/var/lib/ivf/formulas.db" {
		t.Errorf("FormulaPath = %q", cfg.FormulaPath)
	}
	if cfg.HTTPAddr != ":6060" {
		t.Errorf("environment should override file, HTTPAddr = %q", cfg.HTTPAddr)
	}
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name   string
		env    map[string]string
		errMsg string
	}{
		{"Unknown source", map[string]string{KeyFormulaSource: "mongo"}, "unsupported"},
		{"Postgres without URL", map[string]string{KeyFormulaSource: "postgres"}, KeyDatabaseURL},
		{"CSV without path", map[string]string{KeyFormulaPath: ""}, KeyFormulaPath},
		{"Zero timeout", map[string]string{KeyRequestTimeout: "0s"}, KeyRequestTimeout},
		{"Negative TTL", map[string]string{KeyFormulaCacheTTL: "-1m"}, KeyFormulaCacheTTL},
		{"Missing config file", map[string]string{KeyConfigFile: "/nonexistent/ivf.yaml"}, "read config file"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := FromEnv()
			if err == nil {
				t.Fatal("FromEnv() should fail")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("FromEnv() error = %v, want to contain %q", err, tc.errMsg)
			}
		})
	}
}
