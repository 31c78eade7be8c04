package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sadopc/studylog/internal/timer"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ============================================================
// Defaults & YAML
// ============================================================

func TestMissingFileGivesDefaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	def := Default()
	if cfg != def {
		t.Fatalf("expected defaults %+v, got %+v", def, cfg)
	}
	if cfg.Addr != ":5001" || cfg.LogLevel != "info" || cfg.Policy != timer.PolicyAwaitRating {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.DBPath, filepath.Join("studylog", "studylog.db")) {
		t.Fatalf("db path = %q", cfg.DBPath)
	}
}

func TestYAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
db_path: /tmp/study.db
addr: 127.0.0.1:9000
log_level: DEBUG
completion_policy: auto_advance
`)
	cfg, err := load(path, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/study.db" || cfg.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "debug" || cfg.Policy != timer.PolicyAutoAdvance {
		t.Fatalf("unexpected: %+v", cfg)
	}
}

func TestYAMLInvalidValuesIgnored(t *testing.T) {
	path := writeFile(t, "config.yaml", "log_level: loud\ncompletion_policy: whenever\n")
	cfg, err := load(path, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != DefaultLogLevel || cfg.Policy != timer.PolicyAwaitRating {
		t.Fatalf("invalid values should be ignored: %+v", cfg)
	}
}

func TestYAMLParseError(t *testing.T) {
	path := writeFile(t, "config.yaml", "addr: [unterminated\n")
	if _, err := load(path, envMap(nil)); err == nil {
		t.Fatal("expected parse error")
	}
}

// ============================================================
// Environment
// ============================================================

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "addr: :7000\nlog_level: warn\n")
	cfg, err := load(path, envMap(map[string]string{
		"STUDYLOG_ADDR":      ":8080",
		"STUDYLOG_LOG_LEVEL": "trace",
		"STUDYLOG_API_URL":   "http://studybox:5001",
		"STUDYLOG_POLICY":    "auto_advance",
		"STUDYLOG_DB":        "/data/s.db",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		DBPath:   "/data/s.db",
		Addr:     ":8080",
		APIURL:   "http://studybox:5001",
		LogLevel: "trace",
		LogFile:  cfg.LogFile,
		Policy:   timer.PolicyAutoAdvance,
	}
	if cfg != want {
		t.Fatalf("got %+v, want %+v", cfg, want)
	}
}

func TestPortEnv(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "none.yaml")
	cfg, _ := load(missing, envMap(map[string]string{"PORT": "3000"}))
	if cfg.Addr != ":3000" {
		t.Fatalf("PORT: addr = %q", cfg.Addr)
	}
	cfg, _ = load(missing, envMap(map[string]string{"PORT": "3000", "STUDYLOG_ADDR": "0.0.0.0:4000"}))
	if cfg.Addr != "0.0.0.0:4000" {
		t.Fatalf("STUDYLOG_ADDR should win over PORT, got %q", cfg.Addr)
	}
}

func TestDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "STUDYLOG_TEST_DOTENV=from-file\n")
	t.Setenv("STUDYLOG_TEST_DOTENV", "")
	os.Unsetenv("STUDYLOG_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("STUDYLOG_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("dotenv value = %q", got)
	}
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	path := writeFile(t, ".env", "STUDYLOG_TEST_KEEP=from-file\n")
	t.Setenv("STUDYLOG_TEST_KEEP", "from-env")
	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("STUDYLOG_TEST_KEEP"); got != "from-env" {
		t.Fatalf("existing variable overwritten: %q", got)
	}
}

// ============================================================
// Save
// ============================================================

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Addr = ":6000"
	cfg.APIURL = "http://localhost:6000"
	cfg.Policy = timer.PolicyAutoAdvance
	cfg.LogLevel = "debug"

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := load(path, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Fatalf("round trip: got %+v, want %+v", got, cfg)
	}
}
