// Package config resolves studylog's runtime configuration from defaults, an
// optional YAML file, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/studylog/internal/timer"
)

const (
	appName        = "studylog"
	configFileName = "config.yaml"
	logFileName    = "studylog.log"

	DefaultAddr     = ":5001"
	DefaultLogLevel = "info"
)

type Config struct {
	DBPath   string
	Addr     string
	APIURL   string // when set, the CLI and TUI talk to this server instead of the local database
	LogLevel string
	LogFile  string
	Policy   timer.Policy
}

type yamlConfig struct {
	DBPath   string `yaml:"db_path,omitempty"`
	Addr     string `yaml:"addr,omitempty"`
	APIURL   string `yaml:"api_url,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	LogFile  string `yaml:"log_file,omitempty"`
	Policy   string `yaml:"completion_policy,omitempty"`
}

// Dir is the directory holding the database, the config file and the TUI log.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// DefaultPath is the location of config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func Default() Config {
	cfg := Config{
		Addr:     DefaultAddr,
		LogLevel: DefaultLogLevel,
		Policy:   timer.PolicyAwaitRating,
	}
	if dir, err := Dir(); err == nil {
		cfg.DBPath = filepath.Join(dir, "studylog.db")
		cfg.LogFile = filepath.Join(dir, logFileName)
	}
	return cfg
}

// LoadDotEnv loads the given .env files (".env" when none are given) into the
// process environment. Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load returns the defaults overlaid with the YAML file at path (DefaultPath when
// empty) and then the environment.
func Load(path string) (Config, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config file: %w", err)
	default:
		var fileData yamlConfig
		if err := yaml.Unmarshal(raw, &fileData); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
		applyYAML(&cfg, fileData)
	}

	applyEnv(&cfg, getenv)
	return cfg, nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	serialized, err := yaml.Marshal(yamlConfig{
		DBPath:   cfg.DBPath,
		Addr:     cfg.Addr,
		APIURL:   cfg.APIURL,
		LogLevel: cfg.LogLevel,
		LogFile:  cfg.LogFile,
		Policy:   string(cfg.Policy),
	})
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func applyYAML(cfg *Config, f yamlConfig) {
	if s := strings.TrimSpace(f.DBPath); s != "" {
		cfg.DBPath = expandHome(s)
	}
	if s := strings.TrimSpace(f.Addr); s != "" {
		cfg.Addr = s
	}
	if s := strings.TrimSpace(f.APIURL); s != "" {
		cfg.APIURL = s
	}
	if validLevel(f.LogLevel) {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(f.LogLevel))
	}
	if s := strings.TrimSpace(f.LogFile); s != "" {
		cfg.LogFile = expandHome(s)
	}
	if p, err := timer.ParsePolicy(f.Policy); err == nil && f.Policy != "" {
		cfg.Policy = p
	}
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("STUDYLOG_DB"); v != "" {
		cfg.DBPath = expandHome(v)
	}
	if v := getenv("PORT"); v != "" {
		cfg.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := getenv("STUDYLOG_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := getenv("STUDYLOG_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := getenv("STUDYLOG_LOG_LEVEL"); validLevel(v) {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("STUDYLOG_POLICY"); v != "" {
		if p, err := timer.ParsePolicy(v); err == nil {
			cfg.Policy = p
		}
	}
}

func validLevel(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && hclog.LevelFromString(s) != hclog.NoLevel
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
