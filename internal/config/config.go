package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds configurable parameters.
type Config struct {
	Hotkey         []string `json:"hotkey"`
	Model          string   `json:"model"`
	AutoPaste      bool     `json:"auto_paste"`
	Language       string   `json:"language"`
	APIEndpoint    string   `json:"api_endpoint"`
	Token          string   `json:"token"`
	ExtraConfig    string   `json:"extra_config"`
	TextPath       string   `json:"text_path"`
	SampleRate     int      `json:"sample_rate"`
	Channels       int      `json:"channels"`
	RequestTimeout int      `json:"request_timeout"`
	MaxRetry       int      `json:"max_retry"`
	RetryBaseDelay float64  `json:"retry_base_delay"`
	EnableHTTP2    bool     `json:"enable_http2"`
	VerifySSL      bool     `json:"verify_ssl"`
	Notification   bool     `json:"notification"`
	SaveRecordings bool     `json:"save_recordings"`
}

var allowedModels = map[string]bool{
	"tiny":     true,
	"base":     true,
	"small":    true,
	"medium":   true,
	"large":    true,
	"large-v2": true,
	"large-v3": true,
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Hotkey:         []string{"ctrl", "cmd"},
		Model:          "base",
		AutoPaste:      true,
		Language:       "en",
		APIEndpoint:    "http://127.0.0.1:8080/v1/audio/transcriptions",
		Token:          "",
		ExtraConfig:    "",
		TextPath:       "text",
		SampleRate:     16000,
		Channels:       1,
		RequestTimeout: 30,
		MaxRetry:       3,
		RetryBaseDelay: 0.5,
		EnableHTTP2:    true,
		VerifySSL:      true,
		Notification:   false,
		SaveRecordings: false,
	}
}

// Dir returns the per-user data directory (~/.voicehero), creating it if
// needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, ".voicehero")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// RecordingsDir returns the directory for saved recordings and debug logs,
// creating it if needed.
func RecordingsDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	rec := filepath.Join(dir, "recordings")
	if err := os.MkdirAll(rec, 0755); err != nil {
		return "", fmt.Errorf("create recordings directory: %w", err)
	}
	return rec, nil
}

// DefaultPath returns the default config file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load loads config from a JSON file. A missing file is not an error: the
// defaults are written to the path and returned, with created = true.
func Load(path string) (cfg Config, created bool, err error) {
	cfg = DefaultConfig()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		if werr := Save(path, cfg); werr != nil {
			return cfg, false, werr
		}
		return cfg, true, nil
	}
	if err != nil {
		return cfg, false, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, false, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, false, nil
}

// Save writes the config JSON to the provided path.
func Save(path string, cfg Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0644)
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if len(cfg.Hotkey) == 0 {
		return fmt.Errorf("hotkey must list at least one key")
	}
	for _, k := range cfg.Hotkey {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("hotkey contains an empty key name")
		}
	}
	if !allowedModels[cfg.Model] {
		return fmt.Errorf("invalid model: %q (allowed: tiny, base, small, medium, large, large-v2, large-v3)", cfg.Model)
	}
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("invalid sample_rate: %d (must be > 0)", cfg.SampleRate)
	}
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid channels: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.APIEndpoint == "" {
		return fmt.Errorf("api_endpoint must be set")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request_timeout: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.MaxRetry < 1 {
		return fmt.Errorf("invalid max_retry: %d (must be >= 1)", cfg.MaxRetry)
	}
	if cfg.RetryBaseDelay < 0 {
		return fmt.Errorf("invalid retry_base_delay: %v (must be >= 0)", cfg.RetryBaseDelay)
	}
	if cfg.ExtraConfig != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &extra); err != nil {
			return fmt.Errorf("extra_config is not a JSON object: %w", err)
		}
	}
	return nil
}
