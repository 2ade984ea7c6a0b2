package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mzyy94/ulcscan/internal/keyspace"
	"github.com/mzyy94/ulcscan/internal/scan"
)

// Config holds the scan daemon's operator settings. Zero values fall
// back to defaults; environment variables override the file.
type Config struct {
	Port       string `yaml:"port"`        // serial port, e.g. /dev/ttyUSB0
	StartKey   string `yaml:"start_key"`   // 32 hex digits, spaces and colons allowed
	EndKey     string `yaml:"end_key"`     // defaults to FF..FF
	Mode       string `yaml:"mode"`        // power-cycle or reload-only
	ListenAddr string `yaml:"listen_addr"` // web ui listen address, empty disables
	DataDir    string `yaml:"data_dir"`    // key store location
	ReportDir  string `yaml:"report_dir"`  // PDF report location, empty disables
	LogLevel   string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Mode:     "power-cycle",
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads and validates a YAML config file. Unknown keys are
// rejected so typos surface instead of silently falling back.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	cfg := Default()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the key and mode fields. Empty values pass; they mean
// the defaults.
func (c Config) Validate() error {
	if c.StartKey != "" {
		if _, err := keyspace.ParseKey(c.StartKey); err != nil {
			return fmt.Errorf("start_key: %w", err)
		}
	}
	if c.EndKey != "" {
		if _, err := keyspace.ParseKey(c.EndKey); err != nil {
			return fmt.Errorf("end_key: %w", err)
		}
	}
	if _, err := scan.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := c.KeyRange(); err != nil {
		return err
	}
	return nil
}

// KeyRange resolves the configured start and end keys. An empty start
// is all zeroes, an empty end is all 0xFF.
func (c Config) KeyRange() (keyspace.Range, error) {
	rng := keyspace.FullRange(keyspace.Key{})
	if c.StartKey != "" {
		k, err := keyspace.ParseKey(c.StartKey)
		if err != nil {
			return keyspace.Range{}, fmt.Errorf("start_key: %w", err)
		}
		rng.Start = k
	}
	if c.EndKey != "" {
		k, err := keyspace.ParseKey(c.EndKey)
		if err != nil {
			return keyspace.Range{}, fmt.Errorf("end_key: %w", err)
		}
		rng.End = k
	}
	if !rng.Valid() {
		return keyspace.Range{}, fmt.Errorf("start_key %s is above end_key %s", rng.Start, rng.End)
	}
	return rng, nil
}

// ScanMode resolves the configured mode string.
func (c Config) ScanMode() (scan.Mode, error) {
	return scan.ParseMode(c.Mode)
}
