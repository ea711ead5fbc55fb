// Package config reads the command-line tools' settings from environment
// variables. Flags on the individual commands override what Load returns.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"
)

// Config holds the tool settings, populated from environment variables.
type Config struct {
	AuxDir    string // calibration auxiliary data directory
	Sensor    string
	BlockSize int    // rows per block
	Separator rune   // tabular extraction field separator
	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	blockSize, err := parseBlockSize()
	if err != nil {
		return nil, err
	}
	sep, err := parseSeparator()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AuxDir:    envOrDefault("L1_AUX_DIR", "auxdata"),
		Sensor:    envOrDefault("L1_SENSOR", "MERIS"),
		BlockSize: blockSize,
		Separator: sep,
		LogLevel:  envOrDefault("L1_LOG_LEVEL", "info"),
		LogFormat: envOrDefault("L1_LOG_FORMAT", "json"),
	}

	if cfg.AuxDir == "" {
		return nil, errors.New("L1_AUX_DIR is required")
	}
	return cfg, nil
}

func parseBlockSize() (int, error) {
	s := envOrDefault("L1_BLOCK_SIZE", "100")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid L1_BLOCK_SIZE %q", s)
	}
	return n, nil
}

func parseSeparator() (rune, error) {
	s := envOrDefault("L1_SEPARATOR", ";")
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("invalid L1_SEPARATOR %q: want a single character", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
