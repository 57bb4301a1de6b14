// Copyright 2025 Certen Protocol
//
// Configuration for the verified action ledger. Loaded from an optional YAML
// file (gopkg.in/yaml.v3) and overridden by environment variables, following
// the teacher's getEnv/getEnvInt/getEnvBool/getEnvDuration idiom.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all tunables recognized by the ledger, per spec.md section 6.
type Config struct {
	// Consensus
	Threshold     int `yaml:"threshold"`
	Participants  int `yaml:"participants"`
	MaxBlockTxs   int `yaml:"max_block_txs"`
	MinThreshold  int `yaml:"min_threshold"`
	MaxParticipants int `yaml:"max_participants"`

	ViewTimeout         time.Duration `yaml:"view_timeout"`
	VerificationTimeout time.Duration `yaml:"verification_timeout"`

	// Identity & network
	OwnID        string   `yaml:"own_id"`
	ListenAddr   string   `yaml:"listen_addr"`
	Validators   []string `yaml:"validators"`

	// Storage
	EventStoreConn string `yaml:"event_store_conn"`
	DataDir        string `yaml:"data_dir"`

	// Rate guard (C7)
	MinSpawnStake int64 `yaml:"min_spawn_stake"`

	// Mutual TLS for validator-to-validator transport. Empty CertFile leaves
	// the transport on plain HTTP, matching a development single-process run.
	TLSCertFile     string `yaml:"tls_cert_file"`
	TLSKeyFile      string `yaml:"tls_key_file"`
	TLSClientCAFile string `yaml:"tls_client_ca_file"`
	TLSRootCAFile   string `yaml:"tls_root_ca_file"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the spec's documented defaults (section 6).
func Default() *Config {
	return &Config{
		Threshold:       3,
		Participants:    5,
		MaxBlockTxs:     1000,
		MinThreshold:    3,
		MaxParticipants: 100,

		ViewTimeout:         2000 * time.Millisecond,
		VerificationTimeout: 2000 * time.Millisecond,

		OwnID:      "validator-1",
		ListenAddr: "0.0.0.0:7070",

		DataDir: "./data",

		MinSpawnStake: 100,

		LogLevel: "info",
	}
}

// Load reads an optional YAML file at path (skipped if empty or missing),
// then overlays environment variables on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Threshold = getEnvInt("THRESHOLD", cfg.Threshold)
	cfg.Participants = getEnvInt("PARTICIPANTS", cfg.Participants)
	cfg.MaxBlockTxs = getEnvInt("MAX_BLOCK_TXS", cfg.MaxBlockTxs)
	cfg.MinThreshold = getEnvInt("MIN_THRESHOLD", cfg.MinThreshold)
	cfg.MaxParticipants = getEnvInt("MAX_PARTICIPANTS", cfg.MaxParticipants)

	cfg.ViewTimeout = getEnvDuration("VIEW_TIMEOUT_MS", cfg.ViewTimeout)
	cfg.VerificationTimeout = getEnvDuration("VERIFICATION_TIMEOUT_MS", cfg.VerificationTimeout)

	cfg.OwnID = getEnv("OWN_ID", cfg.OwnID)
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	if v := getEnv("VALIDATORS", ""); v != "" {
		cfg.Validators = strings.Split(v, ",")
	}

	cfg.EventStoreConn = getEnv("EVENT_STORE_CONN", cfg.EventStoreConn)
	cfg.DataDir = getEnv("DATA_DIR", cfg.DataDir)

	cfg.MinSpawnStake = getEnvInt64("MIN_SPAWN_STAKE", cfg.MinSpawnStake)

	cfg.TLSCertFile = getEnv("TLS_CERT_FILE", cfg.TLSCertFile)
	cfg.TLSKeyFile = getEnv("TLS_KEY_FILE", cfg.TLSKeyFile)
	cfg.TLSClientCAFile = getEnv("TLS_CLIENT_CA_FILE", cfg.TLSClientCAFile)
	cfg.TLSRootCAFile = getEnv("TLS_ROOT_CA_FILE", cfg.TLSRootCAFile)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	return cfg, nil
}

// Validate checks invariants required before the ledger can start.
func (c *Config) Validate() error {
	var errs []string

	if c.MinThreshold < 3 {
		errs = append(errs, "MIN_THRESHOLD must be >= 3")
	}
	if c.MaxParticipants > 100 {
		errs = append(errs, "MAX_PARTICIPANTS must be <= 100")
	}
	if c.Threshold < c.MinThreshold {
		errs = append(errs, fmt.Sprintf("THRESHOLD (%d) must be >= MIN_THRESHOLD (%d)", c.Threshold, c.MinThreshold))
	}
	if c.Participants < c.Threshold || c.Participants > c.MaxParticipants {
		errs = append(errs, fmt.Sprintf("PARTICIPANTS (%d) must be within [THRESHOLD=%d, MAX_PARTICIPANTS=%d]", c.Participants, c.Threshold, c.MaxParticipants))
	}
	if c.OwnID == "" {
		errs = append(errs, "OWN_ID is required")
	}
	if len(c.Validators) > 0 && c.Participants != len(c.Validators) {
		errs = append(errs, fmt.Sprintf("PARTICIPANTS (%d) must match len(VALIDATORS) (%d)", c.Participants, len(c.Validators)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
