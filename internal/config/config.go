package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	HTTPAddr         string    `json:"httpAddr"`
	DefaultPatientID string    `json:"defaultPatientId"`
	Retention        Retention `json:"retention"`
	Storage          Storage   `json:"storage"`
	Broadcast        Broadcast `json:"broadcast"`
	// AuthTokens maps bearer tokens to the patient bound to that credential.
	// Stands in for a real identity provider; see internal/auth.
	AuthTokens map[string]string `json:"authTokens"`
}

// Retention bounds the per-patient reading history.
type Retention struct {
	MaxAgeMs int64 `json:"maxAgeMs"`
	MaxCount int   `json:"maxCount"`
}

// MaxAge returns the time bound as a duration.
func (r Retention) MaxAge() time.Duration { return time.Duration(r.MaxAgeMs) * time.Millisecond }

// Storage captures timeout settings for the store.
type Storage struct {
	// OpTimeoutMs bounds a single storage operation from the pipeline.
	OpTimeoutMs int64 `json:"opTimeoutMs"`
}

// OpTimeout returns the per-operation bound as a duration.
func (s Storage) OpTimeout() time.Duration { return time.Duration(s.OpTimeoutMs) * time.Millisecond }

// Broadcast tunes the live fan-out hub.
type Broadcast struct {
	// SubscriberBuffer is the per-subscriber channel capacity. When a slow
	// subscriber's buffer fills, new readings for it are dropped.
	SubscriberBuffer int `json:"subscriberBuffer"`
}

// Default returns built-in defaults: a ten-minute window of one reading per
// second, matching the collection cadence of the pad hardware.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Retention: Retention{
			MaxAgeMs: 10 * 60 * 1000,
			MaxCount: 600,
		},
		Storage:   Storage{OpTimeoutMs: 5000},
		Broadcast: Broadcast{SubscriberBuffer: 64},
	}
}

// Load reads configuration from a JSON file. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return Config{}, errors.New("yaml config not supported; use JSON")
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	if cfg.Retention.MaxCount <= 0 {
		cfg.Retention.MaxCount = Default().Retention.MaxCount
	}
	if cfg.Retention.MaxAgeMs <= 0 {
		cfg.Retention.MaxAgeMs = Default().Retention.MaxAgeMs
	}
	return cfg, nil
}
