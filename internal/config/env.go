package config

import (
	"os"
	"strconv"
)

// FromEnv overlays VITALS_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("VITALS_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("VITALS_DEFAULT_PATIENT_ID"); v != "" {
		cfg.DefaultPatientID = v
	}
	if v := os.Getenv("VITALS_RETENTION_MAX_AGE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Retention.MaxAgeMs = n
		}
	}
	if v := os.Getenv("VITALS_RETENTION_MAX_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Retention.MaxCount = n
		}
	}
	if v := os.Getenv("VITALS_STORAGE_OP_TIMEOUT_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Storage.OpTimeoutMs = n
		}
	}
	if v := os.Getenv("VITALS_BROADCAST_SUBSCRIBER_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Broadcast.SubscriberBuffer = n
		}
	}
}
