package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Session lifecycle configuration
type SessionConfig struct {
	TimeBudget      time.Duration // Total time allowed per attempt
	RenewalInterval time.Duration // Interval between background keep-alive touches
	CacheTTLFloor   time.Duration // Minimum TTL used when re-caching a near-deadline attempt
	ExpirySweep     time.Duration // Interval between expiry sweeps over overdue attempts
}

var DefaultSessionConfig = SessionConfig{
	TimeBudget:      30 * time.Minute,
	RenewalInterval: 30 * time.Second,
	CacheTTLFloor:   10 * time.Second,
	ExpirySweep:     time.Minute,
}

// SessionConfigFromEnv returns the default session configuration with any
// overrides found in the environment (values in seconds)
func SessionConfigFromEnv() SessionConfig {
	cfg := DefaultSessionConfig
	cfg.TimeBudget = envSeconds("SESSION_TIME_BUDGET", cfg.TimeBudget)
	cfg.RenewalInterval = envSeconds("SESSION_RENEWAL_INTERVAL", cfg.RenewalInterval)
	cfg.ExpirySweep = envSeconds("SESSION_EXPIRY_SWEEP", cfg.ExpirySweep)
	return cfg
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		log.Printf("Invalid %s value %q, using default", key, value)
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
