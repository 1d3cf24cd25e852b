package config

import (
	"testing"
	"time"
)

func TestLoadEnv_Defaults(t *testing.T) {
	LoadEnv()

	if PostgresHost == "" {
		t.Error("Expected a default postgres host")
	}
	if RedisAddr == "" {
		t.Error("Expected a default redis address")
	}
	if ServerPort == "" {
		t.Error("Expected a default server port")
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("REDIS_ADDR", "cache.internal:6380")

	LoadEnv()

	if PostgresHost != "db.internal" {
		t.Errorf("Expected postgres host db.internal, got %s", PostgresHost)
	}
	if RedisAddr != "cache.internal:6380" {
		t.Errorf("Expected redis address cache.internal:6380, got %s", RedisAddr)
	}
}

func TestSessionConfigFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		budget   string
		interval string
		want     SessionConfig
	}{
		{
			name: "defaults",
			want: DefaultSessionConfig,
		},
		{
			name:     "overrides in seconds",
			budget:   "600",
			interval: "15",
			want: SessionConfig{
				TimeBudget:      10 * time.Minute,
				RenewalInterval: 15 * time.Second,
				CacheTTLFloor:   DefaultSessionConfig.CacheTTLFloor,
				ExpirySweep:     DefaultSessionConfig.ExpirySweep,
			},
		},
		{
			name:     "invalid values fall back",
			budget:   "not-a-number",
			interval: "-5",
			want:     DefaultSessionConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.budget != "" {
				t.Setenv("SESSION_TIME_BUDGET", tt.budget)
			}
			if tt.interval != "" {
				t.Setenv("SESSION_RENEWAL_INTERVAL", tt.interval)
			}

			got := SessionConfigFromEnv()
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
