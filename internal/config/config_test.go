package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "postgres://localhost/relief?sslmode=disable")
	t.Setenv("GEO_MAXMIND_DB", "/var/lib/geoip/GeoLite2-Country.mmdb")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, "/ws", cfg.WSPath)
	assert.Equal(t, 30*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, 2*time.Hour, cfg.SessionIdleTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionAbsoluteTTL)
	assert.Equal(t, 64, cfg.SendBuffer)
	assert.Equal(t, "session:", cfg.SessionKeyPrefix)
	assert.True(t, cfg.GeoEnabled)
	assert.Equal(t, []string{"GR"}, cfg.AllowedCountries())
	assert.Empty(t, cfg.KafkaBrokersList())
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("HEARTBEAT_INTERVAL", "10s")
	t.Setenv("GEO_ALLOWED_COUNTRIES", "gr, cy")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("GEO_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval)
	assert.Equal(t, []string{"GR", "CY"}, cfg.AllowedCountries())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokersList())
	assert.False(t, cfg.GeoEnabled)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing dsn", map[string]string{"DATABASE_DSN": ""}},
		{"bad ws path", map[string]string{"WS_PATH": "ws"}},
		{"zero heartbeat", map[string]string{"HEARTBEAT_INTERVAL": "0s"}},
		{"idle above absolute", map[string]string{"SESSION_IDLE_TTL": "48h"}},
		{"geo without source", map[string]string{"GEO_MAXMIND_DB": ""}},
		{"geo without countries", map[string]string{"GEO_ALLOWED_COUNTRIES": " , "}},
		{"directory max age under two heartbeats", map[string]string{"HEARTBEAT_INTERVAL": "1m", "SESSION_DIRECTORY_MAX_AGE": "90s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
