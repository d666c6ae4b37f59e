// Package config loads gateway configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	DatabaseDSN string `mapstructure:"DATABASE_DSN"`

	// SessionIdleTTL is the rolling expiry refreshed on every authenticated request.
	SessionIdleTTL time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	// SessionAbsoluteTTL caps a session's lifetime regardless of activity.
	SessionAbsoluteTTL time.Duration `mapstructure:"SESSION_ABSOLUTE_TTL"`
	CookieSecure       bool          `mapstructure:"COOKIE_SECURE"`
	// SessionKeyPrefix must match the prefix the web application writes sessions under.
	SessionKeyPrefix string `mapstructure:"SESSION_KEY_PREFIX"`

	WSPath           string `mapstructure:"WS_PATH"`
	WSAllowedOrigins string `mapstructure:"WS_ALLOWED_ORIGINS"`
	// HeartbeatInterval is the liveness probe period; a silent socket is pruned after two.
	HeartbeatInterval time.Duration `mapstructure:"HEARTBEAT_INTERVAL"`
	SendBuffer        int           `mapstructure:"SEND_BUFFER"`

	DirectoryMaxAge        time.Duration `mapstructure:"SESSION_DIRECTORY_MAX_AGE"`
	DirectorySweepInterval time.Duration `mapstructure:"SESSION_DIRECTORY_SWEEP_INTERVAL"`

	GeoEnabled          bool          `mapstructure:"GEO_ENABLED"`
	GeoAllowedCountries string        `mapstructure:"GEO_ALLOWED_COUNTRIES"`
	GeoMaxMindDB        string        `mapstructure:"GEO_MAXMIND_DB"`
	GeoHTTPURL          string        `mapstructure:"GEO_HTTP_URL"`
	GeoCacheTTL         time.Duration `mapstructure:"GEO_CACHE_TTL"`

	// PublishToken guards POST /internal/events. Empty disables the endpoint.
	PublishToken string `mapstructure:"PUBLISH_TOKEN"`

	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// PGNotifyChannel enables the LISTEN/NOTIFY event source when set.
	PGNotifyChannel string `mapstructure:"PG_NOTIFY_CHANNEL"`
}

// Load reads .env (if present), then the environment, applies defaults and validates.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SESSION_IDLE_TTL", "2h")
	v.SetDefault("SESSION_ABSOLUTE_TTL", "24h")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("SESSION_KEY_PREFIX", "session:")
	v.SetDefault("WS_PATH", "/ws")
	v.SetDefault("WS_ALLOWED_ORIGINS", "")
	v.SetDefault("HEARTBEAT_INTERVAL", "30s")
	v.SetDefault("SEND_BUFFER", 64)
	v.SetDefault("SESSION_DIRECTORY_MAX_AGE", "24h")
	v.SetDefault("SESSION_DIRECTORY_SWEEP_INTERVAL", "5m")
	v.SetDefault("GEO_ENABLED", true)
	v.SetDefault("GEO_ALLOWED_COUNTRIES", "GR")
	v.SetDefault("GEO_MAXMIND_DB", "")
	v.SetDefault("GEO_HTTP_URL", "")
	v.SetDefault("GEO_CACHE_TTL", "1h")
	v.SetDefault("PUBLISH_TOKEN", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "case-events")
	v.SetDefault("KAFKA_GROUP_ID", "notification-gateway")
	v.SetDefault("PG_NOTIFY_CHANNEL", "")
}

func (c *Config) validate() error {
	if c.AppPort == "" {
		return errors.New("config: APP_PORT must be set")
	}
	if c.DatabaseDSN == "" {
		return errors.New("config: DATABASE_DSN must be set")
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		return errors.New("config: WS_PATH must start with /")
	}
	if c.HeartbeatInterval <= 0 {
		return errors.New("config: HEARTBEAT_INTERVAL must be positive")
	}
	// a healthy socket refreshes its directory entry at most once per
	// heartbeat; anything shorter than two would expire it between pongs
	if c.DirectoryMaxAge < 2*c.HeartbeatInterval {
		return errors.New("config: SESSION_DIRECTORY_MAX_AGE must be at least twice HEARTBEAT_INTERVAL")
	}
	if c.SessionIdleTTL <= 0 || c.SessionAbsoluteTTL <= 0 {
		return errors.New("config: session TTLs must be positive")
	}
	if c.SessionIdleTTL > c.SessionAbsoluteTTL {
		return errors.New("config: SESSION_IDLE_TTL must not exceed SESSION_ABSOLUTE_TTL")
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	if c.GeoEnabled {
		if len(c.AllowedCountries()) == 0 {
			return errors.New("config: GEO_ALLOWED_COUNTRIES must list at least one country when GEO_ENABLED")
		}
		if c.GeoMaxMindDB == "" && c.GeoHTTPURL == "" {
			return errors.New("config: GEO_MAXMIND_DB or GEO_HTTP_URL is required when GEO_ENABLED")
		}
	}
	return nil
}

// AllowedCountries returns the upper-cased ISO country codes from GEO_ALLOWED_COUNTRIES.
func (c *Config) AllowedCountries() []string {
	return splitList(strings.ToUpper(c.GeoAllowedCountries))
}

// AllowedOrigins returns the websocket origins accepted besides same-host requests.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.WSAllowedOrigins)
}

// KafkaBrokersList returns broker addresses; empty disables the Kafka event source.
func (c *Config) KafkaBrokersList() []string {
	return splitList(c.KafkaBrokers)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
