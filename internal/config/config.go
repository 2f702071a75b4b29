package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string   `mapstructure:"PORT"`
	Env                 string   `mapstructure:"ENV"`
	DatabaseURL         string   `mapstructure:"DATABASE_URL"`
	DBMaxConns          int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns          int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL            string   `mapstructure:"REDIS_URL"`
	AuthSigningKey      string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer          string   `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL         string   `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience        string   `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins         []string `mapstructure:"CORS_ORIGINS"`
	IntakeRateLimit     int      `mapstructure:"INTAKE_RATE_LIMIT"`
	IntakeRateWindowMS  int64    `mapstructure:"INTAKE_RATE_WINDOW_MS"`
	KafkaBrokers        []string `mapstructure:"KAFKA_BROKERS"`
	KafkaNotifyTopic    string   `mapstructure:"KAFKA_NOTIFICATION_TOPIC"`
	OTELServiceName     string   `mapstructure:"OTEL_SERVICE_NAME"`
	OTELEndpoint        string   `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELHeaders         string   `mapstructure:"OTEL_EXPORTER_OTLP_HEADERS"`
	OTELInsecure        bool     `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTELRequired        bool     `mapstructure:"OTEL_REQUIRED"`
	OTELSampler         string   `mapstructure:"OTEL_TRACES_SAMPLER"`
	OTELSamplerArg      string   `mapstructure:"OTEL_TRACES_SAMPLER_ARG"`
	BodyLimit           string   `mapstructure:"BODY_LIMIT"`
	ReportAtomicUpdates bool     `mapstructure:"REPORT_ATOMIC_UPDATES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("INTAKE_RATE_LIMIT", 50)
	v.SetDefault("INTAKE_RATE_WINDOW_MS", 3600000)
	v.SetDefault("KAFKA_NOTIFICATION_TOPIC", "pv.notifications")
	v.SetDefault("OTEL_SERVICE_NAME", "pv-server")
	v.SetDefault("REPORT_ATOMIC_UPDATES", false)
	v.SetDefault("BODY_LIMIT", "1M")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
		"AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUDIENCE",
		"CORS_ORIGINS", "INTAKE_RATE_LIMIT", "INTAKE_RATE_WINDOW_MS",
		"KAFKA_BROKERS", "KAFKA_NOTIFICATION_TOPIC", "OTEL_SERVICE_NAME",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS", "OTEL_EXPORTER_OTLP_INSECURE",
		"OTEL_REQUIRED", "OTEL_TRACES_SAMPLER", "OTEL_TRACES_SAMPLER_ARG",
		"REPORT_ATOMIC_UPDATES", "BODY_LIMIT",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// splitList normalizes comma-separated env values into trimmed, non-empty
// entries regardless of whether viper already split them.
func splitList(parsed []string, raw string) []string {
	if len(parsed) > 0 {
		raw = strings.Join(parsed, ",")
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IntakeRateWindow returns the intake throttle window as a duration.
func (c *Config) IntakeRateWindow() time.Duration {
	return time.Duration(c.IntakeRateWindowMS) * time.Millisecond
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// HasAuthSource reports whether any token verification source is set.
func (c *Config) HasAuthSource() bool {
	return c.AuthSigningKey != "" || c.AuthJWKSURL != "" || c.AuthIssuer != ""
}

// Validate checks that the configuration is safe to run. Outside development a
// token verification source must be configured, since every admin request
// trusts the claims only after the signature has been checked.
func (c *Config) Validate() error {
	if !c.IsDev() && !c.HasAuthSource() {
		return fmt.Errorf("one of AUTH_SIGNING_KEY, AUTH_JWKS_URL or AUTH_ISSUER must be set when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
	}
	if c.IntakeRateLimit <= 0 {
		return fmt.Errorf("INTAKE_RATE_LIMIT must be positive, got %d", c.IntakeRateLimit)
	}
	if c.IntakeRateWindowMS <= 0 {
		return fmt.Errorf("INTAKE_RATE_WINDOW_MS must be positive, got %d", c.IntakeRateWindowMS)
	}
	return nil
}
