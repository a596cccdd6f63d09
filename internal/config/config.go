package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends selectable through STORE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

type Config struct {
	Port         string `mapstructure:"PORT"`
	Env          string `mapstructure:"ENV"`
	StoreBackend string `mapstructure:"STORE_BACKEND"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	RedisURL      string `mapstructure:"REDIS_URL"`

	DBStatementTimeout time.Duration `mapstructure:"DB_STATEMENT_TIMEOUT"`

	HRAPIURL          string        `mapstructure:"HR_API_URL"`
	HRThirdPartyToken string        `mapstructure:"HR_THIRD_PARTY_TOKEN"`
	HospitalAPIURL    string        `mapstructure:"HOSPITAL_API_URL"`
	HospitalJWTToken  string        `mapstructure:"HOSPITAL_JWT_TOKEN"`
	HotelAPIURL       string        `mapstructure:"HOTEL_API_URL"`
	UpstreamTimeout   time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`

	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`
}

var keys = []string{
	"PORT", "ENV", "STORE_BACKEND",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_STATEMENT_TIMEOUT", "MIGRATIONS_DIR",
	"MONGO_URI", "MONGO_DATABASE", "REDIS_URL",
	"HR_API_URL", "HR_THIRD_PARTY_TOKEN", "HOSPITAL_API_URL", "HOSPITAL_JWT_TOKEN",
	"HOTEL_API_URL", "UPSTREAM_TIMEOUT",
	"AUTH_SIGNING_KEY", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_BACKEND", BackendPostgres)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "30s")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("MONGO_DATABASE", "portal")
	v.SetDefault("HR_API_URL", "http://localhost:8080")
	v.SetDefault("HOSPITAL_API_URL", "http://localhost:8081")
	v.SetDefault("HOTEL_API_URL", "http://localhost:8082")
	v.SetDefault("UPSTREAM_TIMEOUT", "8s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the selected backend is configured and that the
// collaborator endpoints are usable URLs.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is %q", BackendPostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required when STORE_BACKEND is %q", BackendMongo)
		}
	case BackendMemory:
		if !c.IsDev() {
			return fmt.Errorf("STORE_BACKEND %q is only allowed with ENV=development", BackendMemory)
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q, %q or %q, got %q",
			BackendPostgres, BackendMongo, BackendMemory, c.StoreBackend)
	}

	for name, raw := range map[string]string{
		"HR_API_URL":       c.HRAPIURL,
		"HOSPITAL_API_URL": c.HospitalAPIURL,
		"HOTEL_API_URL":    c.HotelAPIURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}

	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %s", c.UpstreamTimeout)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}
