package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	TokenSigningKey   string        `mapstructure:"TOKEN_SIGNING_KEY"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`
	LoginFallback     bool          `mapstructure:"LOGIN_FALLBACK"`
	ReactorQueueSize  int           `mapstructure:"REACTOR_QUEUE_SIZE"`
	WSSendBuffer      int           `mapstructure:"WS_SEND_BUFFER"`
	StoreWorkers      int           `mapstructure:"STORE_WORKERS"`
	StoreWriteTimeout time.Duration `mapstructure:"STORE_WRITE_TIMEOUT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS",
	"TOKEN_SIGNING_KEY", "TOKEN_TTL", "LOGIN_FALLBACK",
	"REACTOR_QUEUE_SIZE", "WS_SEND_BUFFER",
	"STORE_WORKERS", "STORE_WRITE_TIMEOUT",
}

// Load reads the environment, falling back to an optional .env file in the
// working directory. DATABASE_URL may be empty; the hub then runs without
// persistence.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("LOGIN_FALLBACK", true)
	v.SetDefault("REACTOR_QUEUE_SIZE", 1024)
	v.SetDefault("WS_SEND_BUFFER", 256)
	v.SetDefault("STORE_WORKERS", 8)
	v.SetDefault("STORE_WRITE_TIMEOUT", "5s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = nil
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HasDatabase reports whether a document and account store is configured.
func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// Validate checks that the configuration is safe to run. Sizes must be
// positive. TOKEN_SIGNING_KEY, when set, must be hex encoding at least 32
// bytes, and it is required in production.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) and DB_MAX_CONNS (%d) must satisfy 0 <= min <= max, max > 0",
			c.DBMinConns, c.DBMaxConns)
	}
	for name, n := range map[string]int{
		"REACTOR_QUEUE_SIZE": c.ReactorQueueSize,
		"WS_SEND_BUFFER":     c.WSSendBuffer,
		"STORE_WORKERS":      c.StoreWorkers,
	} {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.StoreWriteTimeout <= 0 {
		return fmt.Errorf("STORE_WRITE_TIMEOUT must be positive, got %s", c.StoreWriteTimeout)
	}

	if c.IsProduction() && c.TokenSigningKey == "" {
		return fmt.Errorf("TOKEN_SIGNING_KEY is required in production")
	}
	if c.TokenSigningKey != "" {
		if _, err := c.decodeSigningKey(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) decodeSigningKey() ([]byte, error) {
	key, err := hex.DecodeString(c.TokenSigningKey)
	if err != nil {
		return nil, fmt.Errorf("TOKEN_SIGNING_KEY is not valid hex: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("TOKEN_SIGNING_KEY must be at least 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// SigningKey returns the decoded token key. Without a configured key it
// generates a random one, so tokens do not survive a restart; generated
// reports that case.
func (c *Config) SigningKey() (key []byte, generated bool, err error) {
	if c.TokenSigningKey != "" {
		key, err = c.decodeSigningKey()
		return key, false, err
	}
	key = make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate signing key: %w", err)
	}
	return key, true, nil
}
