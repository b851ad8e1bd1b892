package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ukydev/aivodrive/internal/db"
)

const devSecret = "aivodrive-development-secret"

type HTTPConfig struct {
	Port       int
	CORSOrigin string
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	LoginRatePerMinute int
	LoginRateBurst     int
}

type MQTTConfig struct {
	BrokerURL   string
	TopicPrefix string
}

type Config struct {
	Environment  string
	LogLevel     string
	SeedDatabase bool
	HTTP         HTTPConfig
	Mongo        MongoConfig
	Auth         AuthConfig
	MQTT         MQTTConfig
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads the optional .env file and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", 5000)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017/aivodrive")
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("SEED_DATABASE", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MQTT_TOPIC_PREFIX", "aivodrive")
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 20)
	v.SetDefault("LOGIN_RATE_BURST", 5)

	ttl, err := ParseTTL(v.GetString("JWT_EXPIRES_IN"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:  strings.ToLower(v.GetString("APP_ENV")),
		LogLevel:     v.GetString("LOG_LEVEL"),
		SeedDatabase: v.GetBool("SEED_DATABASE"),
		HTTP: HTTPConfig{
			Port:       v.GetInt("PORT"),
			CORSOrigin: v.GetString("CORS_ORIGIN"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
		},
		Auth: AuthConfig{
			JWTSecret:          v.GetString("JWT_SECRET"),
			TokenTTL:           ttl,
			LoginRatePerMinute: v.GetInt("LOGIN_RATE_PER_MINUTE"),
			LoginRateBurst:     v.GetInt("LOGIN_RATE_BURST"),
		},
		MQTT: MQTTConfig{
			BrokerURL:   v.GetString("MQTT_BROKER_URL"),
			TopicPrefix: strings.Trim(v.GetString("MQTT_TOPIC_PREFIX"), "/"),
		},
	}

	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = db.DatabaseName(cfg.Mongo.URI, "aivodrive")
	}
	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = devSecret
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseTTL accepts Go durations plus a "d" day suffix ("7d").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("JWT_EXPIRES_IN: invalid value %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("JWT_EXPIRES_IN: invalid value %q", s)
	}
	return d, nil
}

func validate(cfg *Config) error {
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if cfg.Mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Auth.LoginRatePerMinute <= 0 || cfg.Auth.LoginRateBurst <= 0 {
		return fmt.Errorf("LOGIN_RATE_PER_MINUTE and LOGIN_RATE_BURST must be positive")
	}
	return nil
}
