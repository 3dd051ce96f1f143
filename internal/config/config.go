package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Config struct {
	Port                      string
	StoreBackend              string
	DatabaseURL               string
	FirestoreProjectID        string
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	AdminPIN                  string
	AdminPINHash              string
	SessionTTL                time.Duration
	SessionSweepInterval      time.Duration
	Location                  *time.Location
	QueueCollection           string
	QueueDocument             string
	HistoryDocument           string
	RevenueCollection         string
	RateLimitPerMinute        int
	RateLimitBurst            int
	SessionRateLimitPerMinute int
	SessionRateLimitBurst     int
	TrustProxy                bool
	LogLevel                  string
	LogEncoding               string
}

// Load reads configuration from the environment, layered over the optional
// config file at path (or BARBERQ_CONFIG when path is empty).
func Load(path string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path == "" {
		path = v.GetString("BARBERQ_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return Config{}, fmt.Errorf("timezone %q: %w", v.GetString("TIMEZONE"), err)
	}

	cfg := Config{
		Port:                      v.GetString("PORT"),
		StoreBackend:              strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		DatabaseURL:               v.GetString("DB_DSN"),
		FirestoreProjectID:        v.GetString("FIRESTORE_PROJECT_ID"),
		RedisAddr:                 v.GetString("REDIS_ADDR"),
		RedisPassword:             v.GetString("REDIS_PASSWORD"),
		RedisDB:                   v.GetInt("REDIS_DB"),
		AdminPIN:                  strings.TrimSpace(v.GetString("ADMIN_PIN")),
		AdminPINHash:              strings.TrimSpace(v.GetString("ADMIN_PIN_HASH")),
		SessionTTL:                readDurationSeconds(v, "SESSION_TTL_SECONDS"),
		SessionSweepInterval:      readDurationSeconds(v, "SESSION_SWEEP_SECONDS"),
		Location:                  loc,
		QueueCollection:           v.GetString("QUEUE_COLLECTION"),
		QueueDocument:             v.GetString("QUEUE_DOCUMENT"),
		HistoryDocument:           v.GetString("HISTORY_DOCUMENT"),
		RevenueCollection:         v.GetString("REVENUE_COLLECTION"),
		RateLimitPerMinute:        v.GetInt("RATE_LIMIT_PER_MIN"),
		RateLimitBurst:            v.GetInt("RATE_LIMIT_BURST"),
		SessionRateLimitPerMinute: v.GetInt("SESSION_RATE_LIMIT_PER_MIN"),
		SessionRateLimitBurst:     v.GetInt("SESSION_RATE_LIMIT_BURST"),
		TrustProxy:                v.GetBool("TRUST_PROXY"),
		LogLevel:                  v.GetString("LOG_LEVEL"),
		LogEncoding:               v.GetString("LOG_ENCODING"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_TTL_SECONDS", 1800)
	v.SetDefault("SESSION_SWEEP_SECONDS", 60)
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("QUEUE_COLLECTION", "turns")
	v.SetDefault("QUEUE_DOCUMENT", "tickets")
	v.SetDefault("HISTORY_DOCUMENT", "history")
	v.SetDefault("REVENUE_COLLECTION", "earnings")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)
	v.SetDefault("RATE_LIMIT_BURST", 30)
	v.SetDefault("SESSION_RATE_LIMIT_PER_MIN", 600)
	v.SetDefault("SESSION_RATE_LIMIT_BURST", 120)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")
}

// Validate checks that the selected backends have what they need. It does
// not require an admin PIN, which only the serve command needs.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DB_DSN is required for the postgres backend")
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return errors.New("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL_SECONDS must be positive")
	}
	if c.QueueCollection == "" || c.QueueDocument == "" || c.HistoryDocument == "" || c.RevenueCollection == "" {
		return errors.New("collection and document names must not be empty")
	}
	if c.QueueDocument == c.HistoryDocument {
		return errors.New("QUEUE_DOCUMENT and HISTORY_DOCUMENT must differ")
	}
	return nil
}

func readDurationSeconds(v *viper.Viper, key string) time.Duration {
	value := v.GetInt(key)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}
