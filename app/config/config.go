package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Storage backends.
const (
	StorageBadger = "badger"
	StorageMongo  = "mongo"
)

// Config holds every setting the server and CLI read from the environment.
type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	JWTSecret string
	JWTExpiry time.Duration

	Storage        string
	BadgerPath     string
	MongoURI       string
	MongoDatabase  string
	UploadDir      string
	UploadBaseURL  string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	ReconcileEvery time.Duration
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		AppEnv:        get("APP_ENV", "development"),
		Port:          get("PORT", "5000"),
		LogLevel:      strings.ToLower(get("LOG_LEVEL", "info")),
		JWTSecret:     getenv("JWT_SECRET"),
		Storage:       strings.ToLower(get("STORAGE", StorageBadger)),
		BadgerPath:    get("BADGER_PATH", "data/badger"),
		MongoURI:      get("MONGODB_URI", ""),
		MongoDatabase: get("MONGODB_DATABASE", "coahub"),
		UploadDir:     get("UPLOAD_DIR", "data/uploads"),
		UploadBaseURL: strings.TrimRight(get("UPLOAD_BASE_URL", "/uploads"), "/"),
	}

	var err error
	if cfg.JWTExpiry, err = duration(get("JWT_EXPIRY", "24h"), "JWT_EXPIRY"); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = duration(get("REQUEST_TIMEOUT", "5s"), "REQUEST_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.ReconcileEvery, err = duration(get("RECONCILE_INTERVAL", "0"), "RECONCILE_INTERVAL"); err != nil {
		return nil, err
	}

	mb, err := strconv.ParseInt(get("MAX_UPLOAD_MB", "5"), 10, 64)
	if err != nil || mb <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be a positive integer")
	}
	cfg.MaxUploadBytes = mb << 20

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}
	switch cfg.Storage {
	case StorageBadger:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("environment variable MONGODB_URI must be set when STORAGE=mongo")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE %q (want badger or mongo)", cfg.Storage)
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ConfigureLogger applies the level and formatter to the standard logrus
// logger, which the rest of the server logs through.
func (c *Config) ConfigureLogger(out io.Writer) {
	if c.Production() {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, _ := logrus.ParseLevel(c.LogLevel)
	logrus.SetLevel(level)
	logrus.SetOutput(out)
}

func duration(raw, key string) (time.Duration, error) {
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}
