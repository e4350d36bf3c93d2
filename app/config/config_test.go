package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"JWT_SECRET": "s3cret"}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, ":5000", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, StorageBadger, cfg.Storage)
	assert.Equal(t, "data/badger", cfg.BadgerPath)
	assert.Equal(t, "coahub", cfg.MongoDatabase)
	assert.Equal(t, "data/uploads", cfg.UploadDir)
	assert.Equal(t, "/uploads", cfg.UploadBaseURL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Zero(t, cfg.ReconcileEvery)
	assert.False(t, cfg.Production())
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"APP_ENV":            "production",
		"PORT":               "8081",
		"LOG_LEVEL":          "DEBUG",
		"JWT_SECRET":         "s3cret",
		"JWT_EXPIRY":         "2h",
		"STORAGE":            "mongo",
		"MONGODB_URI":        "mongodb://localhost:27017",
		"MONGODB_DATABASE":   "forum",
		"UPLOAD_BASE_URL":    "https://cdn.example.com/img/",
		"MAX_UPLOAD_MB":      "2",
		"REQUEST_TIMEOUT":    "750ms",
		"RECONCILE_INTERVAL": "10m",
	}))
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, ":8081", cfg.Addr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, StorageMongo, cfg.Storage)
	assert.Equal(t, "forum", cfg.MongoDatabase)
	assert.Equal(t, "https://cdn.example.com/img", cfg.UploadBaseURL)
	assert.Equal(t, int64(2<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.ReconcileEvery)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"missing secret", map[string]string{}},
		{"unknown storage", map[string]string{"JWT_SECRET": "x", "STORAGE": "redis"}},
		{"mongo without uri", map[string]string{"JWT_SECRET": "x", "STORAGE": "mongo"}},
		{"bad expiry", map[string]string{"JWT_SECRET": "x", "JWT_EXPIRY": "tomorrow"}},
		{"negative timeout", map[string]string{"JWT_SECRET": "x", "REQUEST_TIMEOUT": "-1s"}},
		{"bad upload size", map[string]string{"JWT_SECRET": "x", "MAX_UPLOAD_MB": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.vars))
			assert.Error(t, err)
		})
	}
}

func TestInvalidLogLevelFallsBack(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"JWT_SECRET": "x", "LOG_LEVEL": "loud"}))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestConfigureLogger(t *testing.T) {
	prevOut, prevLevel, prevFmt := logrus.StandardLogger().Out, logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetOutput(prevOut)
		logrus.SetLevel(prevLevel)
		logrus.SetFormatter(prevFmt)
	})

	cfg := &Config{AppEnv: "production", LogLevel: "warn"}
	var buf bytes.Buffer
	cfg.ConfigureLogger(&buf)

	assert.Equal(t, logrus.WarnLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	logrus.Info("dropped")
	logrus.Warn("kept")
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}
