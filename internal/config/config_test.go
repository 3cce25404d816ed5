package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		Port:                     "8080",
		StoreDriver:              StorePostgres,
		ImageMaxUploadSizeMB:     10,
		DBConnMaxLifetimeMinutes: 1,
		RedisURL:                 "redis://localhost:6379",
		ClassifierURL:            "http://classifier.local",
		ClassifierTimeout:        30 * time.Second,
		ClassifierPolicy:         ClassifierFailClosed,
		MediaHostURL:             "http://media.local/upload",
		MediaHostUploadPreset:    "zeroai",
		MediaHostTimeout:         30 * time.Second,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateRejectsUnknownValues(t *testing.T) {
	c := validConfig()
	c.StoreDriver = "cassandra"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.ClassifierPolicy = "maybe"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.ClassifierTimeout = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Env = "production"
	c.StoreDriver = StoreSQLite
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Env = "production"
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())
}

func TestConfig_MaxUploadBytes(t *testing.T) {
	c := validConfig()
	c.ImageMaxUploadSizeMB = 3
	assert.Equal(t, int64(3*1024*1024), c.MaxUploadBytes())
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("CLASSIFIER_POLICY", " FAIL_OPEN ")
	t.Setenv("CLASSIFIER_TIMEOUT", "5s")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, ClassifierFailOpen, c.ClassifierPolicy)
	assert.Equal(t, 5*time.Second, c.ClassifierTimeout)
	assert.Equal(t, 30*time.Second, c.MediaHostTimeout)
	assert.Equal(t, 30*time.Second, c.TimelineCacheTTL)
	assert.Equal(t, 10, c.ImageMaxUploadSizeMB)
	assert.Equal(t, StorePostgres, c.StoreDriver)
}

func TestLoadConfig_MissingProfileFile(t *testing.T) {
	defer viper.Reset()
	t.Setenv("APP_ENV", "staging-does-not-exist")

	_, err := LoadConfig()
	assert.Error(t, err)
}
