// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
)

// Classifier policies for malformed classifier output.
const (
	ClassifierFailClosed = "fail_closed"
	ClassifierFailOpen   = "fail_open"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	StoreDriver              string `mapstructure:"STORE_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	SQLitePath               string `mapstructure:"SQLITE_PATH"`
	MongoURI                 string `mapstructure:"MONGO_URI"`
	MongoDatabase            string `mapstructure:"MONGO_DATABASE"`

	RedisURL         string        `mapstructure:"REDIS_URL"`
	TimelineCacheTTL time.Duration `mapstructure:"TIMELINE_CACHE_TTL"`
	RabbitMQURL      string        `mapstructure:"RABBITMQ_URL"`
	RabbitMQExchange string        `mapstructure:"RABBITMQ_EXCHANGE"`

	ClassifierURL     string        `mapstructure:"CLASSIFIER_URL"`
	ClassifierToken   string        `mapstructure:"CLASSIFIER_TOKEN"`
	ClassifierTimeout time.Duration `mapstructure:"CLASSIFIER_TIMEOUT"`
	ClassifierPolicy  string        `mapstructure:"CLASSIFIER_POLICY"`

	MediaHostURL          string        `mapstructure:"MEDIA_HOST_URL"`
	MediaHostUploadPreset string        `mapstructure:"MEDIA_HOST_UPLOAD_PRESET"`
	MediaHostTimeout      time.Duration `mapstructure:"MEDIA_HOST_TIMEOUT"`

	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	UploadTmpDir         string `mapstructure:"UPLOAD_TMP_DIR"`

	AuthRateLimit        int           `mapstructure:"AUTH_RATE_LIMIT"`
	PostRateLimit        int           `mapstructure:"POST_RATE_LIMIT"`
	RateLimitWindow      time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
	GlobalRequestsPerMin int           `mapstructure:"GLOBAL_REQUESTS_PER_MIN"`

	OTelExporter    string  `mapstructure:"OTEL_EXPORTER"`
	OTelEndpoint    string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelServiceName string  `mapstructure:"OTEL_SERVICE_NAME"`
	OTelSampleRatio float64 `mapstructure:"OTEL_SAMPLE_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// AutomaticEnv only resolves keys viper already knows, so every field gets a default.
func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	viper.SetDefault("STORE_DRIVER", StorePostgres)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "zeroai")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("SQLITE_PATH", "zeroai.db")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "zeroai")

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("TIMELINE_CACHE_TTL", "30s")
	viper.SetDefault("RABBITMQ_URL", "")
	viper.SetDefault("RABBITMQ_EXCHANGE", "post_events")

	viper.SetDefault("CLASSIFIER_URL", "https://api-inference.huggingface.co/models/umm-maybe/AI-image-detector")
	viper.SetDefault("CLASSIFIER_TOKEN", "")
	viper.SetDefault("CLASSIFIER_TIMEOUT", "30s")
	viper.SetDefault("CLASSIFIER_POLICY", ClassifierFailClosed)

	viper.SetDefault("MEDIA_HOST_URL", "https://api.cloudinary.com/v1_1/demo/image/upload")
	viper.SetDefault("MEDIA_HOST_UPLOAD_PRESET", "zeroai")
	viper.SetDefault("MEDIA_HOST_TIMEOUT", "30s")

	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 10)
	viper.SetDefault("UPLOAD_TMP_DIR", "")

	viper.SetDefault("AUTH_RATE_LIMIT", 10)
	viper.SetDefault("POST_RATE_LIMIT", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("GLOBAL_REQUESTS_PER_MIN", 300)

	viper.SetDefault("OTEL_EXPORTER", "none")
	viper.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("OTEL_SERVICE_NAME", "zeroai-api")
	viper.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
}

func (c *Config) normalize() {
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.ClassifierPolicy = strings.ToLower(strings.TrimSpace(c.ClassifierPolicy))
	c.OTelExporter = strings.ToLower(strings.TrimSpace(c.OTelExporter))
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.ImageMaxUploadSizeMB) << 20
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.DBConnMaxLifetimeMinutes <= 0 {
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}
	if c.ClassifierTimeout <= 0 || c.MediaHostTimeout <= 0 {
		return errors.New("CLASSIFIER_TIMEOUT and MEDIA_HOST_TIMEOUT must be positive")
	}

	switch c.StoreDriver {
	case StorePostgres, StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.StoreDriver)
	}

	switch c.ClassifierPolicy {
	case ClassifierFailClosed, ClassifierFailOpen:
	default:
		return fmt.Errorf("CLASSIFIER_POLICY %q is not supported", c.ClassifierPolicy)
	}

	if c.ClassifierURL == "" {
		return errors.New("CLASSIFIER_URL is required")
	}
	if c.MediaHostURL == "" || c.MediaHostUploadPreset == "" {
		return errors.New("MEDIA_HOST_URL and MEDIA_HOST_UPLOAD_PRESET are required")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.StoreDriver == StorePostgres {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must enable TLS in production")
			}
		}
		if c.StoreDriver == StoreSQLite {
			return errors.New("STORE_DRIVER sqlite is not allowed in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
