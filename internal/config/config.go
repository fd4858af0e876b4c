// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mohammadr7204/nyc-rental-platform-sub001/internal/fees"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT" yaml:"port"`
	Env            string `mapstructure:"APP_ENV" yaml:"app_env"`
	JWTSecret      string `mapstructure:"JWT_SECRET" yaml:"-"`
	WebhookSecret  string `mapstructure:"WEBHOOK_SECRET" yaml:"-"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS" yaml:"feature_flags"`

	DBHost                   string `mapstructure:"DB_HOST" yaml:"db_host"`
	DBPort                   string `mapstructure:"DB_PORT" yaml:"db_port"`
	DBUser                   string `mapstructure:"DB_USER" yaml:"db_user"`
	DBPassword               string `mapstructure:"DB_PASSWORD" yaml:"-"`
	DBName                   string `mapstructure:"DB_NAME" yaml:"db_name"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE" yaml:"db_sslmode"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS" yaml:"db_max_open_conns"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS" yaml:"db_max_idle_conns"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES" yaml:"db_conn_max_lifetime_minutes"`

	RedisURL string `mapstructure:"REDIS_URL" yaml:"redis_url"`

	PlatformFeeRate string  `mapstructure:"PLATFORM_FEE_RATE" yaml:"platform_fee_rate"`
	RatioHealthy    float64 `mapstructure:"RATIO_HEALTHY" yaml:"ratio_healthy"`
	RatioBorderline float64 `mapstructure:"RATIO_BORDERLINE" yaml:"ratio_borderline"`

	ExpirySweepCron string `mapstructure:"EXPIRY_SWEEP_CRON" yaml:"expiry_sweep_cron"`

	PaymentsBaseURL       string  `mapstructure:"PAYMENTS_BASE_URL" yaml:"payments_base_url"`
	ScreeningBaseURL      string  `mapstructure:"SCREENING_BASE_URL" yaml:"screening_base_url"`
	GatewayAPIKey         string  `mapstructure:"GATEWAY_API_KEY" yaml:"-"`
	GatewayTimeoutSeconds int     `mapstructure:"GATEWAY_TIMEOUT_SECONDS" yaml:"gateway_timeout_seconds"`
	GatewayRatePerSecond  float64 `mapstructure:"GATEWAY_RATE_PER_SECOND" yaml:"gateway_rate_per_second"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED" yaml:"tracing_enabled"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER" yaml:"tracing_exporter"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT" yaml:"otlp_endpoint"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO" yaml:"tracing_sampler_ratio"`

	SeedOnStart bool `mapstructure:"SEED_ON_START" yaml:"seed_on_start"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
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

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("WEBHOOK_SECRET", "")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "rental_platform")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("PLATFORM_FEE_RATE", fees.DefaultPlatformFeeRate)
	viper.SetDefault("RATIO_HEALTHY", fees.DefaultHealthyRatio)
	viper.SetDefault("RATIO_BORDERLINE", fees.DefaultBorderlineRatio)
	viper.SetDefault("EXPIRY_SWEEP_CRON", "15 2 * * *")
	viper.SetDefault("PAYMENTS_BASE_URL", "")
	viper.SetDefault("SCREENING_BASE_URL", "")
	viper.SetDefault("GATEWAY_API_KEY", "")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("GATEWAY_RATE_PER_SECOND", 5.0)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("SEED_ON_START", false)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.PlatformFeeRate = strings.TrimSpace(c.PlatformFeeRate)
}

// IsProduction reports whether the service runs with production safeguards.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// FeePolicy builds the fee calculator policy from configuration.
func (c *Config) FeePolicy() (fees.Policy, error) {
	rate, err := decimal.NewFromString(c.PlatformFeeRate)
	if err != nil {
		return fees.Policy{}, fmt.Errorf("PLATFORM_FEE_RATE %q is not a decimal: %w", c.PlatformFeeRate, err)
	}
	p := fees.Policy{
		PlatformFeeRate: rate,
		HealthyRatio:    c.RatioHealthy,
		BorderlineRatio: c.RatioBorderline,
	}
	return p, p.Validate()
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.FeePolicy(); err != nil {
		return err
	}
	if c.GatewayTimeoutSeconds <= 0 {
		return errors.New("GATEWAY_TIMEOUT_SECONDS must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable TLS in production")
		}
		if c.WebhookSecret == "" {
			return errors.New("WEBHOOK_SECRET is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
