package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                   "development",
		Port:                  "8080",
		JWTSecret:             "secure-secret-at-least-32-chars-long",
		DBPassword:            "secure-password",
		DBSSLMode:             "require",
		WebhookSecret:         "whsec",
		PlatformFeeRate:       "0.029",
		RatioHealthy:          40,
		RatioBorderline:       30,
		GatewayTimeoutSeconds: 10,
	}
}

func TestConfig_ValidateProduction(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid production", func(c *Config) {}, false},
		{"ssl disabled", func(c *Config) { c.DBSSLMode = "disable" }, true},
		{"default jwt secret", func(c *Config) { c.JWTSecret = defaultJWTSecret }, true},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"default db password", func(c *Config) { c.DBPassword = "password" }, true},
		{"missing webhook secret", func(c *Config) { c.WebhookSecret = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = "production"
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateFeePolicy(t *testing.T) {
	c := validConfig()
	c.PlatformFeeRate = "abc"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.PlatformFeeRate = "1.5"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.RatioBorderline = 50
	assert.Error(t, c.Validate())

	c = validConfig()
	p, err := c.FeePolicy()
	require.NoError(t, err)
	assert.Equal(t, "0.029", p.PlatformFeeRate.String())
	assert.Equal(t, 40.0, p.HealthyRatio)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("RATIO_HEALTHY", "3")
	t.Setenv("RATIO_BORDERLINE", "2.5")
	t.Setenv("GATEWAY_TIMEOUT_SECONDS", "4")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 3.0, c.RatioHealthy)
	assert.Equal(t, 2.5, c.RatioBorderline)
	assert.Equal(t, 4, c.GatewayTimeoutSeconds)
	assert.Equal(t, "0.029", c.PlatformFeeRate)
	assert.Equal(t, "15 2 * * *", c.ExpirySweepCron)
}
