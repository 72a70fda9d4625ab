package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://secure.gethealthie.com", cfg.HealthieBaseURL)
	assert.Equal(t, "imap.gmail.com:993", cfg.IMAPHost)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.OTPTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.OTPPollInterval)
	assert.Equal(t, 10*time.Second, cfg.OTPGracePeriod)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HEALTHIE_EMAIL", "ops@clinic.example")
	t.Setenv("HEALTHIE_PASSWORD", "hunter2")
	t.Setenv("BROWSER_HEADLESS", "true")
	t.Setenv("OTP_TIMEOUT", "45s")

	cfg := Load()

	assert.Equal(t, "ops@clinic.example", cfg.HealthieEmail)
	assert.Equal(t, "hunter2", cfg.HealthiePassword)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 45*time.Second, cfg.OTPTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"all credentials present",
			func(c *Config) {},
			"",
		},
		{
			"missing portal password",
			func(c *Config) { c.HealthiePassword = "" },
			"HEALTHIE_PASSWORD",
		},
		{
			"missing mailbox credentials",
			func(c *Config) { c.MailEmail = ""; c.MailPassword = "" },
			"MAIL_EMAIL, MAIL_PASSWORD",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				HealthieEmail:    "ops@clinic.example",
				HealthiePassword: "hunter2",
				MailEmail:        "inbox@clinic.example",
				MailPassword:     "app-password",
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
