package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Healthie portal credentials
	HealthieEmail    string
	HealthiePassword string
	HealthieBaseURL  string

	// Mailbox used for sign-in verification codes
	MailEmail    string
	MailPassword string
	IMAPHost     string

	// Browser automation
	Headless bool

	// Verification-code retrieval
	OTPTimeout      time.Duration
	OTPPollInterval time.Duration
	OTPGracePeriod  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HealthieEmail:    getEnv("HEALTHIE_EMAIL", ""),
		HealthiePassword: getEnv("HEALTHIE_PASSWORD", ""),
		HealthieBaseURL:  getEnv("HEALTHIE_BASE_URL", "https://secure.gethealthie.com"),

		MailEmail:    getEnv("MAIL_EMAIL", ""),
		MailPassword: getEnv("MAIL_PASSWORD", ""),
		IMAPHost:     getEnv("IMAP_HOST", "imap.gmail.com:993"),

		Headless: getEnvAsBool("BROWSER_HEADLESS", false),

		OTPTimeout:      getEnvAsDuration("OTP_TIMEOUT", 30*time.Second),
		OTPPollInterval: getEnvAsDuration("OTP_POLL_INTERVAL", 500*time.Millisecond),
		OTPGracePeriod:  getEnvAsDuration("OTP_GRACE_PERIOD", 10*time.Second),
	}
}

// Validate checks that every credential required before any browser or
// mailbox interaction is present. It returns a single error naming all
// missing variables so operators can fix the environment in one pass.
func (c *Config) Validate() error {
	var missing []string
	if c.HealthieEmail == "" {
		missing = append(missing, "HEALTHIE_EMAIL")
	}
	if c.HealthiePassword == "" {
		missing = append(missing, "HEALTHIE_PASSWORD")
	}
	if c.MailEmail == "" {
		missing = append(missing, "MAIL_EMAIL")
	}
	if c.MailPassword == "" {
		missing = append(missing, "MAIL_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
