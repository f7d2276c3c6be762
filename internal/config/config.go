package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port                 string
	Origin               string
	Environment          string
	JWTSecret            string
	JWTExpirationMinutes int
	Database             DatabaseConfig
	Mailer               MailerConfig
	StoreTimeout         time.Duration
	NotifyTimeout        time.Duration
	OTPExpiry            time.Duration
	OTPRatePerMinute     int
	OTPMaxAttempts       int
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// MailerConfig holds email service configuration. An empty Host disables
// delivery and messages are logged instead.
type MailerConfig struct {
	Host        string
	Port        string
	Username    string
	Password    string
	DefaultFrom string
}

var defaults = map[string]any{
	"PORT":                   "3001",
	"ORIGIN":                 "http://localhost:4200",
	"NODE_ENV":               "development",
	"JWT_SECRET":             "default_jwt_secret",
	"JWT_EXPIRATION_MINUTES": 60,
	"DB_DRIVER":              "mysql",
	"DB_HOST":                "localhost",
	"DB_PORT":                "",
	"DB_USERNAME":            "root",
	"DB_PASSWORD":            "",
	"DB_NAME":                "telehealth",
	"DATABASE_URL":           "",
	"SMTP_HOST":              "",
	"SMTP_PORT":              "587",
	"SMTP_USERNAME":          "",
	"SMTP_PASSWORD":          "",
	"MAILER_DEFAULT_FROM":    "",
	"STORE_TIMEOUT_MS":       5000,
	"NOTIFY_TIMEOUT_MS":      10000,
	"OTP_EXPIRY_MINUTES":     5,
	"OTP_RATE_PER_MINUTE":    5,
	"OTP_MAX_ATTEMPTS":       5,
}

// LoadConfig loads configuration from environment variables. Call
// godotenv.Load first to pick up a .env file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}
	v.AutomaticEnv()

	dbConfig := DatabaseConfig{
		Driver:   v.GetString("DB_DRIVER"),
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
		DSN:      v.GetString("DATABASE_URL"),
	}
	if err := dbConfig.buildDSN(); err != nil {
		return nil, err
	}

	mailerConfig := MailerConfig{
		Host:        v.GetString("SMTP_HOST"),
		Port:        v.GetString("SMTP_PORT"),
		Username:    v.GetString("SMTP_USERNAME"),
		Password:    v.GetString("SMTP_PASSWORD"),
		DefaultFrom: v.GetString("MAILER_DEFAULT_FROM"),
	}

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		Origin:               v.GetString("ORIGIN"),
		Environment:          v.GetString("NODE_ENV"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		JWTExpirationMinutes: v.GetInt("JWT_EXPIRATION_MINUTES"),
		Database:             dbConfig,
		Mailer:               mailerConfig,
		StoreTimeout:         time.Duration(v.GetInt("STORE_TIMEOUT_MS")) * time.Millisecond,
		NotifyTimeout:        time.Duration(v.GetInt("NOTIFY_TIMEOUT_MS")) * time.Millisecond,
		OTPExpiry:            time.Duration(v.GetInt("OTP_EXPIRY_MINUTES")) * time.Minute,
		OTPRatePerMinute:     v.GetInt("OTP_RATE_PER_MINUTE"),
		OTPMaxAttempts:       v.GetInt("OTP_MAX_ATTEMPTS"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildDSN fills DSN from the individual fields unless DATABASE_URL was set.
func (d *DatabaseConfig) buildDSN() error {
	if d.DSN != "" {
		return nil
	}
	switch d.Driver {
	case "mysql":
		port := d.Port
		if port == "" {
			port = "3306"
		}
		d.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.Username, d.Password, d.Host, port, d.Name)
	case "postgres":
		port := d.Port
		if port == "" {
			port = "5432"
		}
		d.DSN = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			d.Host, port, d.Username, d.Password, d.Name)
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTExpirationMinutes <= 0 {
		return fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %d", c.JWTExpirationMinutes)
	}
	if c.StoreTimeout <= 0 || c.NotifyTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_MS and NOTIFY_TIMEOUT_MS must be positive")
	}
	if c.OTPExpiry <= 0 {
		return fmt.Errorf("invalid OTP_EXPIRY_MINUTES")
	}
	if c.OTPRatePerMinute <= 0 {
		return fmt.Errorf("invalid OTP_RATE_PER_MINUTE: %d", c.OTPRatePerMinute)
	}
	if c.IsProduction() && c.JWTSecret == "default_jwt_secret" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// IsDev returns true when running in development mode.
func (c *Config) IsDev() bool {
	return c.Environment == "development"
}

// IsProduction returns true when running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
