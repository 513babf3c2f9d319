package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the printwatch daemon.
type Config struct {
	Server    ServerConfig
	Printer   PrinterConfig
	Monitor   MonitorConfig
	Email     EmailConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Retention RetentionConfig
}

type ServerConfig struct {
	Port     int
	Env      string
	AdminKey string
}

type PrinterConfig struct {
	Host          string
	APIID         string
	APIKey        string
	Timeout       time.Duration
	CameraEnabled bool
}

type MonitorConfig struct {
	Interval    time.Duration
	TempSamples int
}

type EmailConfig struct {
	Enabled    bool
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	FromName   string
	To         []string
	FooterFile string
	Timeout    time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type RetentionConfig struct {
	Days int
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     envInt("PRINTWATCH_PORT", 8080),
			Env:      envString("PRINTWATCH_ENV", "development"),
			AdminKey: os.Getenv("PRINTWATCH_ADMIN_KEY"),
		},
		Printer: PrinterConfig{
			Host:          os.Getenv("PRINTER_HOST"),
			APIID:         os.Getenv("PRINTER_API_ID"),
			APIKey:        os.Getenv("PRINTER_API_KEY"),
			Timeout:       envDuration("PRINTER_TIMEOUT", 5*time.Second),
			CameraEnabled: envBool("CAMERA_ENABLED", false),
		},
		Monitor: MonitorConfig{
			Interval:    envDuration("POLL_INTERVAL", 30*time.Second),
			TempSamples: envInt("TEMP_SAMPLES", 800),
		},
		Email: EmailConfig{
			Enabled:    envBool("EMAIL_ENABLED", false),
			Host:       os.Getenv("SMTP_HOST"),
			Port:       envInt("SMTP_PORT", 587),
			User:       os.Getenv("SMTP_USER"),
			Password:   os.Getenv("SMTP_PASSWORD"),
			From:       os.Getenv("EMAIL_FROM"),
			FromName:   envString("EMAIL_FROM_NAME", "The Great Printzini"),
			To:         envList("EMAIL_TO"),
			FooterFile: os.Getenv("EMAIL_FOOTER_FILE"),
			Timeout:    envDuration("SMTP_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 5),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Retention: RetentionConfig{
			Days: envInt("RETENTION_DAYS", 90),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Printer.Host == "" {
		return fmt.Errorf("PRINTER_HOST is required")
	}
	if strings.Contains(c.Printer.Host, "/") && !strings.HasPrefix(c.Printer.Host, "http://") && !strings.HasPrefix(c.Printer.Host, "https://") {
		return fmt.Errorf("PRINTER_HOST must be a host name or start with http:// or https://, got %q", c.Printer.Host)
	}

	if c.Monitor.Interval < time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 1s, got %s", c.Monitor.Interval)
	}
	if c.Monitor.TempSamples <= 0 {
		return fmt.Errorf("TEMP_SAMPLES must be positive, got %d", c.Monitor.TempSamples)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Email.Enabled {
		if c.Email.Host == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_ENABLED is true")
		}
		if c.Email.From == "" {
			return fmt.Errorf("EMAIL_FROM is required when EMAIL_ENABLED is true")
		}
		if len(c.Email.To) == 0 {
			return fmt.Errorf("EMAIL_TO is required when EMAIL_ENABLED is true")
		}
		if c.Email.Timeout <= 0 {
			return fmt.Errorf("SMTP_TIMEOUT must be positive, got %s", c.Email.Timeout)
		}
	}

	if c.Retention.Days < 0 {
		return fmt.Errorf("RETENTION_DAYS must not be negative, got %d", c.Retention.Days)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envList splits a comma-separated variable, dropping empty entries.
func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
