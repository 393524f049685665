// Package config loads settings from an optional YAML file and then applies
// environment overrides. Defaults are suitable for local development.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mridungeorge/portfolio/internal/contact"
	"github.com/mridungeorge/portfolio/internal/store"
)

type Database struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type Telegram struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type Auth struct {
	AllowSignUp   bool          `yaml:"allow_signup"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
	SecureCookies bool          `yaml:"secure_cookies"`
}

type Tracking struct {
	Enabled   bool          `yaml:"enabled"`
	Salt      string        `yaml:"salt"`
	Retention time.Duration `yaml:"retention"`
}

// Resume is served from Path when set, otherwise by redirecting to URL.
// With neither set /resume reports that no resume is available.
type Resume struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

type Config struct {
	Port            string             `yaml:"port"`
	ContentPath     string             `yaml:"content_path"`
	Database        Database           `yaml:"database"`
	SMTP            contact.SMTPConfig `yaml:"smtp"`
	Telegram        Telegram           `yaml:"telegram"`
	ContactDelay    time.Duration      `yaml:"contact_delay"`
	Auth            Auth               `yaml:"auth"`
	Tracking        Tracking           `yaml:"tracking"`
	Resume          Resume             `yaml:"resume"`
	TerminalTTL     time.Duration      `yaml:"terminal_ttl"`
	ShutdownTimeout time.Duration      `yaml:"shutdown_timeout"`
}

func Default() *Config {
	return &Config{
		Port:     "8080",
		Database: Database{Driver: store.DriverSQLite},
		SMTP: contact.SMTPConfig{
			Host: "smtp.gmail.com",
			Port: "587",
		},
		ContactDelay: 1500 * time.Millisecond,
		Auth: Auth{
			AllowSignUp: true,
			SessionTTL:  24 * time.Hour,
		},
		Tracking: Tracking{
			Enabled:   true,
			Retention: 365 * 24 * time.Hour,
		},
		TerminalTTL:     30 * time.Minute,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load reads path (if non-empty) over the defaults and applies environment
// overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"PORT":               &c.Port,
		"CONTENT_PATH":       &c.ContentPath,
		"DATABASE_DRIVER":    &c.Database.Driver,
		"DATABASE_URL":       &c.Database.URL,
		"SMTP_HOST":          &c.SMTP.Host,
		"SMTP_PORT":          &c.SMTP.Port,
		"SMTP_USER":          &c.SMTP.User,
		"SMTP_PASS":          &c.SMTP.Pass,
		"TO_EMAIL":           &c.SMTP.To,
		"TELEGRAM_BOT_TOKEN": &c.Telegram.Token,
		"ADMIN_EMAIL":        &c.Auth.AdminEmail,
		"ADMIN_PASSWORD":     &c.Auth.AdminPassword,
		"TRACKING_SALT":      &c.Tracking.Salt,
		"RESUME_PATH":        &c.Resume.Path,
		"RESUME_URL":         &c.Resume.URL,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.Wrap(err, "invalid TELEGRAM_CHAT_ID")
		}
		c.Telegram.ChatID = id
	}

	bools := map[string]*bool{
		"ALLOW_SIGNUP":     &c.Auth.AllowSignUp,
		"SECURE_COOKIES":   &c.Auth.SecureCookies,
		"TRACKING_ENABLED": &c.Tracking.Enabled,
	}
	for key, dst := range bools {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return errors.Wrapf(err, "invalid %s", key)
			}
			*dst = b
		}
	}

	if v := os.Getenv("CONTACT_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrap(err, "invalid CONTACT_DELAY")
		}
		c.ContactDelay = d
	}
	return nil
}

// Validate checks that the settings are usable together.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.Errorf("invalid port %q", c.Port)
	}

	switch c.Database.Driver {
	case store.DriverSQLite:
	case store.DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.ContactDelay < 0 {
		return errors.New("contact delay must not be negative")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}
