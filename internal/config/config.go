package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Environment names accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvTesting     = "testing"
	EnvProduction  = "production"
)

// Common errors
var (
	ErrMissingSecret   = errors.New("SECRET_KEY and JWT_SECRET_KEY are required in production")
	ErrMissingDatabase = errors.New("DATABASE_URL is required in production")
	ErrInvalidTTL      = errors.New("token lifetimes must be positive")
)

// Config holds every runtime setting of the backend.
type Config struct {
	Env  string
	Port string

	DatabaseURL string

	// FrontendURL is where password reset links point to.
	FrontendURL string
	// PublicAPIURL is the externally visible base URL of this API, used for
	// email confirmation links.
	PublicAPIURL string

	CORSOrigins []string

	// FormWebhookSecret enables the signed form webhook when set.
	FormWebhookSecret string

	Auth Auth
	Mail Mail
	Log  Log
}

// Auth groups token, cookie and password settings.
type Auth struct {
	// SecretKey signs recovery tokens (password reset, email change).
	SecretKey string
	// JWTSecretKey signs access and refresh tokens.
	JWTSecretKey string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RecoveryMaxAge  time.Duration

	CookieSecure bool

	PasswordMinLength int
	BcryptCost        int

	// UniqueUsernames rejects signups whose username is already registered.
	UniqueUsernames bool
	// RevokeOnPasswordChange invalidates sessions issued before a password
	// reset or change.
	RevokeOnPasswordChange bool
}

// Mail groups outbound email settings.
type Mail struct {
	// Provider is "smtp", "sendgrid" or "log".
	Provider        string
	Server          string
	Port            int
	Username        string
	Password        string
	DefaultSender   string
	DefaultReceiver string
	SendGridURL     string
	MaxEmailsPerDay int
	Timeout         time.Duration
	Async           bool
}

// Log configures the application logger.
type Log struct {
	Level string
	JSON  bool
}

// fileOverlay is the shape of the optional YAML config file.
type fileOverlay struct {
	FrontendURL  string   `yaml:"frontend_url"`
	PublicAPIURL string   `yaml:"public_api_url"`
	CORSOrigins  []string `yaml:"cors_origins"`
	Mail         struct {
		Provider        string `yaml:"provider"`
		DefaultReceiver string `yaml:"default_receiver"`
	} `yaml:"mail"`
}

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"https://lhc-legal-consulting.vercel.app",
	"https://www.lhc-legal-consulting.vercel.app",
	"https://lhc-legal-consulting.onrender.com",
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Env:          EnvDevelopment,
		Port:         "5000",
		FrontendURL:  "http://localhost:3000",
		PublicAPIURL: "http://localhost:5000",
		CORSOrigins:  append([]string(nil), defaultCORSOrigins...),
		Auth: Auth{
			SecretKey:         "supersecretkey",
			JWTSecretKey:      "supersecretkey",
			AccessTokenTTL:    3600 * time.Second,
			RefreshTokenTTL:   86400 * time.Second,
			RecoveryMaxAge:    3600 * time.Second,
			PasswordMinLength: 6,
			BcryptCost:        10,
		},
		Mail: Mail{
			Provider:        "log",
			Server:          "smtp.gmail.com",
			Port:            587,
			DefaultReceiver: "lhclegalandconsulting@gmail.com",
			SendGridURL:     "https://api.sendgrid.com",
			MaxEmailsPerDay: 100,
			Timeout:         10 * time.Second,
			Async:           true,
		},
		Log: Log{Level: "info"},
	}
}

// Load builds the configuration from .env files, the optional YAML file named
// by CONFIG_FILE, and environment variables, in that order of precedence
// (later wins).
//
// Environment variables:
//   - APP_ENV: development | testing | production (default: development)
//   - PORT, DATABASE_URL, FRONTEND_URL, PUBLIC_API_URL
//   - CORS_ORIGINS: comma separated allow-list
//   - FORM_WEBHOOK_SECRET: enables POST /api/webhooks/forms/contact
//   - SECRET_KEY, JWT_SECRET_KEY
//   - JWT_ACCESS_TOKEN_EXPIRES, JWT_REFRESH_TOKEN_EXPIRES: seconds
//   - COOKIE_SECURE: defaults to true in production
//   - PASSWORD_MIN_LENGTH, BCRYPT_COST
//   - AUTH_UNIQUE_USERNAMES, AUTH_REVOKE_ON_PASSWORD_CHANGE
//   - MAIL_PROVIDER, MAIL_SERVER, MAIL_PORT, MAIL_USERNAME, MAIL_PASSWORD,
//     MAIL_DEFAULT_SENDER, MAIL_DEFAULT_RECEIVER, MAIL_MAX_EMAILS_PER_DAY,
//     MAIL_TIMEOUT (seconds), MAIL_ASYNC, SENDGRID_API_URL
//   - LOG_LEVEL, LOG_JSON
func Load() (Config, error) {
	if _, ok := os.LookupEnv("DOCKER"); ok {
		_ = godotenv.Load(".env.docker")
	}
	_ = godotenv.Load(".env.local", ".env")

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv(os.LookupEnv)

	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	return c.applyYAML(raw)
}

func (c *Config) applyYAML(raw []byte) error {
	var f fileOverlay
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if f.FrontendURL != "" {
		c.FrontendURL = f.FrontendURL
	}
	if f.PublicAPIURL != "" {
		c.PublicAPIURL = f.PublicAPIURL
	}
	if len(f.CORSOrigins) > 0 {
		c.CORSOrigins = f.CORSOrigins
	}
	if f.Mail.Provider != "" {
		c.Mail.Provider = f.Mail.Provider
	}
	if f.Mail.DefaultReceiver != "" {
		c.Mail.DefaultReceiver = f.Mail.DefaultReceiver
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("APP_ENV"); ok {
		c.Env = strings.ToLower(v)
	} else if v, ok := get("FLASK_ENV"); ok {
		c.Env = strings.ToLower(v)
	}
	if v, ok := get("PORT"); ok {
		c.Port = v
	}
	if v, ok := get("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := get("FRONTEND_URL"); ok {
		c.FrontendURL = strings.TrimRight(v, "/")
	}
	if v, ok := get("PUBLIC_API_URL"); ok {
		c.PublicAPIURL = strings.TrimRight(v, "/")
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := get("FORM_WEBHOOK_SECRET"); ok {
		c.FormWebhookSecret = v
	}

	secretSet := false
	if v, ok := get("SECRET_KEY"); ok {
		c.Auth.SecretKey = v
		secretSet = true
	}
	if v, ok := get("JWT_SECRET_KEY"); ok {
		c.Auth.JWTSecretKey = v
	} else if secretSet {
		c.Auth.JWTSecretKey = c.Auth.SecretKey
	}
	if v, ok := get("JWT_ACCESS_TOKEN_EXPIRES"); ok {
		c.Auth.AccessTokenTTL = seconds(v, c.Auth.AccessTokenTTL)
	}
	if v, ok := get("JWT_REFRESH_TOKEN_EXPIRES"); ok {
		c.Auth.RefreshTokenTTL = seconds(v, c.Auth.RefreshTokenTTL)
	}

	c.Auth.CookieSecure = c.Env == EnvProduction
	if v, ok := get("COOKIE_SECURE"); ok {
		c.Auth.CookieSecure = boolean(v, c.Auth.CookieSecure)
	}
	if v, ok := get("PASSWORD_MIN_LENGTH"); ok {
		c.Auth.PasswordMinLength = integer(v, c.Auth.PasswordMinLength)
	}
	if v, ok := get("BCRYPT_COST"); ok {
		c.Auth.BcryptCost = integer(v, c.Auth.BcryptCost)
	}
	if v, ok := get("AUTH_UNIQUE_USERNAMES"); ok {
		c.Auth.UniqueUsernames = boolean(v, false)
	}
	if v, ok := get("AUTH_REVOKE_ON_PASSWORD_CHANGE"); ok {
		c.Auth.RevokeOnPasswordChange = boolean(v, false)
	}

	if v, ok := get("MAIL_PROVIDER"); ok {
		c.Mail.Provider = strings.ToLower(v)
	}
	if v, ok := get("MAIL_SERVER"); ok {
		c.Mail.Server = v
	}
	if v, ok := get("MAIL_PORT"); ok {
		c.Mail.Port = integer(v, c.Mail.Port)
	}
	if v, ok := get("MAIL_USERNAME"); ok {
		c.Mail.Username = v
	}
	if v, ok := get("MAIL_PASSWORD"); ok {
		c.Mail.Password = v
	}
	c.Mail.DefaultSender = c.Mail.Username
	if v, ok := get("MAIL_DEFAULT_SENDER"); ok {
		c.Mail.DefaultSender = v
	}
	if v, ok := get("MAIL_DEFAULT_RECEIVER"); ok {
		c.Mail.DefaultReceiver = v
	}
	if v, ok := get("SENDGRID_API_URL"); ok {
		c.Mail.SendGridURL = strings.TrimRight(v, "/")
	}
	if v, ok := get("MAIL_MAX_EMAILS_PER_DAY"); ok {
		c.Mail.MaxEmailsPerDay = integer(v, c.Mail.MaxEmailsPerDay)
	}
	if v, ok := get("MAIL_TIMEOUT"); ok {
		c.Mail.Timeout = seconds(v, c.Mail.Timeout)
	}
	if v, ok := get("MAIL_ASYNC"); ok {
		c.Mail.Async = boolean(v, c.Mail.Async)
	}

	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := get("LOG_JSON"); ok {
		c.Log.JSON = boolean(v, false)
	} else {
		c.Log.JSON = c.Env == EnvProduction
	}
}

// Validate checks the settings that would make the server unsafe or unusable.
func (c Config) Validate() error {
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 || c.Auth.RecoveryMaxAge <= 0 {
		return ErrInvalidTTL
	}
	if c.IsProduction() {
		if c.Auth.SecretKey == "" || c.Auth.JWTSecretKey == "" ||
			c.Auth.SecretKey == Default().Auth.SecretKey {
			return ErrMissingSecret
		}
		if c.DatabaseURL == "" {
			return ErrMissingDatabase
		}
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool { return c.Env == EnvProduction }

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func seconds(v string, def time.Duration) time.Duration {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}

func integer(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolean(v string, def bool) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
