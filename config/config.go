// Package config loads portal settings from the environment and an
// optional .env file. Variables use the PORTAL_ prefix, nested keys join
// with an underscore, e.g. PORTAL_AUTH_SIGNING_KEY.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	auth "github.com/goliatone/go-member-auth"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "PORTAL"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

var ErrMissingSigningKey = errors.New("config: auth.signing_key is required outside development")

// developmentSigningKey is only used when the environment is development
const developmentSigningKey = "development-only-signing-key-change-me"

type ServerConfig struct {
	Addr         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	// Driver is sqlite or postgres
	Driver      string
	DSN         string
	Debug       bool
	PingTimeout time.Duration
}

type AuthConfig struct {
	// PreviousSigningKeys still verify tokens during a key rotation
	PreviousSigningKeys []string
	SigningKey          string
	SigningMethod       string
	ContextKey          string
	TokenExpiration     int
	TokenLookup         string
	AuthScheme          string
	Issuer              string
	Audience            []string
	CookieName          string
	CookieSecure        bool
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type LogConfig struct {
	Level string
	Dev   bool
}

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	LoginLimit  RateLimitConfig
	Log         LogConfig
	PhoneRegion string
}

var _ auth.Config = (*Config)(nil)

type options struct {
	envFiles []string
}

type Option func(*options)

// WithEnvFile loads path before reading the environment. Missing files
// are ignored, values already set in the environment win.
func WithEnvFile(path string) Option {
	return func(o *options) {
		if path != "" {
			o.envFiles = append(o.envFiles, path)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.environment", EnvProduction)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:portal.db?cache=shared")
	v.SetDefault("database.debug", false)
	v.SetDefault("database.ping_timeout", "5s")

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.previous_signing_keys", "")
	v.SetDefault("auth.signing_method", "HS256")
	v.SetDefault("auth.context_key", auth.DefaultContextKey)
	v.SetDefault("auth.token_expiration", 24)
	v.SetDefault("auth.token_lookup", "")
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.issuer", "member-portal")
	v.SetDefault("auth.audience", "member-portal")
	v.SetDefault("auth.cookie_name", "session")
	v.SetDefault("auth.cookie_secure", true)

	v.SetDefault("login_limit.rps", 0.2)
	v.SetDefault("login_limit.burst", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dev", false)

	v.SetDefault("phone_region", auth.DefaultPhoneRegion)
}

// Load reads the configuration
func Load(opts ...Option) (*Config, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	for _, path := range o.envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			Environment:  strings.ToLower(v.GetString("server.environment")),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			IdleTimeout:  v.GetDuration("server.idle_timeout"),
		},
		Database: DatabaseConfig{
			Driver:      strings.ToLower(v.GetString("database.driver")),
			DSN:         v.GetString("database.dsn"),
			Debug:       v.GetBool("database.debug"),
			PingTimeout: v.GetDuration("database.ping_timeout"),
		},
		Auth: AuthConfig{
			SigningKey:          v.GetString("auth.signing_key"),
			PreviousSigningKeys: splitList(v.GetString("auth.previous_signing_keys")),
			SigningMethod:       v.GetString("auth.signing_method"),
			ContextKey:          v.GetString("auth.context_key"),
			TokenExpiration:     v.GetInt("auth.token_expiration"),
			TokenLookup:         v.GetString("auth.token_lookup"),
			AuthScheme:          v.GetString("auth.auth_scheme"),
			Issuer:              v.GetString("auth.issuer"),
			Audience:            splitList(v.GetString("auth.audience")),
			CookieName:          v.GetString("auth.cookie_name"),
			CookieSecure:        v.GetBool("auth.cookie_secure"),
		},
		LoginLimit: RateLimitConfig{
			RPS:   v.GetFloat64("login_limit.rps"),
			Burst: v.GetInt("login_limit.burst"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			Dev:   v.GetBool("log.dev"),
		},
		PhoneRegion: strings.ToUpper(v.GetString("phone_region")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.SigningKey == "" {
		if !c.IsDevelopment() {
			return ErrMissingSigningKey
		}
		c.Auth.SigningKey = developmentSigningKey
	}

	if c.Auth.SigningMethod != "HS256" {
		return fmt.Errorf("config: unsupported signing method %q", c.Auth.SigningMethod)
	}

	if c.Auth.TokenExpiration <= 0 {
		return fmt.Errorf("config: auth.token_expiration must be positive, got %d", c.Auth.TokenExpiration)
	}

	if c.Auth.TokenLookup == "" {
		c.Auth.TokenLookup = DefaultTokenLookup(c.Auth.CookieName)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}

	return nil
}

// DefaultTokenLookup reads the bearer header first, then the session cookie
func DefaultTokenLookup(cookieName string) string {
	if cookieName == "" {
		cookieName = auth.DefaultContextKey
	}
	return "header:Authorization,cookie:" + cookieName
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetSigningMethod() string {
	return c.Auth.SigningMethod
}

func (c *Config) GetContextKey() string {
	return c.Auth.ContextKey
}

func (c *Config) GetTokenExpiration() int {
	return c.Auth.TokenExpiration
}

func (c *Config) GetTokenLookup() string {
	return c.Auth.TokenLookup
}

func (c *Config) GetAuthScheme() string {
	return c.Auth.AuthScheme
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Auth.Audience
}

func (d DatabaseConfig) GetDebug() bool {
	return d.Debug
}

func (d DatabaseConfig) GetDriver() string {
	return d.Driver
}

// GetServer is the driver connection string
func (d DatabaseConfig) GetServer() string {
	return d.DSN
}

func (d DatabaseConfig) GetPingTimeout() time.Duration {
	if d.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return d.PingTimeout
}

func (d DatabaseConfig) GetOtelIdentifier() string {
	return "member-portal-" + d.Driver
}
