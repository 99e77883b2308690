// Package config loads the runtime configuration of the sign-in service and
// the identity-sync backend from the environment, optional .env files and
// command line flags.
package config

import (
	"crypto/sha256"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/sigle/sigle-auth"
	"github.com/spf13/pflag"
)

const (
	EnvProduction  = "production"
	EnvPreview     = "preview"
	EnvDevelopment = "development"
)

// Config is the flat process configuration. It satisfies auth.Config.
type Config struct {
	AppURL           string        `env:"APP_URL" json:"app_url"`
	APIURL           string        `env:"API_URL" json:"api_url"`
	InternalAPIToken string        `env:"INTERNAL_API_TOKEN" json:"-"`
	AuthSecret       string        `env:"AUTH_SECRET" json:"-"`
	AuthSecretPrev   string        `env:"AUTH_SECRET_PREVIOUS" json:"-"`
	VercelEnv        string        `env:"VERCEL_ENV" json:"vercel_env"`
	AppEnv           string        `env:"APP_ENV,default=development" json:"app_env"`
	HTTPAddr         string        `env:"HTTP_ADDR,default=:3000" json:"http_addr"`
	MetricsAddr      string        `env:"METRICS_ADDR" json:"metrics_addr"`
	SessionMaxAge    time.Duration `env:"SESSION_MAX_AGE,default=720h" json:"session_max_age"`
	SIWSMaxAge       time.Duration `env:"SIWS_MAX_MESSAGE_AGE,default=10m" json:"siws_max_message_age"`
	Issuer           string        `env:"AUTH_ISSUER,default=sigle" json:"issuer"`
	Audience         string        `env:"AUTH_AUDIENCE" json:"audience"`
	RedisAddr        string        `env:"REDIS_ADDR" json:"redis_addr"`
	DatabaseDSN      string        `env:"DATABASE_DSN,default=file:sigle.db?cache=shared" json:"database_dsn"`
	UseHashid        bool          `env:"USE_HASHID" json:"use_hashid"`
	LogLevel         string        `env:"LOG_LEVEL,default=info" json:"log_level"`
}

var _ auth.Config = (*Config)(nil)

// Load reads .env files, then the environment, then flags from args. Later
// sources win.
func Load(name string, args []string) (*Config, error) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	envFiles := fs.StringSlice("env-file", nil, "dotenv files to load before reading the environment")
	httpAddr := fs.String("http-addr", "", "listen address of the HTTP server")
	metricsAddr := fs.String("metrics-addr", "", "listen address of the metrics server, empty disables it")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	dsn := fs.String("database-dsn", "", "database connection string")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "invalid command line flags")
	}

	if err := loadDotEnv(*envFiles...); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "unable to decode environment")
	}

	if fs.Changed("http-addr") {
		cfg.HTTPAddr = *httpAddr
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = *metricsAddr
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("database-dsn") {
		cfg.DatabaseDSN = *dsn
	}

	return cfg, nil
}

// loadDotEnv loads the given files, or ./.env when none are given. A
// missing default file is not an error.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}

	if err := godotenv.Load(files...); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "unable to load env file").
			WithMetadata(map[string]any{"files": files})
	}
	return nil
}

// ValidateAuthService checks the settings the sign-in service needs
func (c *Config) ValidateAuthService() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(c,
			validation.Field(&c.AppURL, validation.Required, is.URL),
			validation.Field(&c.APIURL, validation.Required, is.URL),
			validation.Field(&c.InternalAPIToken, validation.Required),
			validation.Field(&c.AuthSecret, validation.Required, validation.Length(32, 0)),
			validation.Field(&c.AuthSecretPrev, validation.By(secretList)),
			validation.Field(&c.HTTPAddr, validation.Required),
			validation.Field(&c.SessionMaxAge, validation.Required),
		)
	}, "invalid sign-in service configuration"); err != nil {
		return err
	}
	return nil
}

// ValidateAPIService checks the settings the identity-sync backend needs
func (c *Config) ValidateAPIService() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(c,
			validation.Field(&c.InternalAPIToken, validation.Required),
			validation.Field(&c.DatabaseDSN, validation.Required),
			validation.Field(&c.HTTPAddr, validation.Required),
		)
	}, "invalid api service configuration"); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether the process serves the production app
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, EnvProduction) ||
		strings.EqualFold(c.VercelEnv, EnvProduction)
}

// CSRFKey derives the 32 byte key used to sign csrf cookies
func (c *Config) CSRFKey() []byte {
	sum := sha256.Sum256([]byte("csrf:" + c.AuthSecret))
	return sum[:]
}

func (c *Config) GetSigningKey() string {
	return c.AuthSecret
}

// PreviousSigningKeys lists the retired secrets still accepted for sessions,
// newest first
func (c *Config) PreviousSigningKeys() []string {
	return splitList(c.AuthSecretPrev)
}

func secretList(value any) error {
	raw, _ := value.(string)
	for _, secret := range splitList(raw) {
		if len(secret) < 32 {
			return errors.New("each previous secret must be at least 32 characters", errors.CategoryValidation)
		}
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) GetIssuer() string {
	return c.Issuer
}

func (c *Config) GetAudience() []string {
	return splitList(c.Audience)
}

func (c *Config) GetSessionMaxAge() time.Duration {
	return c.SessionMaxAge
}

func (c *Config) GetAppURL() string {
	return c.AppURL
}

// GetIsPreview is true on preview deployments, where cookies stay on the
// preview hostname.
func (c *Config) GetIsPreview() bool {
	return strings.EqualFold(c.VercelEnv, EnvPreview)
}

func (c *Config) GetContextKey() string {
	return auth.DefaultContextKey
}
