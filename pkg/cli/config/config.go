package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// AppConfig represents the application policy loaded from a TOML file
type AppConfig struct {
	Timezone          string     `toml:"timezone"`
	MaxActiveUsers    int        `toml:"max_active_users"`
	MinPasswordLength int        `toml:"min_password_length"`
	Pagination        Pagination `toml:"pagination"`
	PublicFeed        PublicFeed `toml:"public_feed"`
	RateLimit         RateLimit  `toml:"rate_limit"`
	CORS              CORS       `toml:"cors"`

	path string
}

type Pagination struct {
	DefaultPageSize int `toml:"default_page_size"`
	MaxPageSize     int `toml:"max_page_size"`
}

type PublicFeed struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

type RateLimit struct {
	Requests int    `toml:"requests"`
	Window   string `toml:"window"`
}

type CORS struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DefaultAppConfig returns the policy used when no file is given
func DefaultAppConfig() *AppConfig {
	s := usecase.DefaultSettings()
	return &AppConfig{
		Timezone:          "UTC",
		MaxActiveUsers:    s.MaxActiveUsers,
		MinPasswordLength: s.MinPasswordLength,
		Pagination: Pagination{
			DefaultPageSize: s.DefaultPageSize,
			MaxPageSize:     s.MaxPageSize,
		},
		PublicFeed: PublicFeed{
			DefaultLimit: s.DefaultFeedLimit,
			MaxLimit:     s.MaxFeedLimit,
		},
		RateLimit: RateLimit{
			Requests: 100,
			Window:   "15m",
		},
		CORS: CORS{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
}

func (a *AppConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to the policy TOML file",
			Sources:     cli.EnvVars("ACTIONTRAIL_CONFIG"),
			Destination: &a.path,
		},
	}
}

func (a AppConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", a.path),
		slog.String("timezone", a.Timezone),
		slog.Int("max_active_users", a.MaxActiveUsers),
		slog.Any("allowed_origins", a.CORS.AllowedOrigins),
	)
}

func invalid(field string, value any, msg string) error {
	return goerr.Wrap(ErrInvalidConfig, msg, goerr.V(FieldKey, field), goerr.V(ValueKey, value))
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return goerr.Wrap(ErrInvalidConfig, "unknown timezone", goerr.V(FieldKey, "timezone"), goerr.V(ValueKey, a.Timezone), goerr.V("cause", err.Error()))
	}
	if a.MaxActiveUsers < 1 {
		return invalid("max_active_users", a.MaxActiveUsers, "max_active_users must be positive")
	}
	if a.MinPasswordLength < 1 {
		return invalid("min_password_length", a.MinPasswordLength, "min_password_length must be positive")
	}
	if a.Pagination.DefaultPageSize < 1 || a.Pagination.MaxPageSize < a.Pagination.DefaultPageSize {
		return invalid("pagination", a.Pagination, "page sizes must satisfy 1 <= default_page_size <= max_page_size")
	}
	if a.PublicFeed.DefaultLimit < 1 || a.PublicFeed.MaxLimit < a.PublicFeed.DefaultLimit {
		return invalid("public_feed", a.PublicFeed, "feed limits must satisfy 1 <= default_limit <= max_limit")
	}
	if a.RateLimit.Requests < 0 {
		return invalid("rate_limit.requests", a.RateLimit.Requests, "rate_limit.requests must not be negative")
	}
	if window, err := time.ParseDuration(a.RateLimit.Window); err != nil || window < time.Second {
		return invalid("rate_limit.window", a.RateLimit.Window, "rate_limit.window must be a duration of at least 1s")
	}
	for _, origin := range a.CORS.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return invalid("cors.allowed_origins", origin, "allowed origin must be an http(s) URL or *")
		}
	}
	return nil
}

// Settings converts the policy into use case settings. Validate must have
// passed.
func (a *AppConfig) Settings() usecase.Settings {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		loc = time.UTC
	}

	s := usecase.DefaultSettings()
	s.Location = loc
	s.MaxActiveUsers = a.MaxActiveUsers
	s.MinPasswordLength = a.MinPasswordLength
	s.DefaultPageSize = a.Pagination.DefaultPageSize
	s.MaxPageSize = a.Pagination.MaxPageSize
	s.DefaultFeedLimit = a.PublicFeed.DefaultLimit
	s.MaxFeedLimit = a.PublicFeed.MaxLimit
	return s
}

// RateWindow returns the parsed rate limit window
func (a *AppConfig) RateWindow() time.Duration {
	window, err := time.ParseDuration(a.RateLimit.Window)
	if err != nil {
		return 15 * time.Minute
	}
	return window
}

// LoadAppConfiguration loads the application configuration from a TOML file.
// Keys missing from the file keep their defaults.
func LoadAppConfiguration(path string) (*AppConfig, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	config := DefaultAppConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to parse TOML config", goerr.V(ConfigPathKey, path))
	}
	config.path = path

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return config, nil
}

// Configure loads the file given by --config, or the defaults without one
func (a *AppConfig) Configure() (*AppConfig, error) {
	if a.path == "" {
		return DefaultAppConfig(), nil
	}
	return LoadAppConfiguration(a.path)
}

// Path returns the config file path given on the command line
func (a *AppConfig) Path() string {
	return a.path
}
