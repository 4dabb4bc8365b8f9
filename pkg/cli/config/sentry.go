package config

import (
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Sentry holds CLI flags for error reporting
type Sentry struct {
	dsn         string
	environment string
	release     string
}

func (x *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN. Error reporting is disabled when empty",
			Category:    "Sentry",
			Destination: &x.dsn,
			Sources:     cli.EnvVars("ACTIONTRAIL_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment name",
			Category:    "Sentry",
			Destination: &x.environment,
			Sources:     cli.EnvVars("ACTIONTRAIL_SENTRY_ENV"),
		},
		&cli.StringFlag{
			Name:        "sentry-release",
			Usage:       "Sentry release name",
			Category:    "Sentry",
			Destination: &x.release,
			Sources:     cli.EnvVars("ACTIONTRAIL_SENTRY_RELEASE"),
		},
	}
}

func (x Sentry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", x.dsn != ""),
		slog.String("env", x.environment),
		slog.String("release", x.release),
	)
}

// Configure initializes the Sentry client. The returned function flushes
// buffered events and must be called before exit.
func (x *Sentry) Configure(defaultRelease string) (func(), error) {
	if x.dsn == "" {
		return func() {}, nil
	}

	release := x.release
	if release == "" {
		release = defaultRelease
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         x.dsn,
		Environment: x.environment,
		Release:     release,
	}); err != nil {
		return nil, goerr.Wrap(errors.Join(ErrInvalidConfig, err), "failed to initialize sentry",
			goerr.V(FieldKey, "sentry-dsn"))
	}

	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}
