package config

import (
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// minSecretLength is the shortest accepted HS256 signing secret
const minSecretLength = 32

// Auth holds CLI flags for token issuing and the bootstrap admin
type Auth struct {
	jwtSecret     string
	jwtTTL        time.Duration
	issuer        string
	adminUsername string
	adminPassword string
}

func (a *Auth) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "jwt-secret",
			Usage:       "Secret used to sign access tokens (at least 32 bytes)",
			Category:    "Auth",
			Sources:     cli.EnvVars("ACTIONTRAIL_JWT_SECRET"),
			Destination: &a.jwtSecret,
		},
		&cli.DurationFlag{
			Name:        "jwt-ttl",
			Usage:       "Lifetime of issued access tokens",
			Value:       24 * time.Hour,
			Category:    "Auth",
			Sources:     cli.EnvVars("ACTIONTRAIL_JWT_TTL"),
			Destination: &a.jwtTTL,
		},
		&cli.StringFlag{
			Name:        "jwt-issuer",
			Usage:       "Issuer claim of access tokens",
			Value:       "actiontrail",
			Category:    "Auth",
			Sources:     cli.EnvVars("ACTIONTRAIL_JWT_ISSUER"),
			Destination: &a.issuer,
		},
		&cli.StringFlag{
			Name:        "admin-username",
			Usage:       "Username of the admin created when no admin exists",
			Value:       "admin",
			Category:    "Auth",
			Sources:     cli.EnvVars("ACTIONTRAIL_ADMIN_USERNAME"),
			Destination: &a.adminUsername,
		},
		&cli.StringFlag{
			Name:        "admin-password",
			Usage:       "Password of the admin created when no admin exists",
			Value:       "admin123",
			Category:    "Auth",
			Sources:     cli.EnvVars("ACTIONTRAIL_ADMIN_PASSWORD"),
			Destination: &a.adminPassword,
		},
	}
}

func (a Auth) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("jwt_secret_set", a.jwtSecret != ""),
		slog.Duration("jwt_ttl", a.jwtTTL),
		slog.String("jwt_issuer", a.issuer),
		slog.String("admin_username", a.adminUsername),
	)
}

// Configure returns the token settings. A missing or short secret is an error.
func (a *Auth) Configure() (usecase.AuthConfig, error) {
	if a.jwtSecret == "" {
		return usecase.AuthConfig{}, goerr.Wrap(ErrMissingSecret, "jwt-secret is required",
			goerr.V(FieldKey, "jwt-secret"))
	}
	if len(a.jwtSecret) < minSecretLength {
		return usecase.AuthConfig{}, goerr.Wrap(ErrInvalidConfig, "jwt-secret is too short",
			goerr.V(FieldKey, "jwt-secret"), goerr.V("min_length", minSecretLength))
	}
	if a.jwtTTL <= 0 {
		return usecase.AuthConfig{}, goerr.Wrap(ErrInvalidConfig, "jwt-ttl must be positive",
			goerr.V(FieldKey, "jwt-ttl"), goerr.V(ValueKey, a.jwtTTL))
	}

	return usecase.AuthConfig{
		Secret: []byte(a.jwtSecret),
		TTL:    a.jwtTTL,
		Issuer: a.issuer,
	}, nil
}

// AdminCredentials returns the bootstrap admin account
func (a *Auth) AdminCredentials() (string, string) {
	return a.adminUsername, a.adminPassword
}
