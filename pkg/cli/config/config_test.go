package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/cli/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, cfg *config.AppConfig)
	}{
		{
			name: "full configuration",
			content: `
timezone = "Asia/Tokyo"
max_active_users = 10
min_password_length = 8

[pagination]
default_page_size = 5
max_page_size = 20

[public_feed]
default_limit = 10
max_limit = 30

[rate_limit]
requests = 50
window = "1m"

[cors]
allowed_origins = ["https://actions.example.com"]
`,
			check: func(t *testing.T, cfg *config.AppConfig) {
				gt.Equal(t, cfg.Timezone, "Asia/Tokyo")
				gt.Equal(t, cfg.MaxActiveUsers, 10)
				gt.Equal(t, cfg.RateWindow(), time.Minute)
				gt.Array(t, cfg.CORS.AllowedOrigins).Length(1)

				s := cfg.Settings()
				gt.Equal(t, s.Location.String(), "Asia/Tokyo")
				gt.Equal(t, s.MaxActiveUsers, 10)
				gt.Equal(t, s.MinPasswordLength, 8)
				gt.Equal(t, s.DefaultPageSize, 5)
				gt.Equal(t, s.MaxPageSize, 20)
				gt.Equal(t, s.DefaultFeedLimit, 10)
				gt.Equal(t, s.MaxFeedLimit, 30)
			},
		},
		{
			name:    "missing keys keep defaults",
			content: `max_active_users = 5`,
			check: func(t *testing.T, cfg *config.AppConfig) {
				def := config.DefaultAppConfig()
				gt.Equal(t, cfg.MaxActiveUsers, 5)
				gt.Equal(t, cfg.Timezone, def.Timezone)
				gt.Equal(t, cfg.Pagination, def.Pagination)
				gt.Equal(t, cfg.PublicFeed, def.PublicFeed)
				gt.Equal(t, cfg.RateLimit, def.RateLimit)
			},
		},
		{
			name:    "unknown timezone",
			content: `timezone = "Mars/Olympus"`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "zero user cap",
			content: `max_active_users = 0`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "default page size above max",
			content: `
[pagination]
default_page_size = 50
max_page_size = 10
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "bad rate window",
			content: `
[rate_limit]
window = "soon"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "sub-second rate window",
			content: `
[rate_limit]
requests = 100
window = "50ns"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "bad origin",
			content: `
[cors]
allowed_origins = ["example.com"]
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name:    "broken TOML",
			content: `timezone = `,
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadAppConfiguration(writeConfig(t, tt.content))
			if tt.wantErr != nil {
				gt.Error(t, err).Is(tt.wantErr)
				return
			}
			gt.NoError(t, err).Required()
			tt.check(t, cfg)
		})
	}
}

func TestLoadAppConfigurationNotFound(t *testing.T) {
	_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Error(t, err).Is(config.ErrConfigNotFound)
}

func TestDefaultAppConfig(t *testing.T) {
	cfg := config.DefaultAppConfig()
	gt.NoError(t, cfg.Validate())

	s := cfg.Settings()
	gt.Equal(t, s.MaxActiveUsers, 30)
	gt.Equal(t, s.Location, time.UTC)
	gt.Equal(t, cfg.RateLimit.Requests, 100)
	gt.Equal(t, cfg.RateWindow(), 15*time.Minute)
}

func TestAuthConfigure(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"

	t.Run("valid", func(t *testing.T) {
		cfg, err := config.NewAuthForTest(secret, time.Hour).Configure()
		gt.NoError(t, err).Required()
		gt.Equal(t, string(cfg.Secret), secret)
		gt.Equal(t, cfg.TTL, time.Hour)
		gt.Equal(t, cfg.Issuer, "actiontrail")
	})

	t.Run("missing secret", func(t *testing.T) {
		_, err := config.NewAuthForTest("", time.Hour).Configure()
		gt.Error(t, err).Is(config.ErrMissingSecret)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := config.NewAuthForTest("short", time.Hour).Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("non-positive ttl", func(t *testing.T) {
		_, err := config.NewAuthForTest(secret, 0).Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("admin credentials", func(t *testing.T) {
		user, pass := config.NewAuthForTest(secret, time.Hour).AdminCredentials()
		gt.Equal(t, user, "admin")
		gt.Equal(t, pass, "admin123")
	})
}

func TestRepositoryConfigure(t *testing.T) {
	ctx := t.Context()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.Close())
	})

	t.Run("firestore without project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("postgres", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestLoggerNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		logger, err := config.NewLoggerForTest("debug", "json").NewLogger(os.Stderr)
		gt.NoError(t, err)
		gt.NotNil(t, logger)
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("verbose", "json").NewLogger(os.Stderr)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml").NewLogger(os.Stderr)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}
