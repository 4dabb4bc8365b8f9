package config_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/cli/config"
)

func TestConfigErrors_SentinelIdentification(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		sentinelError error
		wantMatch     bool
	}{
		{
			name:          "ErrConfigNotFound can be identified",
			err:           goerr.Wrap(config.ErrConfigNotFound, "failed to load config"),
			sentinelError: config.ErrConfigNotFound,
			wantMatch:     true,
		},
		{
			name:          "ErrInvalidConfig can be identified",
			err:           goerr.Wrap(config.ErrInvalidConfig, "validation failed"),
			sentinelError: config.ErrInvalidConfig,
			wantMatch:     true,
		},
		{
			name:          "ErrMissingSecret can be identified",
			err:           goerr.Wrap(config.ErrMissingSecret, "jwt-secret is required"),
			sentinelError: config.ErrMissingSecret,
			wantMatch:     true,
		},
		{
			name:          "ErrMissingSecret is not ErrInvalidConfig",
			err:           goerr.Wrap(config.ErrMissingSecret, "jwt-secret is required"),
			sentinelError: config.ErrInvalidConfig,
			wantMatch:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Equal(t, errors.Is(tt.err, tt.sentinelError), tt.wantMatch)
		})
	}
}

func TestConfigErrors_ContextValues(t *testing.T) {
	err := goerr.Wrap(config.ErrInvalidConfig, "bad value",
		goerr.V(config.FieldKey, "max_active_users"),
		goerr.V(config.ValueKey, 0),
	)

	values := goerr.Values(err)
	gt.Equal(t, values[config.FieldKey], any("max_active_users"))
	gt.Equal(t, values[config.ValueKey], any(0))
}
