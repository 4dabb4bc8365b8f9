package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
)

var testAuth = usecase.AuthConfig{
	Secret: []byte("test-secret-with-enough-entropy"),
	TTL:    24 * time.Hour,
	Issuer: "actiontrail-test",
}

func TestLogin(t *testing.T) {
	f := newFixture(t, usecase.WithAuth(testAuth))
	ctx := context.Background()
	f.createUser(t, "alice")

	t.Run("success stamps last login", func(t *testing.T) {
		f.clock.Advance(time.Hour)
		signed, u, err := f.uc.Auth.Login(ctx, " ALICE", "alice-pass")
		gt.NoError(t, err).Required()
		gt.Value(t, u.Username).Equal("alice")
		gt.Value(t, *u.LastLogin).Equal(testNow.Add(time.Hour))
		gt.String(t, signed.Raw).NotEqual("")
		gt.Value(t, signed.ExpiresAt).Equal(testNow.Add(25 * time.Hour))
	})

	t.Run("wrong password and unknown user look the same", func(t *testing.T) {
		_, _, err := f.uc.Auth.Login(ctx, "alice", "nope-nope")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
		gt.Value(t, usecase.Reason(err)).Equal("Invalid credentials")

		_, _, err = f.uc.Auth.Login(ctx, "mallory", "nope-nope")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
		gt.Value(t, usecase.Reason(err)).Equal("Invalid credentials")
	})

	t.Run("missing fields", func(t *testing.T) {
		_, _, err := f.uc.Auth.Login(ctx, "", "x")
		gt.Error(t, err).Is(usecase.ErrValidation)
	})
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t, usecase.WithAuth(testAuth))
	ctx := context.Background()
	alice := f.createUser(t, "alice")

	signed, _, err := f.uc.Auth.Login(ctx, "alice", "alice-pass")
	gt.NoError(t, err).Required()

	t.Run("valid token resolves the user", func(t *testing.T) {
		token, err := f.uc.Auth.Authenticate(ctx, signed.Raw)
		gt.NoError(t, err).Required()
		gt.Value(t, token.UserID).Equal(alice.ID)
		gt.Value(t, token.Username).Equal("alice")
		gt.Bool(t, token.IsAdmin()).False()
	})

	t.Run("role change is reflected without a new token", func(t *testing.T) {
		_, err := f.uc.User.Update(ctx, f.admin.ID, alice.ID, usecase.UpdateUserInput{Role: ptr("admin")})
		gt.NoError(t, err).Required()

		token, err := f.uc.Auth.Authenticate(ctx, signed.Raw)
		gt.NoError(t, err).Required()
		gt.Value(t, token.Role).Equal(types.RoleAdmin)
	})

	t.Run("garbage and empty tokens", func(t *testing.T) {
		_, err := f.uc.Auth.Authenticate(ctx, "")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
		gt.Value(t, usecase.Reason(err)).Equal("Access token required")

		_, err = f.uc.Auth.Authenticate(ctx, "not.a.jwt")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
		gt.Value(t, usecase.Reason(err)).Equal("Invalid or expired token")
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other := usecase.New(f.repo, usecase.WithClock(f.clock.Clock()), usecase.WithAuth(usecase.AuthConfig{
			Secret: []byte("another-secret"),
			Issuer: testAuth.Issuer,
		}))
		_, err := other.Auth.Authenticate(ctx, signed.Raw)
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
	})

	t.Run("deactivated user", func(t *testing.T) {
		_, err := f.uc.User.Delete(ctx, f.admin.ID, alice.ID, false)
		gt.NoError(t, err).Required()

		_, err = f.uc.Auth.Authenticate(ctx, signed.Raw)
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
		gt.Value(t, usecase.Reason(err)).Equal("Account is deactivated")

		_, _, err = f.uc.Auth.Login(ctx, "alice", "alice-pass")
		gt.Error(t, err).Is(usecase.ErrUnauthorized)
		gt.Value(t, usecase.Reason(err)).Equal("Account is deactivated")
	})
}

func TestTokenExpiry(t *testing.T) {
	f := newFixture(t, usecase.WithAuth(testAuth))
	ctx := context.Background()

	signed, _, err := f.uc.Auth.Login(ctx, "root", "rootpass")
	gt.NoError(t, err).Required()

	f.clock.Advance(23 * time.Hour)
	_, err = f.uc.Auth.Authenticate(ctx, signed.Raw)
	gt.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.uc.Auth.Authenticate(ctx, signed.Raw)
	gt.Error(t, err).Is(usecase.ErrUnauthorized)
	gt.Value(t, usecase.Reason(err)).Equal("Invalid or expired token")
}

func TestLogout(t *testing.T) {
	f := newFixture(t, usecase.WithAuth(testAuth))
	ctx := context.Background()

	signed, _, err := f.uc.Auth.Login(ctx, "root", "rootpass")
	gt.NoError(t, err).Required()

	// another instance caches the negative lookup before the logout
	peer := usecase.New(f.repo,
		usecase.WithClock(f.clock.Clock()),
		usecase.WithSettings(testSettings()),
		usecase.WithAuth(testAuth),
	)
	_, err = peer.Auth.Authenticate(ctx, signed.Raw)
	gt.NoError(t, err).Required()

	token, err := f.uc.Auth.Authenticate(ctx, signed.Raw)
	gt.NoError(t, err).Required()
	gt.NoError(t, f.uc.Auth.Logout(ctx, token)).Required()

	_, err = f.uc.Auth.Authenticate(ctx, signed.Raw)
	gt.Error(t, err).Is(usecase.ErrUnauthorized)
	gt.Value(t, usecase.Reason(err)).Equal("Token has been revoked")

	f.clock.Advance(time.Minute)
	_, err = peer.Auth.Authenticate(ctx, signed.Raw)
	gt.Error(t, err).Is(usecase.ErrUnauthorized)
	gt.Value(t, usecase.Reason(err)).Equal("Token has been revoked")

	t.Run("new login issues a usable token", func(t *testing.T) {
		fresh, _, err := f.uc.Auth.Login(ctx, "root", "rootpass")
		gt.NoError(t, err).Required()
		gt.Value(t, fresh.ID).NotEqual(signed.ID)
		_, err = f.uc.Auth.Authenticate(ctx, fresh.Raw)
		gt.NoError(t, err)
	})
}
