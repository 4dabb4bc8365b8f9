package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/model/auth"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
)

const (
	claimUsername = "username"
	claimRole     = "role"
)

// AuthConfig configures token issuing
type AuthConfig struct {
	Secret []byte `masq:"secret"`
	TTL    time.Duration
	Issuer string
}

// AuthUseCase issues, verifies and revokes HS256 access tokens
type AuthUseCase struct {
	repo  interfaces.Repository
	users *UserUseCase
	clock clock.Clock
	cfg   AuthConfig
	cache *revocationCache
}

func newAuthUseCase(repo interfaces.Repository, users *UserUseCase, c clock.Clock, cfg AuthConfig) *AuthUseCase {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "actiontrail"
	}
	return &AuthUseCase{
		repo:  repo,
		users: users,
		clock: c,
		cfg:   cfg,
		cache: newRevocationCache(c),
	}
}

const invalidCredentialsReason = "Invalid credentials"

// Login checks the credentials, stamps lastLogin and issues a token
func (uc *AuthUseCase) Login(ctx context.Context, username, password string) (*auth.SignedToken, *model.User, error) {
	name := model.NormalizeUsername(username)
	if name == "" || password == "" {
		return nil, nil, reject(ErrValidation, "Username and password are required")
	}

	u, err := uc.repo.User().GetByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, nil, reject(ErrUnauthorized, invalidCredentialsReason, goerr.V("username", name))
		}
		return nil, nil, unavailable(err, "failed to look up user", goerr.V("username", name))
	}
	if !u.VerifyPassword(password) {
		return nil, nil, reject(ErrUnauthorized, invalidCredentialsReason, goerr.V("username", name))
	}
	if !u.IsActive {
		return nil, nil, reject(ErrUnauthorized, "Account is deactivated", goerr.V(UserIDKey, u.ID))
	}

	u, err = uc.users.RecordLogin(ctx, u.ID)
	if err != nil {
		return nil, nil, err
	}

	signed, err := uc.issue(u)
	if err != nil {
		return nil, nil, err
	}

	logging.From(ctx).Info("user logged in", "user_id", u.ID, "token_id", signed.ID)
	return signed, u, nil
}

func (uc *AuthUseCase) issue(u *model.User) (*auth.SignedToken, error) {
	now := uc.clock()
	token := auth.Token{
		ID:        types.NewTokenID(),
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(uc.cfg.TTL),
	}

	tok, err := jwt.NewBuilder().
		Issuer(uc.cfg.Issuer).
		Subject(token.UserID.String()).
		JwtID(token.ID.String()).
		IssuedAt(token.IssuedAt).
		Expiration(token.ExpiresAt).
		Claim(claimUsername, token.Username).
		Claim(claimRole, token.Role.String()).
		Build()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build token")
	}

	raw, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, uc.cfg.Secret))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to sign token")
	}

	return &auth.SignedToken{Token: token, Raw: string(raw)}, nil
}

// parse verifies signature, issuer and expiry against the injected clock
func (uc *AuthUseCase) parse(raw string) (*auth.Token, error) {
	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKey(jwa.HS256, uc.cfg.Secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(uc.cfg.Issuer),
		jwt.WithClock(jwt.ClockFunc(uc.clock)),
	)
	if err != nil {
		return nil, reject(ErrUnauthorized, "Invalid or expired token", goerr.V("cause", err.Error()))
	}
	if tok.JwtID() == "" || tok.Subject() == "" {
		return nil, reject(ErrUnauthorized, "Invalid or expired token")
	}

	return &auth.Token{
		ID:        types.TokenID(tok.JwtID()),
		UserID:    types.UserID(tok.Subject()),
		IssuedAt:  tok.IssuedAt(),
		ExpiresAt: tok.Expiration(),
	}, nil
}

// Authenticate resolves a bearer token to the current state of its user.
// Revoked tokens and inactive or deleted users are rejected.
func (uc *AuthUseCase) Authenticate(ctx context.Context, raw string) (*auth.Token, error) {
	if raw == "" {
		return nil, reject(ErrUnauthorized, "Access token required")
	}

	token, err := uc.parse(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := uc.isRevoked(ctx, token.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, reject(ErrUnauthorized, "Token has been revoked", goerr.V("token_id", token.ID))
	}

	u, err := uc.repo.User().Get(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, reject(ErrUnauthorized, "Invalid or expired token", goerr.V(UserIDKey, token.UserID))
		}
		return nil, unavailable(err, "failed to load token user", goerr.V(UserIDKey, token.UserID))
	}
	if !u.IsActive {
		return nil, reject(ErrUnauthorized, "Account is deactivated", goerr.V(UserIDKey, u.ID))
	}

	token.Username = u.Username
	token.Role = u.Role
	return token, nil
}

// Logout revokes the token until it would have expired anyway
func (uc *AuthUseCase) Logout(ctx context.Context, token *auth.Token) error {
	if err := uc.repo.RevokeToken(ctx, token.ID, token.ExpiresAt); err != nil {
		return unavailable(err, "failed to revoke token", goerr.V("token_id", token.ID))
	}
	uc.cache.set(token.ID, true, token.ExpiresAt)

	logging.From(ctx).Info("user logged out", "user_id", token.UserID, "token_id", token.ID)
	return nil
}

func (uc *AuthUseCase) isRevoked(ctx context.Context, id types.TokenID) (bool, error) {
	if revoked, ok := uc.cache.get(id); ok {
		return revoked, nil
	}

	revoked, err := uc.repo.IsTokenRevoked(ctx, id)
	if err != nil {
		return false, unavailable(err, "failed to check token revocation", goerr.V("token_id", id))
	}

	uc.cache.set(id, revoked, time.Time{})
	return revoked, nil
}
