package auth

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

var ErrNoToken = goerr.New("no auth token in context")

// Token is a verified access token. Identity fields reflect the stored user
// at verification time, not the claims embedded when it was issued.
type Token struct {
	ID        types.TokenID
	UserID    types.UserID
	Username  string
	Role      types.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsAdmin reports whether the bearer holds the admin role.
func (t *Token) IsAdmin() bool {
	return t != nil && t.Role == types.RoleAdmin
}

// IsExpired reports whether the token is past its expiry at now.
func (t *Token) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SignedToken is an issued token together with its compact serialization.
type SignedToken struct {
	Token
	Raw string `masq:"secret"`
}

type ctxTokenKey struct{}

// ContextWithToken stores an authenticated token in ctx.
func ContextWithToken(ctx context.Context, token *Token) context.Context {
	return context.WithValue(ctx, ctxTokenKey{}, token)
}

// TokenFromContext returns the token placed by ContextWithToken.
func TokenFromContext(ctx context.Context) (*Token, error) {
	token, ok := ctx.Value(ctxTokenKey{}).(*Token)
	if !ok || token == nil {
		return nil, ErrNoToken
	}
	return token, nil
}
