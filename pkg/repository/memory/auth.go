package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// tokenStore keeps revoked token ids until their expiry
type tokenStore struct {
	mu      sync.RWMutex
	revoked map[types.TokenID]time.Time
}

func newTokenStore() *tokenStore {
	return &tokenStore{
		revoked: make(map[types.TokenID]time.Time),
	}
}

func (r *Repository) RevokeToken(ctx context.Context, tokenID types.TokenID, expiresAt time.Time) error {
	if tokenID == "" {
		return goerr.New("token ID is required")
	}

	r.tokens.mu.Lock()
	defer r.tokens.mu.Unlock()

	r.tokens.revoked[tokenID] = expiresAt
	return nil
}

func (r *Repository) IsTokenRevoked(ctx context.Context, tokenID types.TokenID) (bool, error) {
	r.tokens.mu.RLock()
	defer r.tokens.mu.RUnlock()

	_, ok := r.tokens.revoked[tokenID]
	return ok, nil
}

func (r *Repository) PruneRevokedTokens(ctx context.Context, now time.Time) (int, error) {
	r.tokens.mu.Lock()
	defer r.tokens.mu.Unlock()

	n := 0
	for id, exp := range r.tokens.revoked {
		if now.After(exp) {
			delete(r.tokens.revoked, id)
			n++
		}
	}
	return n, nil
}
