package interfaces

import (
	"context"
	"time"

	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// Repository defines the interface for data persistence
type Repository interface {
	User() UserRepository
	Action() ActionRepository
	ActionPlan() ActionPlanRepository

	// Token revocation
	RevokeToken(ctx context.Context, tokenID types.TokenID, expiresAt time.Time) error
	IsTokenRevoked(ctx context.Context, tokenID types.TokenID) (bool, error)
	// PruneRevokedTokens drops revocations whose tokens expired before now
	PruneRevokedTokens(ctx context.Context, now time.Time) (int, error)

	Close() error
}

// Page selects a window of a newest-first listing. Limit 0 means no limit.
type Page struct {
	Offset int
	Limit  int
}
