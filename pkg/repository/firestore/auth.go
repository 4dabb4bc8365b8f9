package firestore

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type revokedTokenDoc struct {
	ID        string    `firestore:"id"`
	ExpiresAt time.Time `firestore:"expires_at"`
	RevokedAt time.Time `firestore:"revoked_at"`
}

func (r *Firestore) RevokeToken(ctx context.Context, tokenID types.TokenID, expiresAt time.Time) error {
	if tokenID == "" {
		return goerr.New("token ID is required")
	}

	doc := &revokedTokenDoc{
		ID:        tokenID.String(),
		ExpiresAt: expiresAt,
		RevokedAt: time.Now().UTC(),
	}
	docRef := r.client.Collection(r.tokensCollection).Doc(tokenID.String())
	if _, err := docRef.Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to revoke token", goerr.V("token_id", tokenID))
	}

	return nil
}

func (r *Firestore) IsTokenRevoked(ctx context.Context, tokenID types.TokenID) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	_, err := r.client.Collection(r.tokensCollection).Doc(tokenID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to get revoked token", goerr.V("token_id", tokenID))
	}

	return true, nil
}

func (r *Firestore) PruneRevokedTokens(ctx context.Context, now time.Time) (int, error) {
	iter := r.client.Collection(r.tokensCollection).Where("expires_at", "<", now).Documents(ctx)
	n, err := bulkDelete(ctx, r.client, iter)
	if err != nil {
		return n, goerr.Wrap(err, "failed to prune revoked tokens", goerr.V("pruned", n))
	}
	return n, nil
}
