package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

func runAuthRepositoryTest(t *testing.T, newRepo repoFactory) {
	t.Helper()

	t.Run("RevokeToken marks the token revoked", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		id := types.NewTokenID()

		revoked, err := repo.IsTokenRevoked(ctx, id)
		gt.NoError(t, err).Required()
		gt.Bool(t, revoked).False()

		gt.NoError(t, repo.RevokeToken(ctx, id, time.Now().Add(time.Hour))).Required()

		revoked, err = repo.IsTokenRevoked(ctx, id)
		gt.NoError(t, err).Required()
		gt.Bool(t, revoked).True()

		other, err := repo.IsTokenRevoked(ctx, types.NewTokenID())
		gt.NoError(t, err).Required()
		gt.Bool(t, other).False()
	})

	t.Run("RevokeToken requires an ID", func(t *testing.T) {
		repo := newRepo(t)
		gt.Error(t, repo.RevokeToken(context.Background(), "", time.Now()))
	})

	t.Run("PruneRevokedTokens drops expired revocations", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		now := time.Now()
		expired := types.NewTokenID()
		live := types.NewTokenID()

		gt.NoError(t, repo.RevokeToken(ctx, expired, now.Add(-time.Minute))).Required()
		gt.NoError(t, repo.RevokeToken(ctx, live, now.Add(time.Hour))).Required()

		n, err := repo.PruneRevokedTokens(ctx, now)
		gt.NoError(t, err).Required()
		gt.Equal(t, n, 1)

		// only committed deletes are counted, so a second pass finds nothing
		n, err = repo.PruneRevokedTokens(ctx, now)
		gt.NoError(t, err).Required()
		gt.Equal(t, n, 0)

		revoked, err := repo.IsTokenRevoked(ctx, expired)
		gt.NoError(t, err).Required()
		gt.Bool(t, revoked).False()

		revoked, err = repo.IsTokenRevoked(ctx, live)
		gt.NoError(t, err).Required()
		gt.Bool(t, revoked).True()
	})
}
