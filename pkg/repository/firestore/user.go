package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const firestoreGetAllLimit = 100

type userRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{client: client}
}

// userDoc is the Firestore persistence model for users
type userDoc struct {
	ID           string     `firestore:"id"`
	Username     string     `firestore:"username"`
	PasswordHash string     `firestore:"password_hash"`
	Role         string     `firestore:"role"`
	IsActive     bool       `firestore:"is_active"`
	CreatedAt    time.Time  `firestore:"created_at"`
	UpdatedAt    time.Time  `firestore:"updated_at"`
	LastLogin    *time.Time `firestore:"last_login"`
}

// usernameDoc reserves a username. Its document ID is the normalized name.
type usernameDoc struct {
	UserID string `firestore:"user_id"`
}

// directoryLockDoc is read and written by every transaction that can change
// the active-user count, which serializes them.
type directoryLockDoc struct {
	Version   int64     `firestore:"version"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (r *userRepository) usersCollection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "users"))
}

func (r *userRepository) usernamesCollection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "usernames"))
}

func (r *userRepository) lockRef() *firestore.DocumentRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "locks")).Doc("user_directory")
}

func (r *userRepository) toDoc(u *model.User) *userDoc {
	return &userDoc{
		ID:           u.ID.String(),
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         u.Role.String(),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

func (r *userRepository) fromDoc(d *userDoc) *model.User {
	return &model.User{
		ID:           types.UserID(d.ID),
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		Role:         types.NormalizeRole(d.Role),
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		LastLogin:    d.LastLogin,
	}
}

// lock reads the directory lock document and returns its next version.
// It must be the first read of the transaction.
func (r *userRepository) lock(tx *firestore.Transaction) (*directoryLockDoc, error) {
	snap, err := tx.Get(r.lockRef())
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &directoryLockDoc{Version: 1}, nil
		}
		return nil, goerr.Wrap(err, "failed to read user directory lock")
	}

	var doc directoryLockDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user directory lock")
	}
	doc.Version++
	return &doc, nil
}

func (r *userRepository) countActiveTx(tx *firestore.Transaction) (int, error) {
	iter := tx.Documents(r.usersCollection().Where("is_active", "==", true))
	defer iter.Stop()

	n := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, goerr.Wrap(err, "failed to count active users")
		}
		n++
	}
	return n, nil
}

func (r *userRepository) usernameFree(tx *firestore.Transaction, username string) (bool, error) {
	_, err := tx.Get(r.usernamesCollection().Doc(username))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return true, nil
		}
		return false, goerr.Wrap(err, "failed to check username", goerr.V("username", username))
	}
	return false, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User, maxActive int) (*model.User, error) {
	created := user.Clone()
	if created.ID == "" {
		created.ID = types.NewUserID()
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		lock, err := r.lock(tx)
		if err != nil {
			return err
		}

		free, err := r.usernameFree(tx, created.Username)
		if err != nil {
			return err
		}
		if !free {
			return goerr.Wrap(interfaces.ErrDuplicateUsername, "cannot create user",
				goerr.V("username", created.Username))
		}

		if created.IsActive && maxActive > 0 {
			active, err := r.countActiveTx(tx)
			if err != nil {
				return err
			}
			if active >= maxActive {
				return goerr.Wrap(interfaces.ErrUserLimitReached, "cannot create user",
					goerr.V("max_active", maxActive))
			}
		}

		lock.UpdatedAt = created.UpdatedAt
		if err := tx.Set(r.lockRef(), lock); err != nil {
			return goerr.Wrap(err, "failed to update user directory lock")
		}
		if err := tx.Create(r.usernamesCollection().Doc(created.Username), &usernameDoc{UserID: created.ID.String()}); err != nil {
			return goerr.Wrap(err, "failed to reserve username")
		}
		if err := tx.Create(r.usersCollection().Doc(created.ID.String()), r.toDoc(created)); err != nil {
			return goerr.Wrap(err, "failed to create user")
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create user", goerr.V("username", created.Username))
	}

	return created, nil
}

func (r *userRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	snap, err := r.usersCollection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("id", id))
	}
	return r.fromDoc(&doc), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	iter := r.usersCollection().Where("username", "==", username).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("username", username))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user by username", goerr.V("username", username))
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("username", username))
	}
	return r.fromDoc(&doc), nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	iter := r.usersCollection().OrderBy("created_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	users := make([]*model.User, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}

		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode user", goerr.V("doc_id", snap.Ref.ID))
		}
		users = append(users, r.fromDoc(&doc))
	}
	return users, nil
}

// GetMany batches GetAll calls; missing users are left out of the result
func (r *userRepository) GetMany(ctx context.Context, ids []types.UserID) (map[types.UserID]*model.User, error) {
	result := make(map[types.UserID]*model.User, len(ids))

	for i := 0; i < len(ids); i += firestoreGetAllLimit {
		batch := ids[i:min(i+firestoreGetAllLimit, len(ids))]

		refs := make([]*firestore.DocumentRef, len(batch))
		for j, id := range batch {
			refs[j] = r.usersCollection().Doc(id.String())
		}

		docs, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to batch get users", goerr.V("count", len(batch)))
		}

		for idx, snap := range docs {
			if !snap.Exists() {
				continue
			}
			var doc userDoc
			if err := snap.DataTo(&doc); err != nil {
				return nil, goerr.Wrap(err, "failed to decode user", goerr.V("id", batch[idx]))
			}
			result[batch[idx]] = r.fromDoc(&doc)
		}
	}

	return result, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User, maxActive int) (*model.User, error) {
	var updated *model.User

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		lock, err := r.lock(tx)
		if err != nil {
			return err
		}

		userRef := r.usersCollection().Doc(user.ID.String())
		snap, err := tx.Get(userRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", user.ID))
			}
			return goerr.Wrap(err, "failed to get user", goerr.V("id", user.ID))
		}
		var existing userDoc
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode user", goerr.V("id", user.ID))
		}

		renamed := existing.Username != user.Username
		if renamed {
			free, err := r.usernameFree(tx, user.Username)
			if err != nil {
				return err
			}
			if !free {
				return goerr.Wrap(interfaces.ErrDuplicateUsername, "cannot rename user",
					goerr.V("username", user.Username))
			}
		}

		if user.IsActive && !existing.IsActive && maxActive > 0 {
			active, err := r.countActiveTx(tx)
			if err != nil {
				return err
			}
			if active >= maxActive {
				return goerr.Wrap(interfaces.ErrUserLimitReached, "cannot activate user",
					goerr.V("id", user.ID), goerr.V("max_active", maxActive))
			}
		}

		updated = user.Clone()
		updated.CreatedAt = existing.CreatedAt

		lock.UpdatedAt = updated.UpdatedAt
		if err := tx.Set(r.lockRef(), lock); err != nil {
			return goerr.Wrap(err, "failed to update user directory lock")
		}
		if renamed {
			if err := tx.Delete(r.usernamesCollection().Doc(existing.Username)); err != nil {
				return goerr.Wrap(err, "failed to release username")
			}
			if err := tx.Create(r.usernamesCollection().Doc(updated.Username), &usernameDoc{UserID: updated.ID.String()}); err != nil {
				return goerr.Wrap(err, "failed to reserve username")
			}
		}
		if err := tx.Set(userRef, r.toDoc(updated)); err != nil {
			return goerr.Wrap(err, "failed to update user")
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update user", goerr.V("id", user.ID))
	}

	return updated, nil
}

func (r *userRepository) Delete(ctx context.Context, id types.UserID) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		lock, err := r.lock(tx)
		if err != nil {
			return err
		}

		userRef := r.usersCollection().Doc(id.String())
		snap, err := tx.Get(userRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get user", goerr.V("id", id))
		}
		var existing userDoc
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode user", goerr.V("id", id))
		}

		lock.UpdatedAt = time.Now().UTC()
		if err := tx.Set(r.lockRef(), lock); err != nil {
			return goerr.Wrap(err, "failed to update user directory lock")
		}
		if err := tx.Delete(r.usernamesCollection().Doc(existing.Username)); err != nil {
			return goerr.Wrap(err, "failed to release username")
		}
		return tx.Delete(userRef)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to delete user", goerr.V("id", id))
	}
	return nil
}

func (r *userRepository) CountActive(ctx context.Context) (int, error) {
	return countQuery(ctx, r.usersCollection().Where("is_active", "==", true))
}
