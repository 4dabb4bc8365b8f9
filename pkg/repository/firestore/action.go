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

type actionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newActionRepository(client *firestore.Client) *actionRepository {
	return &actionRepository{client: client}
}

// actionDoc is the Firestore persistence model for action records.
// Data is kept as a JSON string because Firestore rejects nested arrays.
type actionDoc struct {
	ID        string    `firestore:"id"`
	OwnerID   string    `firestore:"owner_id"`
	Data      string    `firestore:"data"`
	CreatedAt time.Time `firestore:"created_at"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

func (r *actionRepository) actionsCollection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "actions"))
}

func (r *actionRepository) toDoc(a *model.ActionRecord) *actionDoc {
	return &actionDoc{
		ID:        a.ID.String(),
		OwnerID:   a.OwnerID.String(),
		Data:      string(a.Data),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func (r *actionRepository) fromDoc(d *actionDoc) *model.ActionRecord {
	return &model.ActionRecord{
		ID:        types.ActionID(d.ID),
		OwnerID:   types.UserID(d.OwnerID),
		Data:      model.Payload(d.Data),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (r *actionRepository) query(f interfaces.ActionFilter) firestore.Query {
	q := r.actionsCollection().Query
	if f.OwnerID != "" {
		q = q.Where("owner_id", "==", f.OwnerID.String())
	}
	if !f.CreatedFrom.IsZero() {
		q = q.Where("created_at", ">=", f.CreatedFrom)
	}
	if !f.CreatedBefore.IsZero() {
		q = q.Where("created_at", "<", f.CreatedBefore)
	}
	return q
}

func (r *actionRepository) Create(ctx context.Context, action *model.ActionRecord) (*model.ActionRecord, error) {
	created := action.Clone()
	if created.ID == "" {
		created.ID = types.NewActionID()
	}

	if _, err := r.actionsCollection().Doc(created.ID.String()).Create(ctx, r.toDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create action", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *actionRepository) Get(ctx context.Context, id types.ActionID) (*model.ActionRecord, error) {
	snap, err := r.actionsCollection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get action", goerr.V("id", id))
	}

	var doc actionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode action", goerr.V("id", id))
	}
	return r.fromDoc(&doc), nil
}

func (r *actionRepository) List(ctx context.Context, f interfaces.ActionFilter, page interfaces.Page) ([]*model.ActionRecord, error) {
	q := paginateQuery(r.query(f).OrderBy("created_at", firestore.Desc), page)
	iter := q.Documents(ctx)
	defer iter.Stop()

	actions := make([]*model.ActionRecord, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate actions", goerr.V("owner_id", f.OwnerID))
		}

		var doc actionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode action", goerr.V("doc_id", snap.Ref.ID))
		}
		actions = append(actions, r.fromDoc(&doc))
	}

	return actions, nil
}

func (r *actionRepository) Count(ctx context.Context, f interfaces.ActionFilter) (int, error) {
	n, err := countQuery(ctx, r.query(f))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count actions", goerr.V("owner_id", f.OwnerID))
	}
	return n, nil
}

func (r *actionRepository) Update(ctx context.Context, action *model.ActionRecord) (*model.ActionRecord, error) {
	docRef := r.actionsCollection().Doc(action.ID.String())
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "data", Value: string(action.Data)},
		{Path: "updated_at", Value: action.UpdatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", action.ID))
		}
		return nil, goerr.Wrap(err, "failed to update action", goerr.V("id", action.ID))
	}

	return r.Get(ctx, action.ID)
}

func (r *actionRepository) Delete(ctx context.Context, id types.ActionID) error {
	docRef := r.actionsCollection().Doc(id.String())
	if _, err := docRef.Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "action not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete action", goerr.V("id", id))
	}
	return nil
}

func (r *actionRepository) DeleteByOwner(ctx context.Context, ownerID types.UserID) (int, error) {
	iter := r.actionsCollection().Where("owner_id", "==", ownerID.String()).Documents(ctx)
	n, err := bulkDelete(ctx, r.client, iter)
	if err != nil {
		return n, goerr.Wrap(err, "failed to delete actions", goerr.V("owner_id", ownerID), goerr.V("deleted", n))
	}
	return n, nil
}
