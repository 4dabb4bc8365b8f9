package firestore

import (
	"context"
	"slices"
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

type actionPlanRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newActionPlanRepository(client *firestore.Client) *actionPlanRepository {
	return &actionPlanRepository{client: client}
}

type actionPlanDoc struct {
	ID          string    `firestore:"id"`
	Title       string    `firestore:"title"`
	Description string    `firestore:"description"`
	UserIDs     []string  `firestore:"user_ids"`
	CreatedBy   string    `firestore:"created_by"`
	CreatedAt   time.Time `firestore:"created_at"`
	UpdatedAt   time.Time `firestore:"updated_at"`
}

func (r *actionPlanRepository) plansCollection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "action_plans"))
}

func (r *actionPlanRepository) toDoc(p *model.ActionPlan) *actionPlanDoc {
	userIDs := make([]string, len(p.UserIDs))
	for i, id := range p.UserIDs {
		userIDs[i] = id.String()
	}
	return &actionPlanDoc{
		ID:          p.ID.String(),
		Title:       p.Title,
		Description: string(p.Description),
		UserIDs:     userIDs,
		CreatedBy:   p.CreatedBy.String(),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r *actionPlanRepository) fromDoc(d *actionPlanDoc) *model.ActionPlan {
	userIDs := make([]types.UserID, len(d.UserIDs))
	for i, id := range d.UserIDs {
		userIDs[i] = types.UserID(id)
	}
	return &model.ActionPlan{
		ID:          types.PlanID(d.ID),
		Title:       d.Title,
		Description: model.Payload(d.Description),
		UserIDs:     userIDs,
		CreatedBy:   types.UserID(d.CreatedBy),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (r *actionPlanRepository) collect(iter *firestore.DocumentIterator) ([]*model.ActionPlan, error) {
	defer iter.Stop()

	plans := make([]*model.ActionPlan, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate action plans")
		}

		var doc actionPlanDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode action plan", goerr.V("doc_id", snap.Ref.ID))
		}
		plans = append(plans, r.fromDoc(&doc))
	}
	return plans, nil
}

func (r *actionPlanRepository) Create(ctx context.Context, plan *model.ActionPlan) (*model.ActionPlan, error) {
	created := plan.Clone()
	if created.ID == "" {
		created.ID = types.NewPlanID()
	}

	if _, err := r.plansCollection().Doc(created.ID.String()).Create(ctx, r.toDoc(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create action plan", goerr.V("id", created.ID))
	}
	return created, nil
}

func (r *actionPlanRepository) Get(ctx context.Context, id types.PlanID) (*model.ActionPlan, error) {
	snap, err := r.plansCollection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "action plan not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get action plan", goerr.V("id", id))
	}

	var doc actionPlanDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode action plan", goerr.V("id", id))
	}
	return r.fromDoc(&doc), nil
}

func (r *actionPlanRepository) List(ctx context.Context, page interfaces.Page) ([]*model.ActionPlan, error) {
	q := paginateQuery(r.plansCollection().OrderBy("created_at", firestore.Desc), page)
	return r.collect(q.Documents(ctx))
}

func (r *actionPlanRepository) Count(ctx context.Context) (int, error) {
	return countQuery(ctx, r.plansCollection().Query)
}

func (r *actionPlanRepository) Update(ctx context.Context, plan *model.ActionPlan) (*model.ActionPlan, error) {
	docRef := r.plansCollection().Doc(plan.ID.String())
	doc := r.toDoc(plan)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "title", Value: doc.Title},
		{Path: "description", Value: doc.Description},
		{Path: "user_ids", Value: doc.UserIDs},
		{Path: "updated_at", Value: doc.UpdatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "action plan not found", goerr.V("id", plan.ID))
		}
		return nil, goerr.Wrap(err, "failed to update action plan", goerr.V("id", plan.ID))
	}

	return r.Get(ctx, plan.ID)
}

func (r *actionPlanRepository) Delete(ctx context.Context, id types.PlanID) error {
	if _, err := r.plansCollection().Doc(id.String()).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "action plan not found", goerr.V("id", id))
		}
		return goerr.Wrap(err, "failed to delete action plan", goerr.V("id", id))
	}
	return nil
}

// ListByUser sorts in memory so that array-contains needs no composite index
func (r *actionPlanRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.ActionPlan, error) {
	q := r.plansCollection().Where("user_ids", "array-contains", userID.String())
	plans, err := r.collect(q.Documents(ctx))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list action plans for user", goerr.V("user_id", userID))
	}

	slices.SortFunc(plans, func(a, b *model.ActionPlan) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return plans, nil
}
