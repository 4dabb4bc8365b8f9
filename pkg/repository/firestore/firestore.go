package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"google.golang.org/api/iterator"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = interfaces.ErrNotFound

type Firestore struct {
	client *firestore.Client
	user   *userRepository
	action *actionRepository
	plan   *actionPlanRepository

	tokensCollection string
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

// WithCollectionPrefix namespaces every collection, e.g. for parallel test runs.
func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.user.collectionPrefix = prefix
		f.action.collectionPrefix = prefix
		f.plan.collectionPrefix = prefix
		f.tokensCollection = prefixed(prefix, "revoked_tokens")
	}
}

// New connects to Firestore. An empty databaseID selects the default database.
func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", databaseID))
	}

	f := &Firestore{
		client:           client,
		user:             newUserRepository(client),
		action:           newActionRepository(client),
		plan:             newActionPlanRepository(client),
		tokensCollection: "revoked_tokens",
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Action() interfaces.ActionRepository {
	return f.action
}

func (f *Firestore) ActionPlan() interfaces.ActionPlanRepository {
	return f.plan
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func prefixed(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}

// paginateQuery applies Offset/Limit when set
func paginateQuery(q firestore.Query, page interfaces.Page) firestore.Query {
	if page.Offset > 0 {
		q = q.Offset(page.Offset)
	}
	if page.Limit > 0 {
		q = q.Limit(page.Limit)
	}
	return q
}

// countQuery runs a server-side count aggregation
func countQuery(ctx context.Context, q firestore.Query) (int, error) {
	result, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to run count aggregation")
	}

	v, ok := result["all"]
	if !ok {
		return 0, goerr.New("count aggregation returned no value")
	}
	pv, ok := v.(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count aggregation type", goerr.V("value", v))
	}
	return int(pv.GetIntegerValue()), nil
}

// bulkDelete deletes every document of iter and returns how many deletes
// were committed. A failed job does not stop the remaining ones; the first
// failure is returned.
func bulkDelete(ctx context.Context, client *firestore.Client, iter *firestore.DocumentIterator) (int, error) {
	defer iter.Stop()

	bulkWriter := client.BulkWriter(ctx)

	var jobs []*firestore.BulkWriterJob
	var ids []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bulkWriter.End()
			return countCommitted(jobs, ids, goerr.Wrap(err, "failed to iterate documents"))
		}

		job, err := bulkWriter.Delete(snap.Ref)
		if err != nil {
			bulkWriter.End()
			return countCommitted(jobs, ids, goerr.Wrap(err, "failed to enqueue delete", goerr.V("doc_id", snap.Ref.ID)))
		}
		jobs = append(jobs, job)
		ids = append(ids, snap.Ref.ID)
	}

	bulkWriter.End()
	return countCommitted(jobs, ids, nil)
}

func countCommitted(jobs []*firestore.BulkWriterJob, ids []string, cause error) (int, error) {
	n := 0
	firstErr := cause
	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			if firstErr == nil {
				firstErr = goerr.Wrap(err, "failed to delete document", goerr.V("doc_id", ids[i]))
			}
			continue
		}
		n++
	}
	return n, firstErr
}
