package interfaces

import (
	"context"

	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// ActionPlanRepository defines the interface for action plan data access
type ActionPlanRepository interface {
	Create(ctx context.Context, plan *model.ActionPlan) (*model.ActionPlan, error)
	Get(ctx context.Context, id types.PlanID) (*model.ActionPlan, error)

	// List returns plans ordered by CreatedAt descending
	List(ctx context.Context, page Page) ([]*model.ActionPlan, error)
	Count(ctx context.Context) (int, error)

	Update(ctx context.Context, plan *model.ActionPlan) (*model.ActionPlan, error)
	Delete(ctx context.Context, id types.PlanID) error

	// ListByUser returns plans whose target set contains userID, newest first
	ListByUser(ctx context.Context, userID types.UserID) ([]*model.ActionPlan, error)
}
