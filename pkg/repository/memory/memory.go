package memory

import (
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
)

// ErrNotFound is returned when a document does not exist
var ErrNotFound = interfaces.ErrNotFound

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory is an in-process backend for development and tests. Each
// collection is guarded by its own RWMutex; data does not survive restarts.
type Memory struct {
	user   *userRepository
	action *actionRepository
	plan   *actionPlanRepository
	tokens *tokenStore
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		user:   newUserRepository(),
		action: newActionRepository(),
		plan:   newActionPlanRepository(),
		tokens: newTokenStore(),
	}
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Action() interfaces.ActionRepository {
	return m.action
}

func (m *Memory) ActionPlan() interfaces.ActionPlanRepository {
	return m.plan
}

func (m *Memory) Close() error {
	return nil
}
