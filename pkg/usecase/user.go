package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/utils/clock"
	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// UserUseCase manages the user directory and its active-user cap
type UserUseCase struct {
	repo     interfaces.Repository
	clock    clock.Clock
	window   model.YearWindow
	settings Settings
}

type CreateUserInput struct {
	Username string
	Password string `masq:"secret"`
	Role     string
}

// UpdateUserInput patches a user; nil fields are left unchanged
type UpdateUserInput struct {
	Username *string
	Password *string `masq:"secret"`
	Role     *string
	IsActive *bool
}

func (uc *UserUseCase) limitReached() error {
	return reject(ErrForbidden, fmt.Sprintf("Maximum user limit (%d) reached", uc.settings.MaxActiveUsers))
}

func (uc *UserUseCase) checkPassword(password string) error {
	if len(password) < uc.settings.MinPasswordLength {
		return reject(ErrValidation, fmt.Sprintf("Password must be at least %d characters long", uc.settings.MinPasswordLength))
	}
	return nil
}

// translate maps storage sentinels onto use case errors
func (uc *UserUseCase) translate(err error, msg string, id types.UserID) error {
	switch {
	case errors.Is(err, interfaces.ErrNotFound):
		return reject(ErrNotFound, "User not found", goerr.V(UserIDKey, id))
	case errors.Is(err, interfaces.ErrDuplicateUsername):
		return reject(ErrConflict, "Username already exists", goerr.V(UserIDKey, id))
	case errors.Is(err, interfaces.ErrUserLimitReached):
		return uc.limitReached()
	default:
		return unavailable(err, msg, goerr.V(UserIDKey, id))
	}
}

// Create adds an active account. The cap and username uniqueness are
// enforced atomically by the repository.
func (uc *UserUseCase) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	username := model.NormalizeUsername(input.Username)
	if username == "" || input.Password == "" {
		return nil, reject(ErrValidation, "Username and password are required")
	}
	if err := uc.checkPassword(input.Password); err != nil {
		return nil, err
	}

	hash, err := model.HashPassword(input.Password, uc.settings.PasswordCost)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to hash password")
	}

	now := uc.clock()
	created, err := uc.repo.User().Create(ctx, &model.User{
		Username:     username,
		PasswordHash: hash,
		Role:         types.NormalizeRole(input.Role),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, uc.settings.MaxActiveUsers)
	if err != nil {
		return nil, uc.translate(err, "failed to create user", "")
	}

	logging.From(ctx).Info("user created", "user_id", created.ID, "username", created.Username, "role", created.Role)
	return created, nil
}

type UserList struct {
	Users       []*model.User
	TotalUsers  int
	ActiveUsers int
}

// List returns every user newest first with directory totals
func (uc *UserUseCase) List(ctx context.Context) (*UserList, error) {
	users, err := uc.repo.User().List(ctx)
	if err != nil {
		return nil, unavailable(err, "failed to list users")
	}

	active := 0
	for _, u := range users {
		if u.IsActive {
			active++
		}
	}
	return &UserList{Users: users, TotalUsers: len(users), ActiveUsers: active}, nil
}

func (uc *UserUseCase) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	u, err := uc.repo.User().Get(ctx, id)
	if err != nil {
		return nil, uc.translate(err, "failed to get user", id)
	}
	return u, nil
}

// Update applies a patch on behalf of actorID
func (uc *UserUseCase) Update(ctx context.Context, actorID, id types.UserID, input UpdateUserInput) (*model.User, error) {
	u, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.IsActive != nil && !*input.IsActive && id == actorID {
		return nil, reject(ErrForbidden, "Cannot deactivate your own account", goerr.V(UserIDKey, id))
	}

	if input.Username != nil {
		if name := model.NormalizeUsername(*input.Username); name != "" {
			u.Username = name
		}
	}
	if input.Password != nil && *input.Password != "" {
		if err := uc.checkPassword(*input.Password); err != nil {
			return nil, err
		}
		hash, err := model.HashPassword(*input.Password, uc.settings.PasswordCost)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to hash password")
		}
		u.PasswordHash = hash
	}
	if input.Role != nil && *input.Role != "" {
		u.Role = types.NormalizeRole(*input.Role)
	}
	if input.IsActive != nil {
		u.IsActive = *input.IsActive
	}
	u.UpdatedAt = uc.clock()

	updated, err := uc.repo.User().Update(ctx, u, uc.settings.MaxActiveUsers)
	if err != nil {
		return nil, uc.translate(err, "failed to update user", id)
	}

	logging.From(ctx).Info("user updated", "user_id", id, "actor_id", actorID)
	return updated, nil
}

type DeleteUserResult struct {
	Permanent      bool
	DeletedActions int
}

// Delete deactivates a user, or with permanent removes the user together
// with every record they own regardless of the record's year.
func (uc *UserUseCase) Delete(ctx context.Context, actorID, id types.UserID, permanent bool) (*DeleteUserResult, error) {
	u, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if id == actorID {
		return nil, reject(ErrForbidden, "Cannot delete your own account", goerr.V(UserIDKey, id))
	}

	if !permanent {
		u.IsActive = false
		u.UpdatedAt = uc.clock()
		if _, err := uc.repo.User().Update(ctx, u, uc.settings.MaxActiveUsers); err != nil {
			return nil, uc.translate(err, "failed to deactivate user", id)
		}
		logging.From(ctx).Info("user deactivated", "user_id", id, "actor_id", actorID)
		return &DeleteUserResult{}, nil
	}

	// A failed account deletion leaves the account in place; repeating the
	// call finishes the job.
	n, err := uc.repo.Action().DeleteByOwner(ctx, id)
	if err != nil {
		return nil, unavailable(err, "failed to delete user actions", goerr.V(UserIDKey, id))
	}
	if err := uc.repo.User().Delete(ctx, id); err != nil {
		return nil, uc.translate(err, "failed to delete user", id)
	}

	logging.From(ctx).Info("user permanently deleted", "user_id", id, "actor_id", actorID, "deleted_actions", n)
	return &DeleteUserResult{Permanent: true, DeletedActions: n}, nil
}

// RecordLogin stamps the last successful login time
func (uc *UserUseCase) RecordLogin(ctx context.Context, id types.UserID) (*model.User, error) {
	u, err := uc.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := uc.clock()
	u.LastLogin = &now
	updated, err := uc.repo.User().Update(ctx, u, uc.settings.MaxActiveUsers)
	if err != nil {
		return nil, uc.translate(err, "failed to record login", id)
	}
	return updated, nil
}

// EnsureAdmin creates the bootstrap admin when no admin account exists.
// It reports whether an account was created.
func (uc *UserUseCase) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	users, err := uc.repo.User().List(ctx)
	if err != nil {
		return false, unavailable(err, "failed to list users")
	}
	for _, u := range users {
		if u.IsAdmin() {
			return false, nil
		}
	}

	created, err := uc.Create(ctx, CreateUserInput{
		Username: username,
		Password: password,
		Role:     types.RoleAdmin.String(),
	})
	if err != nil {
		return false, err
	}

	logging.From(ctx).Info("default admin user created", "username", created.Username)
	return true, nil
}

type UserCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Admins   int `json:"admins"`
	Regular  int `json:"regular"`
}

type ActionCounts struct {
	Total         int `json:"total"`
	CurrentYear   int `json:"currentYear"`
	PreviousYears int `json:"previousYears"`
}

type UserLimits struct {
	MaxUsers       int `json:"maxUsers"`
	RemainingSlots int `json:"remainingSlots"`
}

type SystemStats struct {
	Users   UserCounts   `json:"users"`
	Actions ActionCounts `json:"actions"`
	Limits  UserLimits   `json:"limits"`
}

// Stats summarizes the directory and the record store for admins
func (uc *UserUseCase) Stats(ctx context.Context) (*SystemStats, error) {
	var (
		users        []*model.User
		totalActions int
		yearActions  int
	)

	from, before := uc.window.Range(uc.window.Year(uc.clock()))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		users, err = uc.repo.User().List(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		totalActions, err = uc.repo.Action().Count(egCtx, interfaces.ActionFilter{})
		return err
	})
	eg.Go(func() error {
		var err error
		yearActions, err = uc.repo.Action().Count(egCtx, interfaces.ActionFilter{CreatedFrom: from, CreatedBefore: before})
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, unavailable(err, "failed to compute system stats")
	}

	var counts UserCounts
	counts.Total = len(users)
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		counts.Active++
		if u.IsAdmin() {
			counts.Admins++
		}
	}
	counts.Inactive = counts.Total - counts.Active
	counts.Regular = counts.Active - counts.Admins

	return &SystemStats{
		Users: counts,
		Actions: ActionCounts{
			Total:         totalActions,
			CurrentYear:   yearActions,
			PreviousYears: totalActions - yearActions,
		},
		Limits: UserLimits{
			MaxUsers:       uc.settings.MaxActiveUsers,
			RemainingSlots: max(0, uc.settings.MaxActiveUsers-counts.Active),
		},
	}, nil
}
