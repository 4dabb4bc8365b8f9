package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/interfaces"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

// scanPageSize is the batch size used when walking whole collections
const scanPageSize = 500

type IssueKind string

const (
	IssueNoAdmin       IssueKind = "no_admin"
	IssueCapExceeded   IssueKind = "cap_exceeded"
	IssueInvalidTarget IssueKind = "invalid_plan_target"
	IssueMissingAuthor IssueKind = "missing_plan_author"
	IssueOrphanAction  IssueKind = "orphan_action"
	IssueFutureDated   IssueKind = "future_dated_action"
)

// ValidationIssue represents a single problem found during DB consistency check
type ValidationIssue struct {
	Kind    IssueKind
	Subject string
	Message string
}

// ValidationResult holds the results of DB validation
type ValidationResult struct {
	Issues      []ValidationIssue
	Users       int
	ActiveUsers int
	Actions     int
	ActionPlans int
}

// HasIssues returns true if there are any validation issues
func (r *ValidationResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// AddIssue adds a validation issue to the result
func (r *ValidationResult) AddIssue(kind IssueKind, subject, msg string) {
	r.Issues = append(r.Issues, ValidationIssue{Kind: kind, Subject: subject, Message: msg})
}

// ValidateDB checks the directory and stores for states that the normal
// operations should never produce: no admin, more active users than the cap,
// plans pointing at missing or inactive users, records without an owner and
// records dated in a future year. It does NOT modify any data.
func (uc *UseCases) ValidateDB(ctx context.Context) (*ValidationResult, error) {
	result := &ValidationResult{}

	users, err := uc.repo.User().List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users")
	}
	byID := make(map[types.UserID]*model.User, len(users))
	hasAdmin := false
	for _, u := range users {
		byID[u.ID] = u
		if u.IsActive {
			result.ActiveUsers++
			if u.IsAdmin() {
				hasAdmin = true
			}
		}
	}
	result.Users = len(users)

	if !hasAdmin {
		result.AddIssue(IssueNoAdmin, "users", "no active admin account exists")
	}
	if limit := uc.settings.MaxActiveUsers; limit > 0 && result.ActiveUsers > limit {
		result.AddIssue(IssueCapExceeded, "users",
			fmt.Sprintf("%d active users exceed the limit of %d", result.ActiveUsers, limit))
	}

	plans, err := uc.repo.ActionPlan().List(ctx, interfaces.Page{})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list action plans")
	}
	result.ActionPlans = len(plans)
	for _, p := range plans {
		if _, ok := byID[p.CreatedBy]; !ok {
			result.AddIssue(IssueMissingAuthor, p.ID.String(),
				fmt.Sprintf("author %s does not exist", p.CreatedBy))
		}
		for _, id := range p.UserIDs {
			u, ok := byID[id]
			switch {
			case !ok:
				result.AddIssue(IssueInvalidTarget, p.ID.String(), fmt.Sprintf("target %s does not exist", id))
			case !u.IsActive:
				result.AddIssue(IssueInvalidTarget, p.ID.String(), fmt.Sprintf("target %s (%s) is inactive", id, u.Username))
			}
		}
	}

	window := uc.Window()
	currentYear := window.Year(uc.clock())
	for offset := 0; ; offset += scanPageSize {
		actions, err := uc.repo.Action().List(ctx, interfaces.ActionFilter{}, interfaces.Page{Offset: offset, Limit: scanPageSize})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list actions", goerr.V("offset", offset))
		}
		for _, a := range actions {
			result.Actions++
			if _, ok := byID[a.OwnerID]; !ok {
				result.AddIssue(IssueOrphanAction, a.ID.String(), fmt.Sprintf("owner %s does not exist", a.OwnerID))
			}
			if y := window.Year(a.CreatedAt); y > currentYear {
				result.AddIssue(IssueFutureDated, a.ID.String(), fmt.Sprintf("created in %d, after current year %d", y, currentYear))
			}
		}
		if len(actions) < scanPageSize {
			break
		}
	}

	return result, nil
}
