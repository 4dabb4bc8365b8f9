package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
)

type planRequest struct {
	Title       string         `json:"title"`
	Description model.Payload  `json:"description"`
	UserIDs     []types.UserID `json:"userIds"`
}

// planPatchRequest distinguishes an omitted userIds from an empty list
type planPatchRequest struct {
	Title       *string         `json:"title"`
	Description model.Payload   `json:"description"`
	UserIDs     json.RawMessage `json:"userIds"`
}

func (req *planPatchRequest) patch() (usecase.PlanPatch, error) {
	patch := usecase.PlanPatch{
		Title:       req.Title,
		Description: req.Description,
	}
	if len(req.UserIDs) > 0 && string(req.UserIDs) != "null" {
		var ids []types.UserID
		if err := json.Unmarshal(req.UserIDs, &ids); err != nil {
			return patch, usecase.Invalid("userIds must be an array of user IDs")
		}
		patch.UserIDs = &ids
	}
	return patch, nil
}

func createPlanHandler(planUC *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		var req planRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		plan, err := planUC.Create(r.Context(), token.UserID, usecase.PlanInput{
			Title:       req.Title,
			Description: req.Description,
			UserIDs:     req.UserIDs,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusCreated, "Action plan created successfully", plan)
	}
}

func listPlansHandler(planUC *usecase.PlanUseCase) http.HandlerFunc {
	type pagination struct {
		CurrentPage      int  `json:"currentPage"`
		TotalPages       int  `json:"totalPages"`
		TotalActionPlans int  `json:"totalActionPlans"`
		HasNextPage      bool `json:"hasNextPage"`
		HasPrevPage      bool `json:"hasPrevPage"`
	}
	type response struct {
		ActionPlans []*usecase.PlanView `json:"actionPlans"`
		Pagination  pagination          `json:"pagination"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		list, err := planUC.List(r.Context(), queryInt(r, "page"), queryInt(r, "limit"))
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, "", response{
			ActionPlans: list.Plans,
			Pagination: pagination{
				CurrentPage:      list.Pagination.CurrentPage,
				TotalPages:       list.Pagination.TotalPages,
				TotalActionPlans: list.Pagination.Total,
				HasNextPage:      list.Pagination.HasNextPage,
				HasPrevPage:      list.Pagination.HasPrevPage,
			},
		})
	}
}

func getPlanHandler(planUC *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plan, err := planUC.Get(r.Context(), types.PlanID(chi.URLParam(r, "id")))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", plan)
	}
}

func updatePlanHandler(planUC *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planPatchRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}
		patch, err := req.patch()
		if err != nil {
			respondError(w, r, err)
			return
		}

		plan, err := planUC.Update(r.Context(), types.PlanID(chi.URLParam(r, "id")), patch)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "Action plan updated successfully", plan)
	}
}

func deletePlanHandler(planUC *usecase.PlanUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := planUC.Delete(r.Context(), types.PlanID(chi.URLParam(r, "id"))); err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "Action plan deleted successfully")
	}
}

func myPlansHandler(planUC *usecase.PlanUseCase) http.HandlerFunc {
	type response struct {
		ActionPlans []*usecase.PlanView `json:"actionPlans"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		plans, err := planUC.ListForUser(r.Context(), token.UserID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", response{ActionPlans: plans})
	}
}
