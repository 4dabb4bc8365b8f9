package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/model/auth"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
)

type actionRequest struct {
	Data model.Payload `json:"data"`
}

// queryInt parses an optional integer parameter; malformed values read as 0
func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return v
}

// caller returns the authenticated token; the auth middleware guarantees one
func caller(w http.ResponseWriter, r *http.Request) (*auth.Token, bool) {
	token, err := auth.TokenFromContext(r.Context())
	if err != nil {
		respondMessage(w, r, http.StatusUnauthorized, "Access token required")
		return nil, false
	}
	return token, true
}

func createActionHandler(actionUC *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		var req actionRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		action, err := actionUC.Create(r.Context(), token.UserID, req.Data)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusCreated, "Action created successfully", action)
	}
}

func listActionsHandler(actionUC *usecase.ActionUseCase) http.HandlerFunc {
	type pagination struct {
		CurrentPage  int  `json:"currentPage"`
		TotalPages   int  `json:"totalPages"`
		TotalActions int  `json:"totalActions"`
		HasNextPage  bool `json:"hasNextPage"`
		HasPrevPage  bool `json:"hasPrevPage"`
	}
	type response struct {
		Actions    []*usecase.ActionView    `json:"actions"`
		Pagination pagination               `json:"pagination"`
		Filter     usecase.ActionYearFilter `json:"filter"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		input := usecase.ListActionsInput{
			Page:  queryInt(r, "page"),
			Limit: queryInt(r, "limit"),
		}
		if raw := r.URL.Query().Get("year"); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				respondError(w, r, usecase.Invalid("Invalid year format", goerr.V("year", raw)))
				return
			}
			input.Year = &year
		}

		result, err := actionUC.List(r.Context(), token.UserID, input)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, "", response{
			Actions: result.Actions,
			Pagination: pagination{
				CurrentPage:  result.Pagination.CurrentPage,
				TotalPages:   result.Pagination.TotalPages,
				TotalActions: result.Pagination.Total,
				HasNextPage:  result.Pagination.HasNextPage,
				HasPrevPage:  result.Pagination.HasPrevPage,
			},
			Filter: result.Filter,
		})
	}
}

func actionStatsHandler(actionUC *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		stats, err := actionUC.Stats(r.Context(), token.UserID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", stats)
	}
}

func getActionHandler(actionUC *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		action, err := actionUC.Get(r.Context(), token.UserID, types.ActionID(chi.URLParam(r, "id")))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", action)
	}
}

func updateActionHandler(actionUC *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		var req actionRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		action, err := actionUC.Update(r.Context(), token.UserID, types.ActionID(chi.URLParam(r, "id")), req.Data)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "Action updated successfully", action)
	}
}

func deleteActionHandler(actionUC *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		if err := actionUC.Delete(r.Context(), token.UserID, types.ActionID(chi.URLParam(r, "id"))); err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "Action deleted successfully")
	}
}
