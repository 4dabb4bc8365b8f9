package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password" masq:"secret"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password" masq:"secret"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

func createUserHandler(userUC *usecase.UserUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createUserRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		user, err := userUC.Create(r.Context(), usecase.CreateUserInput{
			Username: req.Username,
			Password: req.Password,
			Role:     req.Role,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusCreated, "User created successfully", user.View())
	}
}

func listUsersHandler(userUC *usecase.UserUseCase) http.HandlerFunc {
	type response struct {
		Users       []*model.UserView `json:"users"`
		TotalUsers  int               `json:"totalUsers"`
		ActiveUsers int               `json:"activeUsers"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		list, err := userUC.List(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}

		resp := response{
			Users:       make([]*model.UserView, len(list.Users)),
			TotalUsers:  list.TotalUsers,
			ActiveUsers: list.ActiveUsers,
		}
		for i, u := range list.Users {
			resp.Users[i] = u.View()
		}
		respondOK(w, r, http.StatusOK, "", resp)
	}
}

func updateUserHandler(userUC *usecase.UserUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		var req updateUserRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		user, err := userUC.Update(r.Context(), token.UserID, types.UserID(chi.URLParam(r, "id")), usecase.UpdateUserInput{
			Username: req.Username,
			Password: req.Password,
			Role:     req.Role,
			IsActive: req.IsActive,
		})
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "User updated successfully", user.View())
	}
}

func deleteUserHandler(userUC *usecase.UserUseCase) http.HandlerFunc {
	type response struct {
		DeletedActions int `json:"deletedActions"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := caller(w, r)
		if !ok {
			return
		}

		permanent := r.URL.Query().Get("permanent") == "true"
		result, err := userUC.Delete(r.Context(), token.UserID, types.UserID(chi.URLParam(r, "id")), permanent)
		if err != nil {
			respondError(w, r, err)
			return
		}

		if result.Permanent {
			respondOK(w, r, http.StatusOK, "User and all associated data permanently deleted",
				response{DeletedActions: result.DeletedActions})
			return
		}
		respondMessage(w, r, http.StatusOK, "User deactivated successfully")
	}
}

func systemStatsHandler(userUC *usecase.UserUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := userUC.Stats(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", stats)
	}
}
