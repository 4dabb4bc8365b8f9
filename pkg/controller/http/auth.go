package http

import (
	"net/http"
	"time"

	"github.com/secmon-lab/actiontrail/pkg/domain/model"
	"github.com/secmon-lab/actiontrail/pkg/domain/model/auth"
	"github.com/secmon-lab/actiontrail/pkg/usecase"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password" masq:"secret"`
}

type loginResponse struct {
	Token     string            `json:"token" masq:"secret"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      model.UserSummary `json:"user"`
}

func authLoginHandler(authUC *usecase.AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, r, err)
			return
		}

		signed, user, err := authUC.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			respondError(w, r, err)
			return
		}

		respondOK(w, r, http.StatusOK, "Login successful", loginResponse{
			Token:     signed.Raw,
			ExpiresAt: signed.ExpiresAt,
			User:      user.Summary(),
		})
	}
}

func authProfileHandler(userUC *usecase.UserUseCase) http.HandlerFunc {
	type response struct {
		User *model.UserView `json:"user"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromContext(r.Context())
		if err != nil {
			respondMessage(w, r, http.StatusUnauthorized, "Access token required")
			return
		}

		user, err := userUC.Get(r.Context(), token.UserID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", response{User: user.View()})
	}
}

func authLogoutHandler(authUC *usecase.AuthUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.TokenFromContext(r.Context())
		if err != nil {
			respondMessage(w, r, http.StatusUnauthorized, "Access token required")
			return
		}

		if err := authUC.Logout(r.Context(), token); err != nil {
			respondError(w, r, err)
			return
		}
		respondMessage(w, r, http.StatusOK, "Logout successful")
	}
}
