package http

import (
	"net/http"

	"github.com/secmon-lab/actiontrail/pkg/usecase"
)

func publicOverviewHandler(publicUC *usecase.PublicUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		overview, err := publicUC.Overview(r.Context(), queryInt(r, "limit"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", overview)
	}
}

func publicStatsHandler(publicUC *usecase.PublicUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := publicUC.Stats(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondOK(w, r, http.StatusOK, "", stats)
	}
}
