package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/stats"
)

type StatsHandler struct {
	service stats.Service
}

func NewStatsHandler(service stats.Service) *StatsHandler {
	return &StatsHandler{service: service}
}

func (h *StatsHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/estadisticas", h.handleDashboard)
}

func (h *StatsHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	periodo := r.URL.Query().Get("periodo")

	dashboard, err := h.service.Dashboard(r.Context(), periodo)
	if err != nil {
		log.Error().Err(err).Str("periodo", periodo).Msg("Failed to compute dashboard")
		respondWithError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	respondWithJSON(w, http.StatusOK, dashboard)
}
