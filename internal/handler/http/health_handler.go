package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/catalog"
)

type HealthResponse struct {
	Status     string    `json:"status"`
	Database   string    `json:"database"`
	Categorias int       `json:"categorias"`
	Timestamp  time.Time `json:"timestamp"`
}

type HealthHandler struct {
	catalogRepo catalog.Repository
}

func NewHealthHandler(catalogRepo catalog.Repository) *HealthHandler {
	return &HealthHandler{catalogRepo: catalogRepo}
}

func (h *HealthHandler) RegisterRoutes(router chi.Router) {
	router.Get("/health", h.handleHealth)
}

// handleHealth proves the database round-trip with a cheap aggregate read.
func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalogRepo.CountCategories(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Health check database query failed")
		respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Database:  "unreachable",
			Timestamp: time.Now().UTC(),
		})
		return
	}

	respondWithJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Database:   "connected",
		Categorias: n,
		Timestamp:  time.Now().UTC(),
	})
}
