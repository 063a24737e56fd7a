package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/auth"
	"github.com/modastyle/backend/internal/user"
)

const sessionCookieName = "session"

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string        `json:"token"`
	User  *user.Usuario `json:"user"`
}

type AuthHandler struct {
	service   user.Service
	tokens    *auth.TokenManager
	validate  *validator.Validate
	cookieTTL time.Duration
}

func NewAuthHandler(service user.Service, tokens *auth.TokenManager, cookieTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		service:   service,
		tokens:    tokens,
		validate:  validator.New(),
		cookieTTL: cookieTTL,
	}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/login", h.handleLogin)
	router.Post("/auth/logout", h.handleLogout)
}

// RegisterAdminRoutes mounts the session introspection endpoint the admin
// frontend polls to keep its user state fresh.
func (h *AuthHandler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/auth/sesion", h.handleSession)
}

func (h *AuthHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "No autorizado")
		return
	}

	id, err := uuid.FromString(claims.Subject)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "No autorizado")
		return
	}

	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.Subject).Msg("Failed to load session user")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to load session")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Error().Err(err).Msg("Failed to decode login request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	u, err := h.service.Authenticate(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Credenciales inválidas")
			return
		}
		log.Error().Err(err).Msg("Failed to authenticate user")
		respondWithError(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		log.Error().Err(err).Msg("Failed to issue session token")
		respondWithError(w, http.StatusInternalServerError, "Failed to authenticate")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookieTTL.Seconds()),
	})

	respondWithJSON(w, http.StatusOK, LoginResponse{Token: token, User: u})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	respondWithJSON(w, http.StatusOK, map[string]bool{"success": true})
}
