package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/modastyle/backend/internal/catalog"
	"github.com/modastyle/backend/internal/checkout"
	"github.com/modastyle/backend/internal/order"
	"github.com/modastyle/backend/internal/user"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondWithValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:   "Validation failed",
			Details: formatValidationErrors(validationErrors),
		})
		return
	}
	log.Error().Err(err).Msg("Unexpected error type during validation")
	respondWithError(w, http.StatusInternalServerError, "Internal validation error")
}

func formatValidationErrors(validationErrors validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		switch fieldErr.Tag() {
		case "required":
			details[fieldErr.Field()] = "This field is required"
		case "email":
			details[fieldErr.Field()] = "Must be a valid email address"
		case "min":
			details[fieldErr.Field()] = fmt.Sprintf("Must be at least %s", fieldErr.Param())
		case "max":
			details[fieldErr.Field()] = fmt.Sprintf("Must be at most %s", fieldErr.Param())
		case "gt":
			details[fieldErr.Field()] = fmt.Sprintf("Must be greater than %s", fieldErr.Param())
		default:
			details[fieldErr.Field()] = fmt.Sprintf("Failed validation on %s", fieldErr.Tag())
		}
	}
	return details
}

// clientMessageFor keeps internal error details out of responses: known
// domain errors surface their own message, everything else gets the fallback.
func clientMessageFor(err error, fallback string) string {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return "Producto no encontrado"
	case errors.Is(err, catalog.ErrCategoryNotFound):
		return "Categoría no encontrada"
	case errors.Is(err, catalog.ErrSKUExists):
		return "El SKU ya existe"
	case errors.Is(err, catalog.ErrSlugExists):
		return "El slug ya existe"
	case errors.Is(err, catalog.ErrProductHasOrders):
		return "El producto tiene pedidos asociados"
	case errors.Is(err, catalog.ErrCategoryHasProducts):
		return "La categoría tiene productos asociados"
	case errors.Is(err, order.ErrOrderNotFound):
		return "Pedido no encontrado"
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidStatusTransition):
		return err.Error()
	default:
		return fallback
	}
}

func errInvalidQueryParam(name string) error {
	return fmt.Errorf("invalid query parameter: %s", name)
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, checkout.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrSKUExists),
		errors.Is(err, catalog.ErrSlugExists),
		errors.Is(err, catalog.ErrProductHasOrders),
		errors.Is(err, catalog.ErrCategoryHasProducts),
		errors.Is(err, user.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, order.ErrInvalidStatusTransition),
		errors.Is(err, checkout.ErrCartEmpty),
		errors.Is(err, checkout.ErrOutOfStock):
		return http.StatusBadRequest
	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
