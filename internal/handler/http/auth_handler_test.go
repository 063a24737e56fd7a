package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/modastyle/backend/internal/auth"
	"github.com/modastyle/backend/internal/config"
	handler "github.com/modastyle/backend/internal/handler/http"
	"github.com/modastyle/backend/internal/user"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Authenticate(ctx context.Context, email, password string) (*user.Usuario, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Usuario), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*user.Usuario, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Usuario), args.Error(1)
}

func newSessionRouter(mockService *MockUserService, tokens *auth.TokenManager) chi.Router {
	h := handler.NewAuthHandler(mockService, tokens, time.Hour)
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(handler.RequireAdmin(tokens))
		h.RegisterAdminRoutes(r)
	})
	return router
}

func TestAuthHandler_Session(t *testing.T) {
	tokens := auth.NewTokenManager(config.JWTConfig{Secret: "test-secret", TTL: time.Hour})

	admin := &user.Usuario{
		ID:     uuid.Must(uuid.NewV4()),
		Email:  "admin@modastyle.cl",
		Nombre: "Administrador",
		Rol:    user.RolAdmin,
	}
	token, err := tokens.Issue(admin)
	require.NoError(t, err)

	mockService := new(MockUserService)
	mockService.On("GetByID", mock.Anything, admin.ID).Return(admin, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/auth/sesion", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	newSessionRouter(mockService, tokens).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		User *user.Usuario `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	require.NotNil(t, response.User)
	assert.Equal(t, "admin@modastyle.cl", response.User.Email)
	assert.Equal(t, user.RolAdmin, response.User.Rol)
	mockService.AssertExpectations(t)
}

func TestAuthHandler_Session_Unauthenticated(t *testing.T) {
	tokens := auth.NewTokenManager(config.JWTConfig{Secret: "test-secret", TTL: time.Hour})
	mockService := new(MockUserService)

	req := httptest.NewRequest(http.MethodGet, "/auth/sesion", nil)
	rr := httptest.NewRecorder()
	newSessionRouter(mockService, tokens).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	mockService.AssertNotCalled(t, "GetByID")
}
