package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modastyle/backend/internal/auth"
	"github.com/modastyle/backend/internal/config"
	handler "github.com/modastyle/backend/internal/handler/http"
	"github.com/modastyle/backend/internal/user"
)

func adminRouter(tokens *auth.TokenManager) chi.Router {
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(handler.RequireAdmin(tokens))
		r.Get("/protegido", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return router
}

func TestRequireAdmin(t *testing.T) {
	tokens := auth.NewTokenManager(config.JWTConfig{Secret: "test-secret", TTL: time.Hour})

	adminToken, err := tokens.Issue(&user.Usuario{
		ID: uuid.Must(uuid.NewV4()), Email: "admin@modastyle.cl", Rol: user.RolAdmin,
	})
	require.NoError(t, err)

	clienteToken, err := tokens.Issue(&user.Usuario{
		ID: uuid.Must(uuid.NewV4()), Email: "ana@example.com", Rol: user.RolCliente,
	})
	require.NoError(t, err)

	tests := []struct {
		name         string
		authorize    func(req *http.Request)
		expectedCode int
	}{
		{
			name:         "no_credentials",
			authorize:    func(req *http.Request) {},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "bearer_admin_token",
			authorize: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+adminToken)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "session_cookie",
			authorize: func(req *http.Request) {
				req.AddCookie(&http.Cookie{Name: "session", Value: adminToken})
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "non_admin_role",
			authorize: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+clienteToken)
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "garbage_token",
			authorize: func(req *http.Request) {
				req.Header.Set("Authorization", "Bearer no.es.valido")
			},
			expectedCode: http.StatusUnauthorized,
		},
		{
			name: "malformed_header",
			authorize: func(req *http.Request) {
				req.Header.Set("Authorization", adminToken)
			},
			expectedCode: http.StatusUnauthorized,
		},
	}

	router := adminRouter(tokens)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protegido", nil)
			tt.authorize(req)

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}
