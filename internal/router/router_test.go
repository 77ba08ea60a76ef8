package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/config"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/enum"
	"github.com/tablewise/restaurant-api/internal/router"
)

const secret = "router-test-secret"

// Every request here is rejected by middleware before a query runs, so the
// router is built without a database.
func newTestRouter(public bool) http.Handler {
	cfg := &config.Config{
		JWTSecret:     secret,
		PublicCatalog: public,
		CORSOrigins:   []string{"http://localhost:5173"},
		StatsCacheTTL: time.Minute,
	}
	return router.New(cfg, router.Deps{Queries: database.New(nil)})
}

func call(t *testing.T, h http.Handler, method, path, role string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := auth.GenerateToken(secret, time.Minute, uuid.New(), "tester", role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, call(t, newTestRouter(true), http.MethodGet, "/health", ""))
}

func TestAccessRules(t *testing.T) {
	h := newTestRouter(true)

	tests := []struct {
		method, path, role string
		want               int
	}{
		{http.MethodGet, "/api/ingredients", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/cart", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/orders/my", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/categories", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/categories", enum.RoleUser, http.StatusForbidden},
		{http.MethodDelete, "/api/dishes/" + uuid.NewString(), enum.RoleWaiter, http.StatusForbidden},
		{http.MethodGet, "/api/orders", enum.RoleUser, http.StatusForbidden},
		{http.MethodDelete, "/api/orders/" + uuid.NewString(), enum.RoleWaiter, http.StatusForbidden},
		{http.MethodGet, "/api/order-items", enum.RoleUser, http.StatusForbidden},
		{http.MethodGet, "/api/users", enum.RoleWaiter, http.StatusForbidden},
		{http.MethodGet, "/api/roles", enum.RoleUser, http.StatusForbidden},
		{http.MethodGet, "/api/statistics/overview", enum.RoleWaiter, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path+" as "+tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, h, tt.method, tt.path, tt.role))
		})
	}
}

func TestPrivateCatalog(t *testing.T) {
	h := newTestRouter(false)

	for _, path := range []string{"/api/categories", "/api/dishes", "/api/menus", "/api/menu-dishes", "/api/dish-ingredients"} {
		assert.Equal(t, http.StatusUnauthorized, call(t, h, http.MethodGet, path, ""), path)
	}
}

func TestInvalidTokenOnPublicRoute(t *testing.T) {
	h := newTestRouter(true)

	req := httptest.NewRequest(http.MethodGet, "/api/ingredients", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
