package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"eventtts/events"
	"eventtts/filemgr"
	"eventtts/middleware"
	"eventtts/orders"
	"eventtts/ratelim"
	"eventtts/reports"
	"eventtts/taxonomy"
	"eventtts/tickets"
	"eventtts/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	var router http.Handler
	require.NotPanics(t, func() {
		router = SetupRouter(&Handlers{
			Auth:      middleware.NewAuth("secret", nil),
			Limiter:   ratelim.NewRateLimiter(60, 10),
			Events:    &events.Handler{},
			Taxonomy:  &taxonomy.Handler{},
			Users:     &users.Handler{},
			Orders:    &orders.Handler{},
			Tickets:   &tickets.Handler{},
			Live:      tickets.NewHub(zap.NewNop()),
			Reports:   &reports.Handler{},
			Uploads:   &filemgr.Handler{},
			UploadDir: t.TempDir(),
		})
	})
	return router
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := testRouter(t)
	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/events"},
		{http.MethodPut, "/api/events/64b7f0c2a1b2c3d4e5f60718"},
		{http.MethodPost, "/api/events/64b7f0c2a1b2c3d4e5f60718/checkout"},
		{http.MethodGet, "/api/me/orders"},
		{http.MethodGet, "/api/me/likes"},
		{http.MethodGet, "/api/orders/64b7f0c2a1b2c3d4e5f60718/ticket"},
		{http.MethodPost, "/api/uploads/photo"},
		{http.MethodGet, "/api/reports/64b7f0c2a1b2c3d4e5f60718/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/places", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
