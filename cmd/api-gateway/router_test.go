package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/lexcal-api/internal/handler"
	"github.com/noah-isme/lexcal-api/internal/models"
	"github.com/noah-isme/lexcal-api/internal/service"
)

func testRouter(t *testing.T) (*gin.Engine, *service.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret", Issuer: "lexcal", Expiry: time.Hour})
	metrics := service.NewMetricsService()
	return newRouter(routerDeps{
		APIPrefix: "/api/v1",
		Logger:    zap.NewNop(),
		Metrics:   metrics,
		Tokens:    tokens,
		Events:    handler.NewEventHandler(nil),
		Slots:     handler.NewSlotHandler(nil),
		Conflicts: handler.NewConflictHandler(nil, 14),
		Exports:   handler.NewExportHandler(nil),
		Ops:       handler.NewMetricsHandler(metrics, nil),
	}), tokens
}

func TestRouterRegistersEndpoints(t *testing.T) {
	r, _ := testRouter(t)

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/events",
		"POST /api/v1/events",
		"GET /api/v1/events/suggest-times",
		"GET /api/v1/events/:id",
		"PATCH /api/v1/events/:id",
		"DELETE /api/v1/events/:id",
		"POST /api/v1/events/:id/resolve",
		"GET /api/v1/events/:id/children",
		"GET /api/v1/events/:id/alternatives",
		"GET /api/v1/conflicts",
		"POST /api/v1/conflicts/scan",
		"POST /api/v1/admin/conflicts/rescan",
		"GET /api/v1/exports/agenda",
		"POST /api/v1/feeds/token",
		"GET /api/v1/feeds/:token",
		"POST /api/v1/imports/ics",
	} {
		assert.True(t, registered[want], want)
	}
	assert.False(t, registered["GET /docs/*any"])
}

func TestRouterGuardsAPI(t *testing.T) {
	r, tokens := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/events?from=2024-01-01&to=2024-01-07", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := tokens.Issue("user-1", "u1@example.com", models.RoleAttorney)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/conflicts/rescan", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
