package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, checks map[string]store.Pinger, path string) (int, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler("recipes-api", "1.2.3", checks).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

	var out HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w.Code, out
}

func TestHealth_AllUp(t *testing.T) {
	code, out := serveHealth(t, map[string]store.Pinger{
		"store": store.NewMemoryStore(nil),
		"cache": nil,
	}, "/health")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "recipes-api", out.Service)
	assert.Equal(t, "1.2.3", out.Version)
	assert.Equal(t, map[string]string{"store": "up", "cache": "disabled"}, out.Checks)
}

func TestHealth_Degraded(t *testing.T) {
	code, out := serveHealth(t, map[string]store.Pinger{
		"store": pingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, "/healthz")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", out.Status)
	assert.Equal(t, "down", out.Checks["store"])
}
