package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/config"
	"github.com/firebase-recipes/recipes-api/internal/auth"
	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
	"github.com/firebase-recipes/recipes-api/internal/views"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mem := store.NewMemoryStore(nil)
	reg := views.NewRegistry(mem)
	t.Cleanup(func() { reg.Shutdown(context.Background()) })

	return BuildRouter(RouterDeps{
		ServiceName:    "recipes-api",
		Version:        "test",
		Log:            zap.NewNop(),
		Checks:         map[string]store.Pinger{"memory": mem},
		Views:          reg,
		Verifier:       auth.DevVerifier{},
		AllowedOrigins: []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	})
}

func TestBuildRouter_Routes(t *testing.T) {
	r := testRouter(t)

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/v1/categories", http.StatusOK},
		{http.MethodPost, "/api/v1/views", http.StatusCreated},
		{http.MethodGet, "/api/v1/views/missing", http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, tc.method+" "+tc.path)
		assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	}
}

func TestBuildRouter_CORS(t *testing.T) {
	r := testRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/categories", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		App:   config.AppConfig{Environment: "development"},
	}
	b, err := OpenBackend(context.Background(), cfg, zap.NewNop())
	if !assert.NoError(t, err) {
		return
	}
	defer b.Close()

	assert.IsType(t, &store.MemoryStore{}, b.Store)
	assert.IsType(t, auth.DevVerifier{}, b.Verifier)
	assert.Contains(t, b.Checks, "memory")
}

func TestOpenBackend_ProductionNeedsFirebase(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		App:   config.AppConfig{Environment: "production"},
	}
	_, err := OpenBackend(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "FIREBASE_CREDENTIALS_PATH")
}

func TestOpenBackend_WithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Redis: config.RedisConfig{Addr: mr.Addr(), CacheTTL: time.Minute},
		App:   config.AppConfig{Environment: "development"},
	}
	b, err := OpenBackend(context.Background(), cfg, zap.NewNop())
	if !assert.NoError(t, err) {
		return
	}
	defer b.Close()

	assert.IsType(t, &store.CachedStore{}, b.Store)
	assert.NoError(t, b.Checks["redis"].Ping(context.Background()))
}
