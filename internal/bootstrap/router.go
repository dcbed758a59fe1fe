package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/firebase-recipes/recipes-api/internal/api/http"
	"github.com/firebase-recipes/recipes-api/internal/api/http/middleware"
	"github.com/firebase-recipes/recipes-api/internal/api/http/routes"
	"github.com/firebase-recipes/recipes-api/internal/auth"
	"github.com/firebase-recipes/recipes-api/internal/recipes/store"
	"github.com/firebase-recipes/recipes-api/internal/views"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Log            *zap.Logger
	Checks         map[string]store.Pinger
	Views          *views.Registry
	Verifier       auth.TokenVerifier
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, "X-Recipe-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Checks)
	healthHandler.RegisterRoutes(r)

	routes.RegisterV1(r, routes.V1Deps{
		Views:       dep.Views,
		Verifier:    dep.Verifier,
		RateLimiter: middleware.NewRateLimiter(dep.RateLimitRPS, dep.RateLimitBurst),
		Log:         dep.Log,
	})

	return r
}
