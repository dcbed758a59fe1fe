package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/firebase-recipes/recipes-api/internal/api/http/middleware"
	"github.com/firebase-recipes/recipes-api/internal/auth"
	"github.com/firebase-recipes/recipes-api/internal/views"
	viewshttp "github.com/firebase-recipes/recipes-api/internal/views/http"
)

type V1Deps struct {
	Views       *views.Registry
	Verifier    auth.TokenVerifier
	RateLimiter *middleware.RateLimiter
	Log         *zap.Logger
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	if dep.RateLimiter != nil {
		api.Use(dep.RateLimiter.Middleware())
	}

	viewshttp.New(dep.Views, dep.Log).Register(api, dep.Verifier)
}
