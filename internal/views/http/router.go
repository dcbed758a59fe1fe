package http

import (
	"github.com/gin-gonic/gin"

	"github.com/firebase-recipes/recipes-api/internal/auth"
	"github.com/firebase-recipes/recipes-api/internal/auth/middleware"
)

// Register attaches view routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup, verifier auth.TokenVerifier) {
	rg.GET("/categories", h.categories)
	rg.POST("/views", middleware.OptionalFirebaseAuth(verifier), h.open)

	v := rg.Group("/views/:id", h.loadView)
	v.GET("", h.get)
	v.PUT("/session", middleware.FirebaseAuthMiddleware(verifier), h.signIn)
	v.PUT("/filter", h.setFilter)
	v.POST("/load-more", h.loadMore)

	// Anonymous views may be torn down by anyone holding the id; signed-in
	// views only by their user.
	guarded := v.Group("", middleware.OptionalFirebaseAuth(verifier), h.requireViewUserIfSignedIn)
	guarded.DELETE("", h.close)
	guarded.DELETE("/session", h.signOut)

	owner := v.Group("", middleware.FirebaseAuthMiddleware(verifier), h.requireViewUser)
	owner.POST("/recipes/:recipeId/edit", h.edit)
	owner.DELETE("/recipes/:recipeId", h.deleteRecipe)
	owner.PUT("/form", h.updateForm)
	owner.POST("/form/ingredients", h.addIngredient)
	owner.DELETE("/form/ingredients/:index", h.removeIngredient)
	owner.POST("/form/cancel", h.cancelEdit)
	owner.POST("/form/submit", h.submit)
}
