package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/firebase-recipes/recipes-api/internal/auth"
	"github.com/firebase-recipes/recipes-api/internal/catalog"
	"github.com/firebase-recipes/recipes-api/internal/form"
	"github.com/firebase-recipes/recipes-api/internal/recipes/domain"
	"github.com/firebase-recipes/recipes-api/internal/views"
)

const ctxView = "view"

func currentView(c *gin.Context) *views.View {
	v, _ := c.MustGet(ctxView).(*views.View)
	return v
}

func (h *Handler) loadView(c *gin.Context) {
	v, err := h.reg.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Set(ctxView, v)
	c.Next()
}

// requireViewUser only lets through requests whose verified token belongs to
// the user signed in to the view.
func (h *Handler) requireViewUser(c *gin.Context) {
	v := currentView(c)
	u := v.Controller.User()
	if u == nil || u.UID != auth.UserFirebaseUID(c) {
		h.fail(c, domain.ErrPermissionDenied)
		return
	}
	c.Next()
}

// requireViewUserIfSignedIn passes requests for anonymous views and applies
// requireViewUser once someone is signed in to the view.
func (h *Handler) requireViewUserIfSignedIn(c *gin.Context) {
	if currentView(c).Controller.User() == nil {
		c.Next()
		return
	}
	if auth.CurrentUser(c) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authorization header required"})
		return
	}
	h.requireViewUser(c)
}

func (h *Handler) respond(c *gin.Context, status int, v *views.View) {
	c.JSON(status, viewResponse{
		ID:       v.ID,
		Snapshot: v.Controller.Snapshot(),
		Notices:  v.Inbox.Drain(),
	})
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "categories": domain.Categories()})
}

func (h *Handler) open(c *gin.Context) {
	v, err := h.reg.Open(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if u := auth.CurrentUser(c); u != nil {
		v.Session.SignIn(u)
	}
	h.respond(c, http.StatusCreated, v)
}

func (h *Handler) get(c *gin.Context) {
	h.respond(c, http.StatusOK, currentView(c))
}

func (h *Handler) close(c *gin.Context) {
	if err := h.reg.Close(currentView(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) signIn(c *gin.Context) {
	v := currentView(c)
	v.Session.SignIn(auth.CurrentUser(c))
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) signOut(c *gin.Context) {
	v := currentView(c)
	v.Session.SignOut()
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) setFilter(c *gin.Context) {
	v := currentView(c)

	var req filterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	f := v.Controller.Filter()
	if req.Category != nil {
		f.Category = domain.Category(*req.Category)
	}
	if req.OrderBy != nil {
		f.OrderBy = catalog.OrderBy(*req.OrderBy)
	}
	if req.PageSize != nil {
		f.PageSize = *req.PageSize
	}

	if err := v.Controller.ApplyFilter(c.Request.Context(), f); err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) loadMore(c *gin.Context) {
	v := currentView(c)
	if err := v.Controller.LoadMore(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) edit(c *gin.Context) {
	v := currentView(c)
	if !v.Controller.EditRecipe(c.Param("recipeId")) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "recipe not loaded"})
		return
	}
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) updateForm(c *gin.Context) {
	v := currentView(c)

	var req form.Fields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	v.Controller.Form().Apply(req)
	h.respond(c, http.StatusOK, v)
}

// addIngredient sets the pending ingredient name when one is sent, then
// commits it: always for a bare name, on the commit key when a key is sent.
func (h *Handler) addIngredient(c *gin.Context) {
	v := currentView(c)

	var req ingredientReq
	if err := c.ShouldBindJSON(&req); err != nil || (req.Name == nil && req.Key == "") {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	f := v.Controller.Form()
	if req.Name != nil {
		f.SetIngredientName(*req.Name)
	}

	var err error
	if req.Key != "" {
		err = f.HandleIngredientKey(req.Key)
	} else {
		err = f.AddIngredient()
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) removeIngredient(c *gin.Context) {
	v := currentView(c)

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid ingredient index"})
		return
	}
	if err := v.Controller.Form().RemoveIngredient(index); err != nil {
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) cancelEdit(c *gin.Context) {
	v := currentView(c)
	v.Controller.CancelEdit()
	h.respond(c, http.StatusOK, v)
}

func (h *Handler) submit(c *gin.Context) {
	v := currentView(c)
	editing := v.Controller.Form().Mode() == form.ModeEdit

	id, err := v.Controller.SubmitForm(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	status := http.StatusCreated
	if editing {
		status = http.StatusOK
	}
	c.Header("X-Recipe-Id", id)
	h.respond(c, status, v)
}

func (h *Handler) deleteRecipe(c *gin.Context) {
	v := currentView(c)
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))

	err := v.Controller.DeleteRecipe(c.Request.Context(), c.Param("recipeId"),
		catalog.ConfirmFunc(func(string) bool { return confirmed }))
	if err != nil {
		if errors.Is(err, catalog.ErrDeleteNotConfirmed) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"ok":      false,
				"error":   err.Error(),
				"prompt":  catalog.DeletePrompt,
				"confirm": c.Request.URL.Path + "?confirm=true",
			})
			return
		}
		h.fail(c, err)
		return
	}
	h.respond(c, http.StatusOK, v)
}
