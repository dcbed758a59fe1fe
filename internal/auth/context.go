package auth

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/firebase-recipes/recipes-api/internal/session"
)

const (
	CtxFirebaseUID = "firebase_uid"
	CtxUser        = "session_user"
)

// UserFirebaseUID extracts the Firebase UID from the Gin context.
// This is set by the Firebase auth middlewares.
func UserFirebaseUID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxFirebaseUID))
}

// CurrentUser returns the verified user for this request, or nil.
func CurrentUser(c *gin.Context) *session.User {
	v, ok := c.Get(CtxUser)
	if !ok {
		return nil
	}
	u, _ := v.(*session.User)
	return u
}

// SetUser stores a verified user on the Gin context.
func SetUser(c *gin.Context, u *session.User) {
	c.Set(CtxFirebaseUID, u.UID)
	c.Set(CtxUser, u)
}
