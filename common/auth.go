package common

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chronicle/models"
)

// RequireLogin redirects anonymous requests to the login page. The session
// user is resolved against the database, so a stale cookie whose user no
// longer exists is treated as anonymous; handlers behind this middleware
// can rely on CurrentUser returning a non-nil user.
func RequireLogin(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c, db) == nil {
			session := sessions.Default(c)
			session.Clear()
			session.Save()

			c.Redirect(http.StatusFound, "/auth/login/")
			c.Abort()
			return
		}

		c.Next()
	}
}

// CurrentUser resolves the session user, or nil for anonymous viewers.
// A stale session pointing at a deleted user counts as anonymous.
func CurrentUser(c *gin.Context, db *gorm.DB) *models.User {
	session := sessions.Default(c)
	raw := session.Get("user_id")
	if raw == nil {
		return nil
	}

	userID, ok := raw.(uint)
	if !ok {
		return nil
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return nil
	}
	return &user
}
