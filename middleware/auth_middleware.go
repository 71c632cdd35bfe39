package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/moxuan/socialbackend/apperr"
	"github.com/moxuan/socialbackend/models"
	"github.com/moxuan/socialbackend/session"
)

// AuthMiddleware resolves the bearer token to a live account on every
// request, so a deactivated account loses access immediately.
func AuthMiddleware(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		user, err := sessions.Authenticate(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(apperr.Status(err), gin.H{"error": apperr.Message(err)})
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID.Hex())
		c.Set("role", string(user.Role))
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the bearer token when one is
// present but lets anonymous requests through. Used by public list
// endpoints that enrich results relative to the viewer.
func OptionalAuthMiddleware(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "" && strings.HasPrefix(header, "Bearer ") {
			user, err := sessions.Authenticate(c.Request.Context(), strings.TrimPrefix(header, "Bearer "))
			if err == nil {
				c.Set("user", user)
				c.Set("userID", user.ID.Hex())
				c.Set("role", string(user.Role))
			}
		}
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, ok := c.Get("role")
		if !ok || roleVal.(string) != string(models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
