package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-backend/internal/response"
)

// RequireAdmin rejects requests whose token does not carry the admin flag.
// Must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		if !claims.IsAdmin {
			response.AbortFail(c, http.StatusForbidden, response.ErrAdminAccessOnly)
			return
		}
		c.Next()
	}
}
