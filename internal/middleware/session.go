package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizforge/quizforge-backend/internal/response"
	"github.com/quizforge/quizforge-backend/internal/service"
)

// CheckActiveToken verifies that the presented token is still the user's
// active one. A later login or a logout replaces the tracked jti in Redis,
// which rejects every token issued before it. Must run after RequireAuth.
func CheckActiveToken(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		err := authService.ValidateActiveToken(c.Request.Context(), claims.UserID, claims.ID)
		if err != nil {
			code := response.ErrTokenInvalid
			if errors.Is(err, service.ErrTokenSuperseded) {
				code = response.ErrTokenSuperseded
			}
			response.AbortFail(c, http.StatusUnauthorized, code)
			return
		}

		c.Next()
	}
}
