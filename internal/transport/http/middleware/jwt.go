package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"peakmind/internal/pkg/jwtutil"
	"peakmind/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

// AuthJWT resolves the caller's identity from the Authorization header.
// It runs before any other processing on protected routes.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
			c.Abort()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
			c.Abort()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Next()
	}
}
