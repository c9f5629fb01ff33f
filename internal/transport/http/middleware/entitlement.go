package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"peakmind/internal/transport/http/response"
)

// EntitlementChecker is the read side of the paid-access store.
type EntitlementChecker interface {
	IsPaid(ctx context.Context, userID uint) (bool, error)
}

// RequireEntitlement rejects unpaid callers with 402. It must be registered
// after AuthJWT so authentication is always checked first, and it runs
// before the handler touches the request body.
func RequireEntitlement(checker EntitlementChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDAny, exists := c.Get(ContextUserIDKey)
		if !exists {
			response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
			c.Abort()
			return
		}
		userID, ok := userIDAny.(uint)
		if !ok || userID == 0 {
			response.Fail(c, http.StatusUnauthorized, response.MsgAuthRequired)
			c.Abort()
			return
		}

		paid, err := checker.IsPaid(c.Request.Context(), userID)
		if err != nil {
			log.Printf("entitlement lookup failed for user %d: %v", userID, err)
			response.Fail(c, http.StatusInternalServerError, response.MsgUnavailable)
			c.Abort()
			return
		}
		if !paid {
			response.Fail(c, http.StatusPaymentRequired, response.MsgPaymentRequired)
			c.Abort()
			return
		}

		c.Next()
	}
}
