package response

import "github.com/gin-gonic/gin"

// Caller-visible error messages. Deliberately generic: provider and
// infrastructure detail stays in server logs.
const (
	MsgAuthRequired    = "Authentication required"
	MsgPaymentRequired = "Paid access required"
	MsgInvalidRequest  = "Invalid request"
	MsgNoValidMessages = "No valid messages provided"
	MsgPayloadTooLarge = "Message content too long"
	MsgEmptyCompletion = "No response generated"
	MsgUnavailable     = "Service temporarily unavailable"
)

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
