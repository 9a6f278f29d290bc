package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
)

// OperatorKeyHeader carries the shared key for operator-only endpoints.
const OperatorKeyHeader = "X-API-Key"

// OperatorAuthMiddleware guards endpoints that act on every user, such as the
// manual recurrence trigger. An empty configured key disables them.
func OperatorAuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			abortWithError(c, apperrors.ErrKeyNotConfigured)
			return
		}
		key := c.GetHeader(OperatorKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}
