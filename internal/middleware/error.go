package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Manudeeprao/expense-tracker/internal/errors"
	"github.com/Manudeeprao/expense-tracker/internal/logger"
)

// ErrorHandler renders the last error attached with c.Error as
// {"error":{"code","message"}}. Unknown errors become INTERNAL_ERROR with
// no detail leaked to the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		abortWithError(c, resolveError(c, c.Errors.Last().Err))
	}
}

// Recovery turns a handler panic into an INTERNAL_ERROR response in the
// same envelope as every other error.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Named("http").Errorw("Recovered from handler panic",
					"panic", r,
					"route", c.FullPath(),
					"request_id", RequestID(c),
				)
				abortWithError(c, apperrors.ErrInternalServer)
			}
		}()
		c.Next()
	}
}

// resolveError maps err to the AppError sent to the client and logs it.
// Budget rejections are routine outcomes of the gate and log at info.
func resolveError(c *gin.Context, err error) *apperrors.AppError {
	log := logger.Named("http").With(
		"route", c.FullPath(),
		"request_id", RequestID(c),
		"user_id", c.GetString("userID"),
	)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		log.Errorw("Unexpected error", "error", err)
		return apperrors.ErrInternalServer
	}

	switch {
	case isBudgetRejection(appErr):
		log.Infow("Expense rejected by budget", "code", appErr.Code, "message", appErr.Message)
	case appErr.Internal != nil:
		log.Errorw("Request failed", "code", appErr.Code, "internal", appErr.Internal.Error())
	}
	return appErr
}

func isBudgetRejection(err error) bool {
	return errors.Is(err, apperrors.ErrBudgetExceeded) ||
		errors.Is(err, apperrors.ErrCategoryBudgetExceeded) ||
		errors.Is(err, apperrors.ErrBudgetNotConfigured)
}

func abortWithError(c *gin.Context, appErr *apperrors.AppError) {
	c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
		"error": gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
