package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/recipebox/internal/apperrors"
)

// Recovery turns a panic into a logged 500 with the uniform error payload
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered",
					zap.Any("panic", err),
					zap.String("request_id", RequestIDFromContext(c)),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					apperrors.NewPayload(apperrors.KindInternal, "Internal Server Error"))
			}
		}()
		c.Next()
	}
}
