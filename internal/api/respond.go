package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/recipebox/internal/apperrors"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/session"
)

// SessionManager persists session changes made by handlers
type SessionManager interface {
	Save(c *gin.Context, s session.Session) error
	Login(c *gin.Context, s session.Session, userID uuid.UUID) (session.Session, error)
	Destroy(c *gin.Context, s session.Session) error
}

// respondError logs err with the request id and writes the uniform error
// payload. Client-facing kinds keep their own message; everything else is
// reported with fallback so internal detail never leaves the process.
func respondError(c *gin.Context, log *zap.Logger, err error, fallback string) {
	kind := apperrors.KindOf(err)
	respondErrorStatus(c, log, err, kind, kind.Status(), fallback)
}

func respondErrorStatus(c *gin.Context, log *zap.Logger, err error, kind apperrors.Kind, status int, fallback string) {
	message := fallback
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && clientFacing(appErr.Kind) {
		message = appErr.Message
	}

	fields := []zap.Field{
		zap.Error(err),
		zap.String("request_id", requestID(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", status),
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		names := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			names = append(names, fe.Field()+":"+fe.Tag())
		}
		fields = append(fields, zap.Strings("invalid_fields", names))
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Warn("request rejected", fields...)
	}

	c.JSON(status, apperrors.NewPayload(kind, message))
}

func clientMessage(err error) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func requestID(c *gin.Context) string {
	return middleware.RequestIDFromContext(c)
}

func clientFacing(kind apperrors.Kind) bool {
	switch kind {
	case apperrors.KindNotFound, apperrors.KindValidation, apperrors.KindConflict,
		apperrors.KindUnauthorized, apperrors.KindRateLimited:
		return true
	}
	return false
}
