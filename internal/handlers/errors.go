package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
)

// statusFor maps an error kind to the HTTP status the API answers with.
func statusFor(k apperr.Kind) int {
	switch k {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Unavailable:
		return http.StatusConflict
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.PartialConsistency:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

func errorBody(err error) gin.H {
	kind := apperr.KindOf(err)
	body := gin.H{
		"error":   kind.String(),
		"message": apperr.UserMessage(err),
	}
	var e *apperr.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		body["fields"] = e.Fields
	}
	return body
}

// writeError is the error boundary: it logs transient failures with their
// cause and answers with the categorized message only.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.TransientIO {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(statusFor(kind), errorBody(err))
}

// respond writes body with status. A PartialConsistency error still answers
// 200, with the result next to the warning.
func respond(c *gin.Context, logger *zap.Logger, status int, body any, err error) {
	switch {
	case err == nil:
		c.JSON(status, body)
	case apperr.KindOf(err) == apperr.PartialConsistency:
		out := errorBody(err)
		out["result"] = body
		c.JSON(http.StatusOK, out)
	default:
		writeError(c, logger, err)
	}
}
