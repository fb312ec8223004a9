package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/watch-storefront/internal/apperr"
	"github.com/imrishuroy/watch-storefront/internal/session"
)

// Identity headers set by the authenticating proxy in front of the API.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
	HeaderRequestID = "X-Request-Id"
)

const sessionKey = "session"

// RequestLogger logs one line per request through zap and makes sure every
// request carries an X-Request-Id.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
			c.Request.Header.Set(HeaderRequestID, reqID)
		}
		c.Header(HeaderRequestID, reqID)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", reqID),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// Recovery turns a panic into a 503 with the generic message and logs it.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody(apperr.NewTransient("panic", nil)))
	})
}

// WithSession reads the identity headers into a session.Session. Missing
// headers leave the session anonymous; services decide whether that is an
// error.
func WithSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionKey, session.Session{
			UserID:      strings.TrimSpace(c.GetHeader(HeaderUserID)),
			Email:       strings.TrimSpace(c.GetHeader(HeaderUserEmail)),
			DisplayName: strings.TrimSpace(c.GetHeader(HeaderUserName)),
		})
		c.Next()
	}
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessionOf(c).Require(); err != nil {
			writeError(c, logger, err)
			return
		}
		c.Next()
	}
}

// AdminOnly rejects sessions that authorize refuses.
func AdminOnly(authorize func(session.Session) error, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authorize(sessionOf(c)); err != nil {
			writeError(c, logger, err)
			return
		}
		c.Next()
	}
}

func sessionOf(c *gin.Context) session.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}
	return session.Session{}
}
