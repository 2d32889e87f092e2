// internal/middleware/recovery_middleware.go
package middleware

import (
	"errors"
	"net"
	"net/http"
	"os"
	"strings"

	"gitwallet-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryMiddleware turns a handler panic into a 500 envelope. A panic from
// a client that already hung up is logged without a stack and gets no reply.
func RecoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}

			fields := []zap.Field{
				zap.Any("error", rec),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
			}

			if brokenPipe(rec) {
				logger.Warn("client connection closed", fields...)
				c.Abort()
				return
			}

			logger.Error("panic recovered", append(fields, zap.Stack("stack"))...)
			response.Error(c, http.StatusInternalServerError, "internal server error", nil)
		}()
		c.Next()
	}
}

func brokenPipe(rec interface{}) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if !errors.As(opErr, &sysErr) {
		return false
	}
	msg := strings.ToLower(sysErr.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
