// internal/pkg/response/response.go
package response

import (
	"net/http"

	xerrors "gitwallet-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers do not append to the body
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
		response.Retryable = xerrors.IsRetryable(err)
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError picks the status code from the error's kind.
func FromError(c *gin.Context, message string, err error, data ...interface{}) {
	Error(c, StatusFor(err), message, err, data...)
}

// StatusFor maps an application error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case xerrors.Is(err, xerrors.ErrUnauthorized):
		return http.StatusUnauthorized
	case xerrors.Is(err, xerrors.ErrForbidden):
		return http.StatusForbidden
	case xerrors.Is(err, xerrors.ErrRateLimited):
		return http.StatusTooManyRequests
	}

	switch xerrors.KindOf(err) {
	case xerrors.KindValidation:
		return http.StatusBadRequest
	case xerrors.KindNotFound:
		return http.StatusNotFound
	case xerrors.KindPayment:
		return http.StatusPaymentRequired
	case xerrors.KindConflict:
		return http.StatusConflict
	case xerrors.KindPersistence:
		// payment captured, record pending reconciliation
		return http.StatusAccepted
	}

	if xerrors.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}
