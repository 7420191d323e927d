package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Outcomes recorded per request.
const (
	ResultSuccess      = "success"
	ResultFailure      = "failure"
	ResultUnauthorized = "unauthorized"
)

// RequestRecorder counts exchange requests.
type RequestRecorder interface {
	RecordRequest(ctx context.Context, kind, mode, result string)
}

// Metrics records the outcome of every exchange request. A nil recorder
// turns the middleware into a no-op.
func Metrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if recorder == nil {
			return
		}
		recorder.RecordRequest(c.Request.Context(), c.Query("type"), c.Query("mode"), RequestResult(c))
	}
}

// RequestResult classifies a finished request.
func RequestResult(c *gin.Context) string {
	switch {
	case c.Writer.Status() == http.StatusUnauthorized:
		return ResultUnauthorized
	case c.Writer.Status() >= http.StatusBadRequest, len(c.Errors) > 0:
		return ResultFailure
	default:
		return ResultSuccess
	}
}
