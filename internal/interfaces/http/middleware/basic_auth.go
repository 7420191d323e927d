package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/exchange/internal/domain/exchange"
	"github.com/erp/exchange/internal/infrastructure/logger"
)

// Realm is announced in the WWW-Authenticate challenge.
const Realm = "1C Exchange"

// CredentialChecker verifies Basic credentials.
type CredentialChecker interface {
	// Required reports whether credentials are configured at all.
	Required() bool
	Verify(username, password string) bool
}

// BasicAuth rejects requests without valid Basic credentials with a 401
// challenge. It passes everything when no credentials are configured.
func BasicAuth(checker CredentialChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checker.Required() {
			c.Next()
			return
		}
		user, pass, ok := c.Request.BasicAuth()
		if ok && checker.Verify(user, pass) {
			c.Next()
			return
		}

		logger.GetGinLogger(c).Warn("Exchange request rejected",
			zap.String("username", user),
			zap.Bool("credentials_present", ok),
		)
		_ = c.Error(exchange.ErrAuthenticationFailed)
		c.Header("WWW-Authenticate", `Basic realm="`+Realm+`"`)
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.AbortWithStatus(http.StatusUnauthorized)
		_, _ = c.Writer.WriteString("failure\n" + exchange.ErrAuthenticationFailed.Message)
	}
}
