package middleware

import (
	"net/http"
	"strings"

	"github.com/bankfin-ledger/internal/auth"
	"github.com/gin-gonic/gin"
)

// PrincipalKey is the key used to store the authenticated caller in the context
const PrincipalKey = "principal"

// TokenVerifier validates bearer access tokens
type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Auth rejects requests without a valid bearer token and stores the caller otherwise
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
			return
		}

		principal, err := verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// RequireAdmin must run after Auth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok || !principal.Admin {
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Administrator access required")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the caller stored by Auth
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return auth.Principal{}, false
	}
	principal, ok := v.(auth.Principal)
	return principal, ok
}

func abortWithError(c *gin.Context, status int, code, message string) {
	response := gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
	if correlationID := GetCorrelationID(c); correlationID != "" {
		response["correlation_id"] = correlationID
	}
	c.AbortWithStatusJSON(status, response)
}
