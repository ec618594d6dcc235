// README: Firebase bearer-token auth and role guards.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"helperhub/internal/infra"
)

const (
	ctxCallerUID  = "caller_uid"
	ctxCallerRole = "caller_role"
)

// Auth verifies the Authorization bearer token and stores the caller's uid
// and role claim on the context.
func Auth(verifier infra.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		token, err := verifier.VerifyIDToken(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		c.Set(ctxCallerUID, token.UID)
		c.Set(ctxCallerRole, token.Role())
		c.Next()
	}
}

// RequireRole rejects callers whose role claim is not one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "forbidden", "role "+role+" may not call this endpoint")
	}
}

func CallerUID(c *gin.Context) string {
	return c.GetString(ctxCallerUID)
}

func CallerRole(c *gin.Context) string {
	return c.GetString(ctxCallerRole)
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}
