package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAuth rejects requests without a valid credential and stores the
// Identity in the request context.
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Authenticate(TokenFromRequest(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error()})
			return
		}
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
