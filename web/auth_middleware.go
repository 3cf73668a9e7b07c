package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// authMiddleware Bearer 令牌认证；tokenHash 为空时不鉴权
func authMiddleware(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenHash == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || !VerifyToken(tokenHash, strings.TrimSpace(token)) {
			respondError(c, http.StatusUnauthorized, "unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}
