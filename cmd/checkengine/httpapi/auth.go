package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// bearerAuth requires an "Authorization: Bearer <token>" header carrying a
// JWT signed (HS256) with one of keys. No claims beyond a valid signature
// are enforced — this demo server has no user/account model to bind a
// claim to, unlike the teacher's own JWT auth service.
func bearerAuth(keys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		var lastErr error
		for _, key := range keys {
			_, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenUnverifiable
				}
				return []byte(key), nil
			})
			if err == nil {
				c.Next()
				return
			}
			lastErr = err
		}

		msg := "invalid token"
		if lastErr != nil {
			msg = "invalid token: " + lastErr.Error()
		}
		respondError(c, http.StatusUnauthorized, msg)
		c.Abort()
	}
}
