package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docrankhq/docrank/internal/pkg/errcode"
	"github.com/docrankhq/docrank/internal/pkg/jwt"
	"github.com/docrankhq/docrank/internal/pkg/response"
)

// ContextUserIDKey is where JWTAuth stores the authenticated user id on the
// gin context. Every downstream query scopes by this value.
const ContextUserIDKey = "user_id"

// JWTAuth verifies the Bearer token and injects the caller's user id.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, errcode.ErrUnauthorized, "missing or malformed authorization")
			c.Abort()
			return
		}
		claims, err := jwt.ParseToken(token, secret)
		if err != nil {
			response.Error(c, errcode.ErrUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
