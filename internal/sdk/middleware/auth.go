// Package middleware provides the gin middleware chain: authentication,
// rate limiting, request logging and CORS.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/philippebeck/links2code-api/internal/services/token"
)

const (
	bearerPrefix = "Bearer "

	// UserIDKey is the gin context key holding the authenticated account ID.
	UserIDKey = "auth_user_id"
)

// Authenticate verifies the bearer token on the Authorization header and
// attaches the account ID to the request context. Token verification is
// entirely self-contained: signature plus expiry, no server-side lookup.
func Authenticate(tokens *token.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_authorization_header"})
			return
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_authorization_header"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := tokens.ParseToken(c.Request.Context(), tokenString)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, token.ErrExpiredToken) {
				code = "expired_token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Next()
	}
}

// GetUserID extracts the authenticated account ID set by Authenticate.
func GetUserID(c *gin.Context) (string, error) {
	v, exists := c.Get(UserIDKey)
	if !exists {
		return "", errors.New("no authenticated user in context")
	}

	userID, ok := v.(string)
	if !ok || userID == "" {
		return "", errors.New("no authenticated user in context")
	}

	return userID, nil
}
