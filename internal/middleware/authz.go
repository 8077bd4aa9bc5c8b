package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthzConfig guards API writes with an HS256 bearer token. Tokens must
// carry the configured issuer and every listed permission.
type AuthzConfig struct {
	Secret      string
	Issuer      string
	Permissions []string
}

func AuthzMiddleware(config AuthzConfig) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.Issuer),
		jwt.WithExpirationRequired(),
	)

	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_token",
				"message": "Authorization header is required",
			})
			return
		}

		tokenStr, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token_format",
				"message": "Authorization header must use Bearer token",
			})
			return
		}

		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(config.Secret), nil
		})
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "expired_token",
				"message": "Token has expired",
			})
			return
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_issuer",
				"message": "Token issuer is invalid",
			})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Token validation failed",
			})
			return
		}

		if len(config.Permissions) > 0 {
			perms, _ := claims["permissions"].([]interface{})
			granted := map[string]bool{}
			for _, p := range perms {
				if ps, ok := p.(string); ok {
					granted[ps] = true
				}
			}

			for _, required := range config.Permissions {
				if !granted[required] {
					c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
						"error":   "missing_permission",
						"message": "Token does not grant required permission: " + required,
					})
					return
				}
			}
		}

		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			c.Set("subject", sub)
		}
		c.Next()
	}
}
