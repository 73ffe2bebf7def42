package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminAuth guards the operational endpoints (pricing reload) with a signed
// bearer token. An empty secret disables the check, for local development.
type AdminAuth struct {
	secret []byte
}

// NewAdminAuth creates the admin token validator.
func NewAdminAuth(secret string) *AdminAuth {
	return &AdminAuth{secret: []byte(secret)}
}

// Enabled reports whether admin authentication is configured.
func (a *AdminAuth) Enabled() bool {
	return len(a.secret) > 0
}

// IssueToken mints an HS256 token for operational tooling.
func (a *AdminAuth) IssueToken(subject string, ttl time.Duration) (string, error) {
	if !a.Enabled() {
		return "", fmt.Errorf("admin auth not configured")
	}

	claims := jwt.MapClaims{
		"sub": subject,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature and expiry.
func (a *AdminAuth) ValidateToken(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parse admin token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid admin token")
	}
	return nil
}

// Middleware rejects requests without a valid bearer token. With no secret
// configured the middleware is a no-op.
func (a *AdminAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.Enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		if err := a.ValidateToken(tokenString); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
