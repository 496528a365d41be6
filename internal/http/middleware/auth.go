package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/waxal-backend/internal/http/response"
	"github.com/yungbote/waxal-backend/internal/platform/logger"
)

const ctxKeyOperator = "operator"

// AdminAuth guards the operator API with HS256 bearer tokens.
type AdminAuth struct {
	log    *logger.Logger
	secret []byte
	issuer string
}

func NewAdminAuth(log *logger.Logger, secret, issuer string) *AdminAuth {
	middlewareLogger := log.With("Middleware", "AdminAuth")
	return &AdminAuth{log: middlewareLogger, secret: []byte(secret), issuer: issuer}
}

func (am *AdminAuth) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractBearer(c)
		if tokenString == "" {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		claims, err := am.Verify(tokenString)
		if err != nil {
			am.log.Warn("Rejected operator token", "error", err)
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errors.New("invalid or expired token"))
			return
		}
		c.Set(ctxKeyOperator, claims.Subject)
		c.Next()
	}
}

// Verify parses tokenString and checks signature, expiry and issuer.
func (am *AdminAuth) Verify(tokenString string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if am.issuer != "" {
		opts = append(opts, jwt.WithIssuer(am.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return am.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func extractBearer(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
