package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"adventure-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	SessionKeyHeader = "X-Session-Key"
	APIKeyHeader     = "X-API-KEY"

	principalGinKey = "principal"
)

// TokenVerifier проверяет строку JWT и возвращает claims.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, tokenString string) (*models.Claims, error)
}

// APIKeyVerifier checks the content API key used by authoring tools.
type APIKeyVerifier interface {
	VerifyAPIKey(key string) bool
}

// ResolvePrincipal builds the request Principal once and stores it in the gin and
// request contexts. All credentials are optional; a credential that is present but
// invalid aborts the request with 401.
func ResolvePrincipal(verifier TokenVerifier, apiKeys APIKeyVerifier, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("PrincipalMiddleware")
	return func(c *gin.Context) {
		var p models.Principal

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || verifier == nil {
				log.Warn("Malformed Authorization header", zap.String("path", c.Request.URL.Path))
				abortUnauthorized(c, "malformed authorization header")
				return
			}
			claims, err := verifier.VerifyToken(c.Request.Context(), parts[1])
			if err != nil {
				msg := "invalid token"
				switch {
				case errors.Is(err, models.ErrTokenExpired):
					msg = "token expired"
				case errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrTokenInvalid):
				default:
					log.Error("Unexpected token verification error", zap.Error(err))
				}
				abortUnauthorized(c, msg)
				return
			}
			userID := claims.UserID
			p.Identity.UserID = &userID
			p.Roles = claims.Roles
		}

		if key := c.GetHeader(APIKeyHeader); key != "" {
			if apiKeys == nil || !apiKeys.VerifyAPIKey(key) {
				log.Warn("Invalid API key", zap.String("path", c.Request.URL.Path), zap.String("ip", c.ClientIP()))
				abortUnauthorized(c, "invalid api key")
				return
			}
			p.ServiceKey = true
		}

		p.Identity.SessionKey = strings.TrimSpace(c.GetHeader(SessionKeyHeader))

		c.Set(principalGinKey, p)
		c.Request = c.Request.WithContext(models.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// RequireAuthenticated rejects requests without a verified user.
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := lookupPrincipal(c)
		if !ok || !p.Identity.IsAuthenticated() {
			abortUnauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the request Principal; the zero value when none was resolved.
func GetPrincipal(c *gin.Context) models.Principal {
	p, _ := lookupPrincipal(c)
	return p
}

func lookupPrincipal(c *gin.Context) (models.Principal, bool) {
	v, ok := c.Get(principalGinKey)
	if !ok {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Code: models.CodeUnauthorized, Message: msg})
}
