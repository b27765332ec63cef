package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/models"
	appErrors "github.com/noah-isme/technician-availability-api/pkg/errors"
	"github.com/noah-isme/technician-availability-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator parses access tokens into claims.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type jwtOptions struct {
	queryParam string
}

// JWTOption adjusts how JWT locates the access token.
type JWTOption func(*jwtOptions)

// AllowQueryToken also accepts the token from the named query parameter.
// Calendar clients subscribe by URL and cannot send an Authorization header.
// A header, when present, still wins.
func AllowQueryToken(param string) JWTOption {
	return func(o *jwtOptions) {
		o.queryParam = param
	}
}

// JWT protects routes by requiring a valid access token.
func JWT(validator TokenValidator, opts ...JWTOption) gin.HandlerFunc {
	var o jwtOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		token, err := bearerToken(c, o)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context, o jwtOptions) (string, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		if o.queryParam != "" {
			if token := strings.TrimSpace(c.Query(o.queryParam)); token != "" {
				return token, nil
			}
		}
		return "", appErrors.ErrUnauthorized
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
	}
	return token, nil
}

// CurrentClaims returns the claims stored by JWT, if any.
func CurrentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}
