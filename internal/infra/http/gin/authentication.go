package ginserver

import (
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"reservations/internal/app/apperr"
)

const principalContextKey = "reservations.principal"

type principal struct {
	ID    string
	Roles []string
}

// Claims are issued by the identity service; sub is the user id.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies bearer tokens signed with HS256. Requests without a
// valid token continue anonymously; protected handlers reject them.
type AuthMiddleware struct {
	Secret []byte
	Issuer string
	Logger *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || len(m.Secret) == 0 {
		c.Next()
		return
	}
	p, err := m.verify(token)
	if err != nil {
		if m.Logger != nil {
			m.Logger.DebugContext(c.Request.Context(), "token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, p)
	c.Next()
}

func (m AuthMiddleware) verify(raw string) (principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.Issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.Secret, nil
	}, opts...)
	if err != nil {
		return principal{}, err
	}
	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return principal{}, errors.New("token has no subject")
	}
	return principal{ID: sub, Roles: claims.Roles}, nil
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireUser writes 401 and reports false for anonymous requests.
func requireUser(c *gin.Context, r Responder) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		r.Error(c, apperr.Unauthorized("Authentication required"))
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
