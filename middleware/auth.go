package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

var (
	// ErrInvalidToken is returned for malformed or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// TokenVerifier checks bearer tokens issued by the identity service and
// returns the principal they were issued to.
type TokenVerifier struct {
	key    []byte
	parser *jwt.Parser
}

// NewTokenVerifier returns a verifier for HS256 tokens signed with key.
func NewTokenVerifier(key string) *TokenVerifier {
	return &TokenVerifier{
		key: []byte(key),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates tokenString and returns its subject.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Authenticate resolves the principal from the Authorization header. A
// request without the header passes through anonymously; a request with a
// bad token is rejected with 401.
func Authenticate(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			unauthorized(c, "Authorization header must use the Bearer scheme.")
			return
		}

		principal, err := verifier.Verify(strings.TrimSpace(tokenString))
		if err != nil {
			log.Printf("[%s] rejected token: %v", GetRequestID(c), err)
			if errors.Is(err, ErrExpiredToken) {
				unauthorized(c, "Token is expired.")
			} else {
				unauthorized(c, "Given token is not valid.")
			}
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireAuth aborts anonymous requests with 403 before they reach a handler.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Principal(c); !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}
		c.Next()
	}
}

// Principal returns the authenticated principal of the request.
func Principal(c *gin.Context) (string, bool) {
	principal := c.GetString(principalKey)
	return principal, principal != ""
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}
