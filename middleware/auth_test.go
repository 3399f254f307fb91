package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, key string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func validClaims(subject string) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
	}
}

func TestTokenVerifier_Verify(t *testing.T) {
	verifier := NewTokenVerifier(testKey)

	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := validClaims("user-1")
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr error
	}{
		{
			name:  "valid token",
			token: signToken(t, testKey, jwt.SigningMethodHS256, validClaims("user-1")),
			want:  "user-1",
		},
		{
			name:    "expired token",
			token:   signToken(t, testKey, jwt.SigningMethodHS256, expired),
			wantErr: ErrExpiredToken,
		},
		{
			name:    "wrong key",
			token:   signToken(t, "other-key", jwt.SigningMethodHS256, validClaims("user-1")),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong algorithm",
			token:   signToken(t, testKey, jwt.SigningMethodHS512, validClaims("user-1")),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing subject",
			token:   signToken(t, testKey, jwt.SigningMethodHS256, validClaims("")),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "missing expiry",
			token:   signToken(t, testKey, jwt.SigningMethodHS256, noExpiry),
			wantErr: ErrInvalidToken,
		},
		{
			name:    "garbage",
			token:   "not.a.valid.token",
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := verifier.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Authenticate(NewTokenVerifier(testKey)))
	r.GET("/open", func(c *gin.Context) {
		p, _ := Principal(c)
		c.String(http.StatusOK, p)
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		p, _ := Principal(c)
		c.String(http.StatusOK, p)
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name           string
		path           string
		authHeader     string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "anonymous on open route",
			path:           "/open",
			expectedStatus: http.StatusOK,
			expectedBody:   "",
		},
		{
			name:           "anonymous on private route",
			path:           "/private",
			expectedStatus: http.StatusForbidden,
			expectedBody:   "Authentication credentials were not provided.",
		},
		{
			name:           "valid bearer token",
			path:           "/private",
			authHeader:     "Bearer " + signToken(t, testKey, jwt.SigningMethodHS256, validClaims("user-1")),
			expectedStatus: http.StatusOK,
			expectedBody:   "user-1",
		},
		{
			name:           "lowercase scheme",
			path:           "/private",
			authHeader:     "bearer " + signToken(t, testKey, jwt.SigningMethodHS256, validClaims("user-2")),
			expectedStatus: http.StatusOK,
			expectedBody:   "user-2",
		},
		{
			name:           "basic scheme",
			path:           "/private",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Bearer scheme",
		},
		{
			name:           "bearer without token",
			path:           "/private",
			authHeader:     "Bearer ",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Bearer scheme",
		},
		{
			name:           "expired token",
			path:           "/private",
			authHeader:     "Bearer " + signToken(t, testKey, jwt.SigningMethodHS256, expired),
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Token is expired.",
		},
		{
			name:           "bad token on open route",
			path:           "/open",
			authHeader:     "Bearer garbage",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   "Given token is not valid.",
		},
	}

	router := newTestRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req = httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
