package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adminRequest(t *testing.T, secret, token string, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	if next == nil {
		next = func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	}
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	AdminJWT(secret)(next).ServeHTTP(rec, req)
	return rec
}

func signedAdminToken(t *testing.T, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func expiringClaims() jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   "admin-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
}

func TestAdminJWTMissingSecret(t *testing.T) {
	rec := adminRequest(t, "", signedAdminToken(t, "whatever", expiringClaims()), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTMissingHeader(t *testing.T) {
	rec := adminRequest(t, "secret", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTWrongSecret(t *testing.T) {
	rec := adminRequest(t, "secret", signedAdminToken(t, "wrong", expiringClaims()), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTRejectsTokenWithoutExpiry(t *testing.T) {
	token := signedAdminToken(t, "secret", jwt.RegisteredClaims{Subject: "admin-user"})
	rec := adminRequest(t, "secret", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWTValidToken(t *testing.T) {
	called := false
	rec := adminRequest(t, "secret", signedAdminToken(t, "secret", expiringClaims()), func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := AdminClaimsFromContext(r.Context())
		assert.True(t, ok, "expected admin claims in context")
		assert.Equal(t, "admin-user", claims.Subject)
		assert.Equal(t, "admin-user", AdminSubject(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	assert.True(t, called, "expected handler to be called")
	assert.Equal(t, http.StatusOK, rec.Code)
}
