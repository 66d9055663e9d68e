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

func serveAdmin(secret, authHeader string) (*httptest.ResponseRecorder, *AdminClaims) {
	var seen *AdminClaims
	handler := AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := AdminClaimsFromContext(r.Context()); ok {
			seen = &claims
		}
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestAdminJWT_MissingSecret(t *testing.T) {
	rec, _ := serveAdmin("", "Bearer anything")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWT_MissingHeader(t *testing.T) {
	rec, _ := serveAdmin("secret", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWT_WrongSecret(t *testing.T) {
	token, err := IssueAdminToken("wrong", "ops", time.Minute, time.Now())
	require.NoError(t, err)

	rec, _ := serveAdmin("secret", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWT_Expired(t *testing.T) {
	token, err := IssueAdminToken("secret", "ops", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	rec, _ := serveAdmin("secret", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWT_RequiresAdminRole(t *testing.T) {
	claims := AdminClaims{
		Role: "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	rec, _ := serveAdmin("secret", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminJWT_ValidToken(t *testing.T) {
	token, err := IssueAdminToken("secret", "ops", 5*time.Minute, time.Now())
	require.NoError(t, err)

	rec, claims := serveAdmin("secret", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "ops", claims.Subject)
	assert.Equal(t, AdminRole, claims.Role)
}

func TestIssueAdminToken_RequiresSecret(t *testing.T) {
	_, err := IssueAdminToken("", "ops", time.Minute, time.Now())
	assert.Error(t, err)
}
