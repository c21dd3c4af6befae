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

	"github.com/campushub/college-admin-api/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func studentClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:     "s1",
		Role:       models.RoleStudent,
		Email:      "s1@college.edu",
		ClassGroup: "CS-3A",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestTokenVerifier(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "", "")

	claims, err := verifier.Verify(signToken(t, studentClaims()))
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "CS-3A", claims.ClassGroup)
}

func TestTokenVerifierExpired(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "", "")

	claims := studentClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	_, err := verifier.Verify(signToken(t, claims))
	require.Error(t, err)
}

func TestTokenVerifierWrongSecret(t *testing.T) {
	verifier := NewTokenVerifier("other-secret", "", "")

	_, err := verifier.Verify(signToken(t, studentClaims()))
	require.Error(t, err)
}

func TestTokenVerifierUnknownRole(t *testing.T) {
	verifier := NewTokenVerifier(testSecret, "", "")

	claims := studentClaims()
	claims.Role = "JANITOR"
	_, err := verifier.Verify(signToken(t, claims))
	require.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier := NewTokenVerifier(testSecret, "", "")

	r := gin.New()
	r.GET("/protected", JWT(verifier), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, studentClaims()))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier := NewTokenVerifier(testSecret, "", "")

	r := gin.New()
	r.POST("/admin-only", JWT(verifier), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, studentClaims()))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminClaims := studentClaims()
	adminClaims.UserID = "a1"
	adminClaims.Role = models.RoleAdmin

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, adminClaims))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
