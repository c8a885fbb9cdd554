package auth

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tutorbook/pkg/config"
	"tutorbook/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-length"

func TestIssueAndParse(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour)

	token, err := a.Issue("u1", config.RoleTeacher)
	require.NoError(t, err)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, config.RoleTeacher, claims.Role)
}

func TestParse_NormalisesRoleCase(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour)
	token, err := a.Issue("u1", config.Role("Admin"))
	require.NoError(t, err)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, config.RoleAdmin, claims.Role)
}

func TestParse_Rejects(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour)

	other, err := NewAuthenticator("another-secret-of-some-length", time.Hour).Issue("u1", config.RoleAdmin)
	require.NoError(t, err)
	_, err = a.Parse(other)
	assert.Error(t, err, "wrong secret")

	expired, err := NewAuthenticator(testSecret, -time.Minute).Issue("u1", config.RoleAdmin)
	require.NoError(t, err)
	_, err = a.Parse(expired)
	assert.Error(t, err, "expired")

	unknownRole, err := a.Issue("u1", config.Role("janitor"))
	require.NoError(t, err)
	_, err = a.Parse(unknownRole)
	assert.Error(t, err, "unknown role")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1", Role: config.RoleAdmin})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(unsigned)
	assert.Error(t, err, "alg none")
}

func TestAuthenticateAndRequireRoles(t *testing.T) {
	a := NewAuthenticator(testSecret, time.Hour)

	router := httprouter.New()
	router.GET("/admin", RequireRoles(logger.NewNop(), func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}, config.RoleAdmin))
	handler := Authenticate(a, logger.NewNop())(router)

	adminToken, _ := a.Issue("a1", config.RoleAdmin)
	studentToken, _ := a.Issue("s1", config.RoleStudent)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + studentToken, http.StatusForbidden},
		{"admin", "bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header {
	if b.header == nil {
		b.header = http.Header{}
	}
	return b.header
}

func (b *brokenWriter) WriteHeader(status int) { b.status = status }

func (b *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestRejections_LogWriteFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, Level: logger.ERROR})
	a := NewAuthenticator(testSecret, time.Hour)

	w := &brokenWriter{}
	Authenticate(a, log)(http.NotFoundHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.status)
	assert.Contains(t, buf.String(), "failed to write error response")
	assert.Contains(t, buf.String(), `"middleware":"Authenticate"`)

	buf.Reset()
	guarded := RequireRoles(log, func(http.ResponseWriter, *http.Request, httprouter.Params) {}, config.RoleAdmin)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "s1", Role: config.RoleStudent}))
	w = &brokenWriter{}
	guarded(w, req, nil)
	assert.Equal(t, http.StatusForbidden, w.status)
	assert.Contains(t, buf.String(), `"middleware":"RequireRoles"`)
}
