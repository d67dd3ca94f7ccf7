package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

var secret = []byte("test-secret")

func TestGenerateAndParseToken(t *testing.T) {
	owner := domain.Owner{ID: "u1", Email: "a@example.com", FirstName: "Alice", LastName: "Smith"}
	tok, err := GenerateToken(owner, secret, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	_, err = ParseToken(tok, []byte("other"))
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := GenerateToken(domain.Owner{ID: "u1"}, secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParseToken_MissingUserID(t *testing.T) {
	tok, err := GenerateToken(domain.Owner{}, secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(tok, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTAuth(t *testing.T) {
	var seen domain.Owner
	h := JWTAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tok, err := GenerateToken(domain.Owner{ID: "u1", Email: "a@example.com"}, secret, time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + tok, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/scan/my-scans", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Equal(t, "u1", seen.ID)
	assert.Equal(t, "a@example.com", seen.Email)
}
