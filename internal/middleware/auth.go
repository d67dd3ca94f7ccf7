package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domain "github.com/bryanwahyu/brainscan/internal/domain/scans"
)

type contextKey string

const OwnerKey contextKey = "owner"

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the caller identity. The token is issued elsewhere; this
// service only verifies it.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (c Claims) Owner() domain.Owner {
	return domain.Owner{ID: c.UserID, Email: c.Email, FirstName: c.FirstName, LastName: c.LastName}
}

// GenerateToken signs an HS256 token for owner, valid for ttl.
func GenerateToken(owner domain.Owner, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    owner.ID,
		Email:     owner.Email,
		FirstName: owner.FirstName,
		LastName:  owner.LastName,
	})
	return token.SignedString(secret)
}

// ParseToken verifies tokenString and returns the owner it names.
func ParseToken(tokenString string, secret []byte) (domain.Owner, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Owner{}, err
	}
	if !token.Valid || strings.TrimSpace(claims.UserID) == "" {
		return domain.Owner{}, ErrInvalidToken
	}
	return claims.Owner(), nil
}

// JWTAuth validates the bearer token and stores the owner in the context.
func JWTAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}

			tokenString := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if tokenString == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			owner, err := ParseToken(tokenString, secret)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := WithOwner(r.Context(), owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithOwner(ctx context.Context, owner domain.Owner) context.Context {
	return context.WithValue(ctx, OwnerKey, owner)
}

// OwnerFromContext extracts the authenticated owner from context
func OwnerFromContext(ctx context.Context) (domain.Owner, bool) {
	owner, ok := ctx.Value(OwnerKey).(domain.Owner)
	return owner, ok
}
