package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventtts/models"
	"eventtts/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const secret = "test-secret"

type staticUsers map[string]primitive.ObjectID

func (s staticUsers) IDForClerk(_ context.Context, clerkID string) (primitive.ObjectID, error) {
	if id, ok := s[clerkID]; ok {
		return id, nil
	}
	return primitive.NilObjectID, fmt.Errorf("user %s: %w", clerkID, models.ErrNotFound)
}

func token(t *testing.T, key, subject string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	s, err := tok.SignedString([]byte(key))
	require.NoError(t, err)
	return "Bearer " + s
}

func echoUser(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := utils.GetUserIDFromRequest(r)
	if id.IsZero() {
		w.Write([]byte("anonymous"))
		return
	}
	w.Write([]byte(id.Hex()))
}

func TestAuthenticate(t *testing.T) {
	known := primitive.NewObjectID()
	auth := NewAuth(secret, staticUsers{"user_a": known})
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
		code   int
		body   string
	}{
		{"valid", token(t, secret, "user_a", future), http.StatusOK, known.Hex()},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong key", token(t, "other", "user_a", future), http.StatusUnauthorized, ""},
		{"expired", token(t, secret, "user_a", time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
		{"unknown user", token(t, secret, "user_b", future), http.StatusUnauthorized, ""},
		{"no bearer", "Token abc", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me/likes", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			auth.Authenticate(echoUser)(rec, req, nil)
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestOptionalAuthFallsThrough(t *testing.T) {
	known := primitive.NewObjectID()
	auth := NewAuth(secret, staticUsers{"user_a": known})

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	auth.OptionalAuth(echoUser)(rec, req, nil)
	assert.Equal(t, "anonymous", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/events", nil)
	req.Header.Set("Authorization", token(t, secret, "user_a", time.Now().Add(time.Hour)))
	rec = httptest.NewRecorder()
	auth.OptionalAuth(echoUser)(rec, req, nil)
	assert.Equal(t, known.Hex(), rec.Body.String())
}
