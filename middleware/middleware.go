package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"eventtts/globals"
	"eventtts/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// JWT claims. The subject is the identity provider's user id; older tokens
// carry it as userId instead.
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"userId"`
	jwt.RegisteredClaims
}

func (c *Claims) ClerkID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

// UserResolver maps a token subject onto the local user id.
type UserResolver interface {
	IDForClerk(ctx context.Context, clerkID string) (primitive.ObjectID, error)
}

type Auth struct {
	secret []byte
	users  UserResolver
}

func NewAuth(secret string, users UserResolver) *Auth {
	return &Auth{secret: []byte(secret), users: users}
}

// ValidateJWT parses an Authorization header value.
func (a *Auth) ValidateJWT(header string) (*Claims, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return nil, fmt.Errorf("invalid token format")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("unauthorized: %w", err)
	}
	if claims.ClerkID() == "" {
		return nil, fmt.Errorf("unauthorized: token has no subject")
	}
	return claims, nil
}

// identify returns r with the user's ids in its context.
func (a *Auth) identify(r *http.Request, claims *Claims) (*http.Request, error) {
	clerkID := claims.ClerkID()
	id, err := a.users.IDForClerk(r.Context(), clerkID)
	if err != nil {
		return nil, err
	}
	ctx := context.WithValue(r.Context(), globals.ClerkIDKey, clerkID)
	ctx = context.WithValue(ctx, globals.UserIDKey, id.Hex())
	return r.WithContext(ctx), nil
}

func (a *Auth) Authenticate(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			http.Error(w, "Missing token", http.StatusUnauthorized)
			return
		}
		claims, err := a.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		r2, err := a.identify(r, claims)
		if errors.Is(err, models.ErrNotFound) {
			// token is valid but the user webhook has not arrived yet
			http.Error(w, "Unknown user", http.StatusUnauthorized)
			return
		}
		if err != nil {
			zap.L().Error("resolve user", zap.String("clerkId", claims.ClerkID()), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		next(w, r2, ps)
	}
}

// OptionalAuth identifies the caller when a valid token is present and
// proceeds regardless.
func (a *Auth) OptionalAuth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if claims, err := a.ValidateJWT(r.Header.Get("Authorization")); err == nil {
			if r2, err := a.identify(r, claims); err == nil {
				r = r2
			}
		}
		next(w, r, ps)
	}
}
