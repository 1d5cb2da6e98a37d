package utils

import (
	"net/http"

	"eventtts/globals"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetUserIDFromRequest returns the local user id placed in the context by the
// auth middleware, or the zero id.
func GetUserIDFromRequest(r *http.Request) primitive.ObjectID {
	hex, ok := r.Context().Value(globals.UserIDKey).(string)
	if !ok || hex == "" {
		return primitive.NilObjectID
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID
	}
	return id
}

func GetClerkIDFromRequest(r *http.Request) string {
	id, _ := r.Context().Value(globals.ClerkIDKey).(string)
	return id
}

// ParseObjectID reads a path or body id; ok is false on malformed input.
func ParseObjectID(s string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
