package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`
	Key  string             `json:"-" bson:"key"`
}

type Tag struct {
	ID     primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	Name   string               `json:"name" bson:"name"`
	Key    string               `json:"-" bson:"key"`
	Events []primitive.ObjectID `json:"events" bson:"events"`
}

// TaxonomyKey is the case-insensitive identity of a category or tag name.
func TaxonomyKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
