package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User mirrors an account held by the identity provider. ClerkID is the
// provider's subject id and is what arrives in bearer tokens.
type User struct {
	ID          primitive.ObjectID   `json:"_id" bson:"_id,omitempty"`
	ClerkID     string               `json:"clerkId" bson:"clerkId"`
	Email       string               `json:"email" bson:"email"`
	Username    string               `json:"username" bson:"username"`
	FirstName   string               `json:"firstName" bson:"firstName"`
	LastName    string               `json:"lastName" bson:"lastName"`
	Photo       string               `json:"photo" bson:"photo"`
	LikedEvents []primitive.ObjectID `json:"likedEvents" bson:"likedEvents"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Photo:     u.Photo,
	}
}

// UserUpdate is the profile subset that can change after creation.
type UserUpdate struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Photo     *string `json:"photo,omitempty"`
	Email     *string `json:"email,omitempty"`
}
