package memdb

import (
	"context"
	"fmt"
	"slices"
	"time"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func cloneUser(u *models.User) *models.User {
	out := *u
	out.LikedEvents = cloneIDs(u.LikedEvents)
	return &out
}

func (d *DB) userByClerkLocked(clerkID string) *models.User {
	for _, u := range d.users {
		if u.ClerkID == clerkID {
			return u
		}
	}
	return nil
}

func (d *DB) UpsertUser(_ context.Context, u *models.User) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	existing := d.userByClerkLocked(u.ClerkID)
	if existing == nil {
		existing = &models.User{
			ID:          primitive.NewObjectID(),
			ClerkID:     u.ClerkID,
			LikedEvents: []primitive.ObjectID{},
			CreatedAt:   now,
		}
		d.users[existing.ID] = existing
	}
	existing.Email = u.Email
	existing.Username = u.Username
	existing.FirstName = u.FirstName
	existing.LastName = u.LastName
	existing.Photo = u.Photo
	existing.UpdatedAt = now
	return cloneUser(existing), nil
}

func (d *DB) FindUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id.Hex(), models.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (d *DB) FindUserByClerkID(_ context.Context, clerkID string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.userByClerkLocked(clerkID)
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", clerkID, models.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (d *DB) FindUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (d *DB) UpdateUserByClerkID(_ context.Context, clerkID string, upd models.UserUpdate) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.userByClerkLocked(clerkID)
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", clerkID, models.ErrNotFound)
	}
	if upd.Username != nil {
		u.Username = *upd.Username
	}
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.Photo != nil {
		u.Photo = *upd.Photo
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	u.UpdatedAt = time.Now()
	return cloneUser(u), nil
}

func (d *DB) DeleteUserByClerkID(_ context.Context, clerkID string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u := d.userByClerkLocked(clerkID)
	if u == nil {
		return nil, fmt.Errorf("user %s: %w", clerkID, models.ErrNotFound)
	}
	delete(d.users, u.ID)
	return u, nil
}

func (d *DB) ToggleLike(_ context.Context, userID, eventID primitive.ObjectID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return false, fmt.Errorf("user %s: %w", userID.Hex(), models.ErrNotFound)
	}
	if i := slices.Index(u.LikedEvents, eventID); i >= 0 {
		u.LikedEvents = slices.Delete(u.LikedEvents, i, i+1)
		return false, nil
	}
	u.LikedEvents = append(u.LikedEvents, eventID)
	return true, nil
}

func (d *DB) PullLikedEvents(_ context.Context, eventIDs []primitive.ObjectID) error {
	gone := idSet(eventIDs)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		u.LikedEvents = slices.DeleteFunc(u.LikedEvents, func(id primitive.ObjectID) bool { return gone[id] })
	}
	return nil
}
