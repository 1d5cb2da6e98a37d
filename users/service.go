// Package users mirrors accounts from the identity provider and keeps each
// user's liked events.
package users

import (
	"context"
	"fmt"

	"eventtts/events"
	"eventtts/models"
	"eventtts/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service struct {
	users  repository.UserStore
	store  repository.EventStore
	orders repository.OrderStore
	events *events.Service
	log    *zap.Logger
}

func NewService(stores repository.Stores, evs *events.Service, log *zap.Logger) *Service {
	if log == nil {
		log = zap.L()
	}
	return &Service{
		users:  stores.Users,
		store:  stores.Events,
		orders: stores.Orders,
		events: evs,
		log:    log,
	}
}

// ToggleLike flips eventID in the user's liked set and reports whether it is
// now liked.
func (s *Service) ToggleLike(ctx context.Context, userID, eventID primitive.ObjectID) (bool, error) {
	if _, err := s.store.FindEventByID(ctx, eventID); err != nil {
		return false, err
	}
	liked, err := s.users.ToggleLike(ctx, userID, eventID)
	if err != nil {
		return false, fmt.Errorf("toggle like: %w", err)
	}
	return liked, nil
}

// LikedEvents returns the user's liked events, populated. Events deleted
// since they were liked are skipped.
func (s *Service) LikedEvents(ctx context.Context, userID primitive.ObjectID) ([]models.EventView, error) {
	u, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.LikedEvents) == 0 {
		return []models.EventView{}, nil
	}
	return s.events.Views(ctx, u.LikedEvents)
}

func (s *Service) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.FindUserByID(ctx, id)
}

func (s *Service) GetByClerkID(ctx context.Context, clerkID string) (*models.User, error) {
	return s.users.FindUserByClerkID(ctx, clerkID)
}

// IDForClerk maps a token subject onto the local user id.
func (s *Service) IDForClerk(ctx context.Context, clerkID string) (primitive.ObjectID, error) {
	u, err := s.users.FindUserByClerkID(ctx, clerkID)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return u.ID, nil
}

// CreateUser inserts the account or refreshes it when the provider resends it.
func (s *Service) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	if u.ClerkID == "" {
		return nil, fmt.Errorf("%w: clerk id is required", models.ErrValidation)
	}
	saved, err := s.users.UpsertUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("upsert user %s: %w", u.ClerkID, err)
	}
	s.log.Info("user synced", zap.String("clerkId", u.ClerkID), zap.String("userId", saved.ID.Hex()))
	return saved, nil
}

func (s *Service) UpdateUser(ctx context.Context, clerkID string, upd models.UserUpdate) (*models.User, error) {
	return s.users.UpdateUserByClerkID(ctx, clerkID, upd)
}

// DeleteUser removes the account together with the events it organized and
// the orders it placed.
func (s *Service) DeleteUser(ctx context.Context, clerkID string) error {
	u, err := s.users.FindUserByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}
	n, err := s.events.DeleteByOrganizer(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("delete events of %s: %w", clerkID, err)
	}
	if err := s.orders.DeleteOrdersByBuyer(ctx, u.ID); err != nil {
		return fmt.Errorf("delete orders of %s: %w", clerkID, err)
	}
	if _, err := s.users.DeleteUserByClerkID(ctx, clerkID); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("clerkId", clerkID), zap.Int("events", n))
	return nil
}
