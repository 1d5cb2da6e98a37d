package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collections groups every collection the app touches.
type Collections struct {
	Client     *mongo.Client
	Events     *mongo.Collection
	Categories *mongo.Collection
	Tags       *mongo.Collection
	Users      *mongo.Collection
	Orders     *mongo.Collection
	Reports    *mongo.Collection
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Collections, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	d := client.Database(database)
	return &Collections{
		Client:     client,
		Events:     d.Collection("events"),
		Categories: d.Collection("categories"),
		Tags:       d.Collection("tags"),
		Users:      d.Collection("users"),
		Orders:     d.Collection("orders"),
		Reports:    d.Collection("reports"),
	}, nil
}

func (c *Collections) Close(ctx context.Context) error {
	return c.Client.Disconnect(ctx)
}
