// Package mongo opens the document database that holds verification records.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"jojo/internal/platform/config"
)

// Client pairs a connected driver client with the configured database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	timeout  time.Duration
}

// Connect dials and pings MongoDB. Returns (nil, nil) when no URI is set.
func Connect(ctx context.Context, cfg config.Mongo) (*Client, error) {
	if cfg.URI == "" {
		return nil, nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetAppName("instructor-verification")

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Client{client: client, database: client.Database(cfg.Database), timeout: timeout}, nil
}

func (c *Client) Database() *mongo.Database {
	return c.database
}

// Health pings the primary.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
