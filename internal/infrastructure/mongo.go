package infrastructure

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoStore struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoStore(ctx context.Context, uri, name string) (*MongoStore, error) {
	opts := options.Client().ApplyURI(uri)
	if deadline, ok := ctx.Deadline(); ok {
		// Ping waits for server selection; keep it inside the caller's deadline.
		opts.SetServerSelectionTimeout(timeUntil(deadline))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to create client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &MongoStore{Client: client, Database: client.Database(name)}, nil
}

func (m *MongoStore) Driver() string { return "mongodb" }

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *MongoStore) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func timeUntil(deadline time.Time) time.Duration {
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}
