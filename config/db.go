package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	db     *mongo.Database
	client *mongo.Client
	once   sync.Once
	dbErr  error
)

// ErrMongoURIMissing is returned when MONGODB_URI is not configured.
var ErrMongoURIMissing = errors.New("please define the MONGODB_URI environment variable")

// ConnectDB initializes and returns a MongoDB database connection
func ConnectDB(cfg *Config) (*mongo.Database, error) {
	once.Do(func() {
		if cfg.MongoURI == "" {
			dbErr = ErrMongoURIMissing
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			dbErr = fmt.Errorf("failed to connect to MongoDB: %w", err)
			return
		}
		if err := c.Ping(ctx, nil); err != nil {
			dbErr = fmt.Errorf("failed to ping MongoDB: %w", err)
			return
		}

		log.Info("Connected to MongoDB!")

		client = c
		db = client.Database(cfg.MongoDatabase)
	})

	return db, dbErr
}

// DisconnectDB closes the shared client, if any.
func DisconnectDB(ctx context.Context) error {
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
