package repository

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig carries the connection settings for the products and
// purchases collections. Zero values fall back to service defaults.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	SelectTimeout  time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

func (c MongoConfig) withDefaults() MongoConfig {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.SelectTimeout == 0 {
		c.SelectTimeout = 5 * time.Second
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = 50
	}
	return c
}

// ConnectMongoDB dials the cluster and verifies the primary is reachable
// before any store is built on top of it.
func ConnectMongoDB(ctx context.Context, cfg MongoConfig) (*mongo.Database, error) {
	cfg = cfg.withDefaults()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.SelectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.WithFields(log.Fields{
		"database":      cfg.Database,
		"max_pool_size": cfg.MaxPoolSize,
	}).Info("MongoDB connection established")

	return client.Database(cfg.Database), nil
}
