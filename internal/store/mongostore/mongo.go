// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crackers-backend/internal/logger"
	"crackers-backend/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colUsers      = "users"
	colProducts   = "products"
	colCategories = "categories"
	colBundles    = "bundles"
	colGiftBoxes  = "giftboxes"
	colOrders     = "orders"
	colAdmins     = "admins"
)

type Options struct {
	URI         string
	Database    string
	MaxPoolSize uint64
}

// dial is swapped in tests to observe the client.
var dial = mongo.Connect

// Connect dials MongoDB, pings it, ensures indexes and returns the wired repositories.
// The client is disconnected when any step after dialing fails.
func Connect(ctx context.Context, opts Options) (*store.Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	client, err := dial(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	st, err := open(connectCtx, client, opts.Database)
	if err != nil {
		if derr := client.Disconnect(context.Background()); derr != nil {
			logger.WithModule("mongostore").WithError(derr).Warn("failed to disconnect after setup error")
		}
		return nil, err
	}
	return st, nil
}

func open(ctx context.Context, client *mongo.Client, database string) (*store.Store, error) {
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.WithModule("mongostore").WithField("database", database).Info("connected to MongoDB")

	db := client.Database(database)
	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}

	return &store.Store{
		Users:      &users{col: db.Collection(colUsers)},
		Products:   &products{col: db.Collection(colProducts)},
		Categories: &categories{col: db.Collection(colCategories)},
		Bundles:    &bundles{col: db.Collection(colBundles)},
		GiftBoxes:  &bundles{col: db.Collection(colGiftBoxes)},
		Orders:     &orders{col: db.Collection(colOrders)},
		Admins:     &admins{col: db.Collection(colAdmins)},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, nil)
		},
		Close: client.Disconnect,
	}, nil
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		colAdmins: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		},
		colCategories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		},
		colProducts: {
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colOrders: {
			{Keys: bson.D{{Key: "orderNumber", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
	for name, idx := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func matched(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
