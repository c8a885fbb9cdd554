// Package testutil connects repository tests to a real MongoDB. Tests that use it are
// skipped unless TEST_MONGO_URI is set.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	migrations "tutorbook/internal/migrations/mongo"
	"tutorbook/pkg/client"
	"tutorbook/pkg/config"
	"tutorbook/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	EnvMongoURI       = "TEST_MONGO_URI"
	ConnectionTimeout = 10 * time.Second
)

type MongoHelper struct {
	Client   *mongo.Client
	Database *mongo.Database
	DBName   string
}

// NewMongoHelper connects to TEST_MONGO_URI, migrates a fresh per-test database and
// drops it when the test ends.
func NewMongoHelper(t *testing.T) *MongoHelper {
	t.Helper()

	uri := os.Getenv(EnvMongoURI)
	if uri == "" {
		t.Skipf("%s not set", EnvMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), ConnectionTimeout)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := c.Ping(ctx, nil); err != nil {
		t.Fatalf("failed to ping MongoDB: %v", err)
	}

	dbName := fmt.Sprintf("tutorbook_test_%d", time.Now().UnixNano())
	h := &MongoHelper{
		Client:   c,
		Database: c.Database(dbName),
		DBName:   dbName,
	}

	if err := migrations.RunMigration(ctx, c, dbName, logger.NewNop()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { h.Close(t) })
	return h
}

// Config returns a config whose repositories point at the test database.
func (m *MongoHelper) Config() *config.Config {
	return &config.Config{
		MongoDatabaseName: m.DBName,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      5 * time.Second,
		BookingLockTTL:    30 * time.Second,
		Log:               logger.NewNop(),
		Client:            &client.Client{Mongo: m.Client},
	}
}

func (m *MongoHelper) Close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Database.Drop(ctx); err != nil {
		t.Logf("warning: failed to drop %s: %v", m.DBName, err)
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		t.Logf("warning: failed to disconnect from MongoDB: %v", err)
	}
}

func (m *MongoHelper) CountDocuments(t *testing.T, collectionName string, filter bson.M) int64 {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if filter == nil {
		filter = bson.M{}
	}
	count, err := m.Database.Collection(collectionName).CountDocuments(ctx, filter)
	if err != nil {
		t.Fatalf("failed to count documents in %s: %v", collectionName, err)
	}
	return count
}
