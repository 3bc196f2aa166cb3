package testutils

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"remindly/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FixedTime returns a clock that always reports t.
func FixedTime(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// SetupTestRedis starts an in-process Redis server that is torn down with the test.
func SetupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

// SetupTestDB connects to MONGO_TEST_URI and hands out a throwaway database.
// The test is skipped when no URI is set.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(utils.GetEnvAsUint64("MONGO_MAX_POOL_SIZE", 10)).
		SetMaxConnIdleTime(time.Duration(utils.GetEnvAsInt("MONGO_MAX_CONN_IDLE_TIME", 60)) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		t.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		t.Fatalf("Failed to ping MongoDB: %v", err)
	}

	db := client.Database(fmt.Sprintf("remindly_test_%s", uuid.NewString()[:8]))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := db.Drop(ctx); err != nil {
			t.Logf("Warning: Failed to drop test database %s: %v", db.Name(), err)
		}
		if err := client.Disconnect(ctx); err != nil {
			t.Logf("Warning: Failed to disconnect: %v", err)
		}
	})

	return db
}
