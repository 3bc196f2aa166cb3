package utils

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoClient is the process-wide MongoDB client, set by ConnectMongo.
var MongoClient *mongo.Client

// ConnectMongo dials MongoDB, verifies the primary answers and stores the client globally.
func ConnectMongo(ctx context.Context, clientOptions *options.ClientOptions) (*mongo.Client, error) {
	clientOptions.SetPoolMonitor(NewPoolMonitor())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	Info("connected to MongoDB", zap.Strings("hosts", clientOptions.Hosts))
	MongoClient = client
	return client, nil
}

// PingMongo reports whether the global client can reach the primary.
func PingMongo(ctx context.Context) error {
	if MongoClient == nil {
		return fmt.Errorf("mongo client not initialised")
	}
	return MongoClient.Ping(ctx, readpref.Primary())
}

func DisconnectMongo(ctx context.Context) {
	if MongoClient == nil {
		return
	}
	if err := MongoClient.Disconnect(ctx); err != nil {
		Error("failed to disconnect MongoDB", err)
	}
}
