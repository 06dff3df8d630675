package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TranscriptCollection holds one document per answered question.
const TranscriptCollection = "transcripts"

// ConnectMongoDB returns nil, nil when no MONGO_URI is configured; the
// transcript recorder treats a nil client as disabled.
func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.MongoURI).
		SetAppName(cfg.ServiceName))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	// History reads filter by session and sort by time, newest first.
	_, err = client.Database(cfg.DBName).Collection(TranscriptCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("session_recent"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("transcript index: %w", err)
	}
	return client, nil
}
