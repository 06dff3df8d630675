package services

import (
	"context"
	"time"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TranscriptRecorder persists answered questions to MongoDB. A recorder
// built from a nil client does nothing.
type TranscriptRecorder struct {
	collection *mongo.Collection
}

func NewTranscriptRecorder(client *mongo.Client, dbName string) *TranscriptRecorder {
	if client == nil {
		return &TranscriptRecorder{}
	}
	return &TranscriptRecorder{collection: client.Database(dbName).Collection(config.TranscriptCollection)}
}

func (r *TranscriptRecorder) Enabled() bool {
	return r != nil && r.collection != nil
}

// Record inserts one message. Errors are logged, never returned: a
// transcript failure must not fail the answer.
func (r *TranscriptRecorder) Record(ctx context.Context, msg models.Message) {
	if !r.Enabled() {
		return
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, msg); err != nil {
		logger.Error("Failed to record transcript", "session_id", msg.SessionID, "error", err)
	}
}

// History returns the most recent messages of a session, oldest first.
func (r *TranscriptRecorder) History(ctx context.Context, sessionID string, limit int64) ([]models.Message, error) {
	if !r.Enabled() {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
