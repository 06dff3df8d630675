package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is a persisted question/answer exchange.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	Question  string             `bson:"question" json:"question"`
	Answer    string             `bson:"answer" json:"answer"`
	LatencyMS int64              `bson:"latency_ms" json:"latency_ms"`
	UserIP    string             `bson:"user_ip,omitempty" json:"user_ip,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
