package utils

import (
	"context"
	"time"
)

const (
	// DocumentTimeout bounds one inline pipeline run triggered over HTTP.
	DocumentTimeout = 30 * time.Minute

	// EnqueueTimeout bounds the redis round trip that hands a document to the worker.
	EnqueueTimeout = 5 * time.Second

	// StoreTimeout bounds per-request redis lookups such as rate-limit counters.
	StoreTimeout = 2 * time.Second
)

func WithDocumentTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DocumentTimeout)
}

func WithEnqueueTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, EnqueueTimeout)
}

func WithStoreTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, StoreTimeout)
}

// WithCustomTimeout applies duration as a deadline; a non-positive duration
// only adds cancellation.
func WithCustomTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, duration)
}
