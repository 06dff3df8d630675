package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeoutHelpers(t *testing.T) {
	tests := []struct {
		name string
		wrap func(context.Context) (context.Context, context.CancelFunc)
		want time.Duration
	}{
		{"store", WithStoreTimeout, StoreTimeout},
		{"enqueue", WithEnqueueTimeout, EnqueueTimeout},
		{"document", WithDocumentTimeout, DocumentTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.wrap(context.Background())
			defer cancel()
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(tt.want), deadline, time.Second)
		})
	}
}

func TestWithCustomTimeoutNonPositive(t *testing.T) {
	ctx, cancel := WithCustomTimeout(context.Background(), 0)
	defer cancel()
	_, ok := ctx.Deadline()
	assert.False(t, ok)
}
