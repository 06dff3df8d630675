package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"vlmax-platform/models"
	"vlmax-platform/services"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPipeline struct {
	err  error
	path string
}

func (s *stubPipeline) Process(_ context.Context, path string) (*services.RunContext, error) {
	s.path = path
	if s.err != nil {
		return nil, s.err
	}
	return services.NewRunContext("doc"), nil
}

func TestNewDocumentProcessTask(t *testing.T) {
	task, err := NewDocumentProcessTask("/srv/public/uploads/1-report.pdf")
	require.NoError(t, err)
	assert.Equal(t, TaskProcessDocument, task.Type())

	var payload DocumentProcessPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "/srv/public/uploads/1-report.pdf", payload.FilePath)
}

func TestProcessDocument(t *testing.T) {
	pipeline := &stubPipeline{}
	task, err := NewDocumentProcessTask("/tmp/in.png")
	require.NoError(t, err)

	require.NoError(t, NewTaskProcessor(pipeline).ProcessDocument(context.Background(), task))
	assert.Equal(t, "/tmp/in.png", pipeline.path)
}

func TestProcessDocumentSkipsRetryForBadInput(t *testing.T) {
	task, err := NewDocumentProcessTask("/tmp/in.txt")
	require.NoError(t, err)

	pipeline := &stubPipeline{err: fmt.Errorf("/tmp/in.txt: %w", models.ErrUnsupportedFormat)}
	err = NewTaskProcessor(pipeline).ProcessDocument(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	bad := asynq.NewTask(TaskProcessDocument, []byte("{not json"))
	err = NewTaskProcessor(pipeline).ProcessDocument(context.Background(), bad)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessDocumentModelErrorIsReturned(t *testing.T) {
	task, err := NewDocumentProcessTask("/tmp/in.png")
	require.NoError(t, err)

	pipeline := &stubPipeline{err: models.ErrModelError}
	err = NewTaskProcessor(pipeline).ProcessDocument(context.Background(), task)
	assert.ErrorIs(t, err, models.ErrModelError)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
