package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
	"vlmax-platform/services"
)

const (
	TaskProcessDocument = "document:process"

	QueueDocuments = "documents"
)

type DocumentProcessPayload struct {
	FilePath   string    `json:"file_path"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// NewDocumentProcessTask builds a pipeline task. A failed run is not
// retried: re-running would repeat every model call.
func NewDocumentProcessTask(filePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentProcessPayload{
		FilePath:   filePath,
		UploadedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskProcessDocument,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Queue(QueueDocuments),
	), nil
}

// DocumentProcessor is satisfied by services.DocumentPipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, inputPath string) (*services.RunContext, error)
}

type TaskProcessor struct {
	pipeline DocumentProcessor
}

func NewTaskProcessor(pipeline DocumentProcessor) *TaskProcessor {
	return &TaskProcessor{pipeline: pipeline}
}

func (p *TaskProcessor) ProcessDocument(ctx context.Context, t *asynq.Task) error {
	var payload DocumentProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	log := logger.With("task", t.Type(), "file", payload.FilePath)
	log.Info("Processing document", "queued_for", time.Since(payload.UploadedAt).String())

	run, err := p.pipeline.Process(ctx, payload.FilePath)
	if err != nil {
		if errors.Is(err, models.ErrFileNotFound) || errors.Is(err, models.ErrUnsupportedFormat) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.Info("Document processed", "pages", run.Pages, "tables", run.Tables())
	return nil
}

// Enqueuer submits documents to the worker.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

func (e *Enqueuer) EnqueueDocument(ctx context.Context, filePath string) (string, error) {
	task, err := NewDocumentProcessTask(filePath)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", filePath, err)
	}
	return info.ID, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}
