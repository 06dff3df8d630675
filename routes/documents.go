package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
	"vlmax-platform/services"
	"vlmax-platform/utils"

	"github.com/gin-gonic/gin"
)

// DocumentProcessor runs the table pipeline on a saved upload.
type DocumentProcessor interface {
	Process(ctx context.Context, inputPath string) (*services.RunContext, error)
}

// DocumentEnqueuer hands a saved upload to the background worker.
type DocumentEnqueuer interface {
	EnqueueDocument(ctx context.Context, filePath string) (string, error)
}

type DocumentSummary struct {
	File   string `json:"file"`
	Pages  int    `json:"pages"`
	Tables int    `json:"tables"`
	TaskID string `json:"task_id,omitempty"`
}

// SetupDocumentRoutes registers upload, results and cleanup endpoints under
// /api. enqueuer may be nil, in which case uploads are processed inline.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, pipeline DocumentProcessor, enqueuer DocumentEnqueuer, store *services.ArtifactStore, cleaner *services.Cleaner) {
	api := router.Group("/api")
	api.POST("/upload", handleUpload(cfg, pipeline, enqueuer, store))
	api.GET("/clean", handleClean(cleaner))
	api.GET("/results", handleResults(store))
	api.GET("/results/html", handleMergedHTML(store))
}

func handleUpload(cfg *config.Config, pipeline DocumentProcessor, enqueuer DocumentEnqueuer, store *services.ArtifactStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form", nil)
			return
		}
		files := form.File["files"]
		if len(files) == 0 {
			utils.RespondWithBadRequest(c, "No files provided", nil)
			return
		}

		if err := store.EnsureDirs(); err != nil {
			logger.Error("Failed to prepare upload dirs", "error", err)
			utils.RespondWithInternalError(c, "Failed to prepare storage", nil)
			return
		}

		var saved []string
		for _, header := range files {
			if header.Size > cfg.MaxFileSize {
				utils.RespondWithError(c, http.StatusRequestEntityTooLarge, "file_too_large",
					fmt.Sprintf("%s exceeds maximum size", header.Filename), nil)
				return
			}
			name := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), filepath.Base(header.Filename))
			dst := filepath.Join(cfg.UploadsDir, name)
			if err := c.SaveUploadedFile(header, dst); err != nil {
				logger.Error("Failed to save upload", "file", header.Filename, "error", err)
				utils.RespondWithInternalError(c, "Failed to save file", nil)
				return
			}
			logger.Info("Upload saved", "file", dst, "size", header.Size)
			saved = append(saved, dst)
		}

		summaries := make([]DocumentSummary, 0, len(saved))

		if enqueuer != nil {
			for _, path := range saved {
				ctx, cancel := utils.WithEnqueueTimeout(c.Request.Context())
				taskID, err := enqueuer.EnqueueDocument(ctx, path)
				cancel()
				if err != nil {
					logger.Error("Failed to enqueue document", "file", path, "error", err)
					utils.RespondWithInternalError(c, "Failed to queue document", nil)
					return
				}
				summaries = append(summaries, DocumentSummary{File: filepath.Base(path), TaskID: taskID})
			}
			c.JSON(http.StatusAccepted, gin.H{"success": true, "documents": summaries})
			return
		}

		ctx, cancel := utils.WithDocumentTimeout(c.Request.Context())
		defer cancel()

		for _, path := range saved {
			run, err := pipeline.Process(ctx, path)
			if err != nil {
				logger.Error("Pipeline failed", "file", path, "error", err)
				utils.RespondWithDomainError(c, err, fmt.Sprintf("Failed to process %s", filepath.Base(path)))
				return
			}
			summaries = append(summaries, DocumentSummary{
				File:   filepath.Base(path),
				Pages:  run.Pages,
				Tables: run.Tables(),
			})
		}

		results, err := store.ReadIndex()
		if err != nil {
			utils.RespondWithDomainError(c, err, "Failed to read results")
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "results": results, "documents": summaries})
	}
}

func handleClean(cleaner *services.Cleaner) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := cleaner.Run()
		if err != nil {
			utils.RespondWithInternalError(c, "Cleanup failed", report)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Success", "files_removed": len(report.FilesRemoved)})
	}
}

func handleResults(store *services.ArtifactStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := store.ReadIndex()
		if err != nil {
			if errors.Is(err, models.ErrFileNotFound) {
				utils.RespondWithNotFound(c, "No results yet")
				return
			}
			utils.RespondWithInternalError(c, "Failed to read results", nil)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func handleMergedHTML(store *services.ArtifactStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		merged, err := store.ReadMerged()
		if err != nil {
			if errors.Is(err, models.ErrFileNotFound) {
				utils.RespondWithNotFound(c, "No results yet")
				return
			}
			utils.RespondWithInternalError(c, "Failed to read results", nil)
			return
		}

		data := []byte(merged)
		algorithm := utils.NegotiateCompression(c.GetHeader("Accept-Encoding"), len(data))
		body, err := utils.CompressData(data, algorithm)
		if err != nil {
			logger.Warn("Compression failed, sending plain html", "error", err)
			body, algorithm = data, utils.CompressionNone
		}

		c.Header("Vary", "Accept-Encoding")
		if algorithm != utils.CompressionNone {
			c.Header("Content-Encoding", string(algorithm))
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", body)
	}
}
