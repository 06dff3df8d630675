package routes

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"vlmax-platform/internal/logger"
	"vlmax-platform/middleware"
	"vlmax-platform/models"
	"vlmax-platform/services"
	"vlmax-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TableSource provides the merged table HTML the chat answers about.
type TableSource interface {
	ReadMerged() (string, error)
}

func SetupAskRoutes(router *gin.Engine, chat *services.ChatService, exporter *services.ExportService, tables TableSource, modelTimeout time.Duration) {
	router.POST("/ask", handleAsk(chat, tables, modelTimeout))
	router.GET("/ask/history", handleHistory(chat))
	router.GET("/ask/export", handleExport(exporter))
}

func handleAsk(chat *services.ChatService, tables TableSource, modelTimeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(middleware.SessionIDHeader)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		c.Header(middleware.SessionIDHeader, sessionID)

		var req models.AskRequest
		if err := c.ShouldBind(&req); err != nil || req.Question == "" {
			utils.RespondWithBadRequest(c, "No question provided", nil)
			return
		}

		tableHTML, err := tables.ReadMerged()
		if err != nil && !errors.Is(err, models.ErrFileNotFound) {
			logger.Error("Failed to read merged tables", "error", err)
			utils.RespondWithInternalError(c, "Failed to load table data", nil)
			return
		}
		if tableHTML == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "input_missing", "No table data available", nil)
			return
		}

		ctx, cancel := utils.WithCustomTimeout(c.Request.Context(), modelTimeout)
		defer cancel()
		ctx = services.WithClientIP(ctx, c.ClientIP())

		answer, err := chat.Ask(ctx, sessionID, req.Question, tableHTML)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrModelError):
				utils.RespondWithDomainError(c, err, "Failed to get a response from the model")
			case errors.Is(err, models.ErrInputMissing):
				utils.RespondWithDomainError(c, err, "Question and table are required")
			default:
				logger.Error("Ask failed", "session_id", sessionID, "error", err)
				utils.RespondWithInternalError(c, "Failed to answer the question", nil)
			}
			return
		}

		c.JSON(http.StatusOK, models.AskResponse{Answer: answer, SessionID: sessionID})
	}
}

func handleHistory(chat *services.ChatService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(middleware.SessionIDHeader)
		if sessionID == "" {
			utils.RespondWithBadRequest(c, "X-Session-ID header required", nil)
			return
		}

		turns, err := chat.History(c.Request.Context(), sessionID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load session", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "turns": turns})
	}
}

func handleExport(exporter *services.ExportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(middleware.SessionIDHeader)
		if sessionID == "" {
			sessionID = c.Query("session_id")
		}
		if sessionID == "" {
			utils.RespondWithBadRequest(c, "session id required", nil)
			return
		}

		format := c.DefaultQuery("format", services.ExportFormatJSON)
		body, contentType, err := exporter.ExportSession(c.Request.Context(), sessionID, format)
		if err != nil {
			utils.RespondWithDomainError(c, err, "Export failed")
			return
		}

		ext := "json"
		if format == services.ExportFormatExcel {
			ext = "xlsx"
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="session-%s.%s"`, sessionID, ext))
		c.Data(http.StatusOK, contentType, body)
	}
}
