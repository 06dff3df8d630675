package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vlmax-platform/internal/logger"
	"vlmax-platform/models"

	"github.com/xuri/excelize/v2"
)

const (
	ExportFormatJSON  = "json"
	ExportFormatExcel = "excel"
)

// SessionExport is the downloadable form of one chat session.
type SessionExport struct {
	ExportInfo ExportInfo       `json:"export_info"`
	Turns      []models.Turn    `json:"turns"`
	Messages   []models.Message `json:"messages,omitempty"`
}

type ExportInfo struct {
	ExportDate time.Time `json:"export_date"`
	SessionID  string    `json:"session_id"`
	TurnCount  int       `json:"turn_count"`
	Format     string    `json:"format"`
}

// ExportService renders a session's history as JSON or an Excel workbook.
// Persisted transcripts are included when MongoDB is configured.
type ExportService struct {
	chat        *ChatService
	transcripts *TranscriptRecorder
}

func NewExportService(chat *ChatService, transcripts *TranscriptRecorder) *ExportService {
	return &ExportService{chat: chat, transcripts: transcripts}
}

// ExportSession returns the file body and its content type.
func (es *ExportService) ExportSession(ctx context.Context, sessionID, format string) ([]byte, string, error) {
	turns, err := es.chat.History(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}

	data := &SessionExport{
		ExportInfo: ExportInfo{
			ExportDate: time.Now(),
			SessionID:  sessionID,
			TurnCount:  len(turns),
			Format:     format,
		},
		Turns: turns,
	}

	if es.transcripts.Enabled() {
		messages, err := es.transcripts.History(ctx, sessionID, 500)
		if err != nil {
			logger.Warn("Transcript lookup failed, exporting turns only", "session_id", sessionID, "error", err)
		}
		data.Messages = messages
	}

	switch format {
	case ExportFormatJSON, "":
		body, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return body, "application/json", nil
	case ExportFormatExcel:
		body, err := exportExcel(data)
		if err != nil {
			return nil, "", err
		}
		return body, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	default:
		return nil, "", fmt.Errorf("export format %q: %w", format, models.ErrUnsupportedFormat)
	}
}

func exportExcel(data *SessionExport) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Error closing Excel file", "error", err)
		}
	}()

	sheetName := "Conversation"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := []interface{}{"#", "Role", "Content"}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, err
	}
	for i, turn := range data.Turns {
		row := []interface{}{i + 1, turn.Role, turn.Content}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, err
		}
	}

	if len(data.Messages) > 0 {
		transcriptSheet := "Transcript"
		if _, err := f.NewSheet(transcriptSheet); err != nil {
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
		headers := []interface{}{"Timestamp", "Question", "Answer", "Latency (ms)", "User IP"}
		if err := f.SetSheetRow(transcriptSheet, "A1", &headers); err != nil {
			return nil, err
		}
		for i, msg := range data.Messages {
			row := []interface{}{
				msg.Timestamp.Format("2006-01-02 15:04:05"),
				msg.Question,
				msg.Answer,
				msg.LatencyMS,
				msg.UserIP,
			}
			if err := f.SetSheetRow(transcriptSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
