package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"vlmax-platform/internal/ai"
	"vlmax-platform/internal/logger"
	"vlmax-platform/models"
)

const systemPromptTemplate = "You are a helpful AI assistant analyzing an HTML table. The table is provided below:\n\n" +
	"```html\n%s\n```\n\n" +
	"Prioritize answering questions based *only* on the information in this table. " +
	"However, also pay attention to the entire conversation history. " +
	"If the user asks a question not related to the table (e.g., asks you to remember their name or asks about previous turns), " +
	"use the conversation history to answer. " +
	"If the answer cannot be found in the table or the conversation history, say so politely."

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>\s*`)

// SystemPrompt embeds the table into the assistant instructions.
func SystemPrompt(tableHTML string) string {
	return fmt.Sprintf(systemPromptTemplate, tableHTML)
}

// StripThinking removes <think>...</think> reasoning blocks and trims the
// remaining answer.
func StripThinking(answer string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(answer, ""))
}

type clientIPKey struct{}

// WithClientIP attaches the caller address recorded in transcripts.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// ChatService answers questions about a table, keeping one bounded
// conversation per session.
type ChatService struct {
	completer   ai.ChatCompleter
	sessions    SessionStore
	transcripts *TranscriptRecorder
	maxTurns    int

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock serializes requests of one session. refs counts requests that
// hold or wait for mu; the entry leaves the map only at zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewChatService(completer ai.ChatCompleter, sessions SessionStore, transcripts *TranscriptRecorder, maxTurns int) *ChatService {
	return &ChatService{
		completer:   completer,
		sessions:    sessions,
		transcripts: transcripts,
		maxTurns:    maxTurns,
		locks:       make(map[string]*sessionLock),
	}
}

func (s *ChatService) acquire(sessionID string) *sessionLock {
	s.mu.Lock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		s.locks[sessionID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return lock
}

func (s *ChatService) release(sessionID string, lock *sessionLock) {
	lock.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	lock.refs--
	if lock.refs == 0 && s.locks[sessionID] == lock {
		delete(s.locks, sessionID)
	}
}

// ForgetSession drops the lock entry of an evicted session when no request
// references it.
func (s *ChatService) ForgetSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lock, ok := s.locks[sessionID]; ok && lock.refs == 0 {
		delete(s.locks, sessionID)
	}
}

// Ask answers question against tableHTML using the session's history. The
// history only grows when the completion succeeds.
func (s *ChatService) Ask(ctx context.Context, sessionID, question, tableHTML string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question: %w", models.ErrInputMissing)
	}
	if strings.TrimSpace(tableHTML) == "" {
		return "", fmt.Errorf("table: %w", models.ErrInputMissing)
	}

	lock := s.acquire(sessionID)
	defer s.release(sessionID, lock)

	conv, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load session %s: %w", sessionID, err)
	}

	turns := make([]models.Turn, 0, len(conv.Turns)+2)
	turns = append(turns, models.Turn{Role: models.RoleSystem, Content: SystemPrompt(tableHTML)})
	turns = append(turns, conv.Turns...)
	turns = append(turns, models.Turn{Role: models.RoleUser, Content: question})

	start := time.Now()
	raw, err := s.completer.Complete(ctx, turns)
	if err != nil {
		logger.Error("Chat completion failed", "session_id", sessionID, "error", err)
		return "", fmt.Errorf("chat completion: %w: %w", models.ErrModelError, err)
	}
	answer := StripThinking(raw)
	latency := time.Since(start)

	conv.Append(s.maxTurns,
		models.Turn{Role: models.RoleUser, Content: question},
		models.Turn{Role: models.RoleAssistant, Content: answer},
	)
	if err := s.sessions.Save(ctx, conv); err != nil {
		logger.Error("Failed to save session", "session_id", sessionID, "error", err)
	}

	s.transcripts.Record(ctx, models.Message{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
		LatencyMS: latency.Milliseconds(),
		UserIP:    clientIP(ctx),
	})

	logger.Info("Question answered", "session_id", sessionID, "turns", len(conv.Turns), "latency_ms", latency.Milliseconds())
	return answer, nil
}

// History returns the stored turns of a session.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	conv, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if conv.Turns == nil {
		return []models.Turn{}, nil
	}
	return conv.Turns, nil
}
