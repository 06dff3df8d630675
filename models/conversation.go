package models

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is a single chat message.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is the history of one chat session.
type Conversation struct {
	ID        string    `json:"id"`
	Turns     []Turn    `json:"turns"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Append adds turns and evicts the oldest ones so that at most maxTurns
// remain. Eviction removes whole user/assistant pairs.
func (c *Conversation) Append(maxTurns int, turns ...Turn) {
	c.Turns = append(c.Turns, turns...)
	if maxTurns > 0 && len(c.Turns) > maxTurns {
		drop := len(c.Turns) - maxTurns
		if drop%2 == 1 {
			drop++
		}
		if drop > len(c.Turns) {
			drop = len(c.Turns)
		}
		c.Turns = append([]Turn(nil), c.Turns[drop:]...)
	}
	c.UpdatedAt = time.Now()
}

type AskRequest struct {
	Question string `json:"question" form:"question"`
}

type AskResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id,omitempty"`
}
