package chat

import (
	"errors"
	"time"
)

// Role identifies the author of a transcript turn. The transcript only ever
// holds the two values below; anything else is rejected before it is recorded.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidRole signals a role outside the closed {user, assistant} set.
var ErrInvalidRole = errors.New("invalid message role")

// Valid reports whether the role is one of the recognized values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable turn of a session transcript.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
