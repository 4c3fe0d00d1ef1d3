package chat

import (
	"context"
	"errors"
)

// ErrSessionNotFound signals an unknown session identifier.
var ErrSessionNotFound = errors.New("session not found")

// Store abstracts session and transcript persistence so the service can run
// against either the in-memory store or SQLite.
type Store interface {
	CreateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, sessionID string) (Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	UpdateSession(ctx context.Context, session Session) error
	DeleteSession(ctx context.Context, sessionID string) error

	AppendMessage(ctx context.Context, message Message) error
	Transcript(ctx context.Context, sessionID string) ([]Message, error)
	ClearMessages(ctx context.Context, sessionID string) error
}
