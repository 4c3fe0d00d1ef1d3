package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rag4all/backend/internal/model/chat"
	"github.com/rag4all/backend/internal/model/settings"
)

var (
	// ErrEmptyContent rejects turns with no text at all.
	ErrEmptyContent = errors.New("message content is required")
	// ErrEmptyTitle rejects renames to a blank title.
	ErrEmptyTitle = errors.New("title is required")
)

// Service manages chat sessions and their transcripts on top of a Store.
type Service struct {
	store    chat.Store
	defaults settings.Settings
	now      func() time.Time
}

// NewService wires the session manager to a storage backend. The defaults
// are applied to every newly created session.
func NewService(store chat.Store, defaults settings.Settings) *Service {
	return &Service{
		store:    store,
		defaults: defaults,
		now:      time.Now,
	}
}

// CreateSession provisions a session. An empty title gets the original
// "New Chat <timestamp>" placeholder.
func (s *Service) CreateSession(ctx context.Context, title string) (chat.Session, error) {
	now := s.now().UTC()

	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Chat " + now.Format("2006-01-02 15:04")
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		Title:     title,
		Settings:  s.defaults,
		CreatedAt: now,
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return chat.Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// ListSessions returns all sessions, newest first.
func (s *Service) ListSessions(ctx context.Context) ([]chat.Session, error) {
	return s.store.ListSessions(ctx)
}

// UpdateSession applies a rename and/or a settings patch as one write. Both
// parts are validated before anything is persisted, so a rejected request
// leaves the session untouched.
func (s *Service) UpdateSession(ctx context.Context, sessionID string, title *string, patch *settings.Patch) (chat.Session, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return chat.Session{}, ErrEmptyTitle
		}
		session.Title = trimmed
	}

	if patch != nil {
		merged, err := session.Settings.Apply(*patch)
		if err != nil {
			return chat.Session{}, err
		}
		session.Settings = merged
	}

	if err := s.store.UpdateSession(ctx, session); err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

// RenameSession updates the session title.
func (s *Service) RenameSession(ctx context.Context, sessionID, title string) (chat.Session, error) {
	return s.UpdateSession(ctx, sessionID, &title, nil)
}

// UpdateSettings merges a settings patch into the session.
func (s *Service) UpdateSettings(ctx context.Context, sessionID string, patch settings.Patch) (chat.Session, error) {
	return s.UpdateSession(ctx, sessionID, nil, &patch)
}

// DeleteSession removes the session together with its transcript and
// documents.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

// AppendMessage validates the role and appends a turn to the transcript.
// The stored message is returned with its assigned ID and timestamp.
func (s *Service) AppendMessage(ctx context.Context, sessionID string, role chat.Role, content string) (chat.Message, error) {
	if !role.Valid() {
		return chat.Message{}, chat.ErrInvalidRole
	}
	if strings.TrimSpace(content) == "" {
		return chat.Message{}, ErrEmptyContent
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.AppendMessage(ctx, message); err != nil {
		return chat.Message{}, err
	}
	return message, nil
}

// Transcript returns the ordered messages of the session.
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.Transcript(ctx, sessionID)
}

// Reset clears the transcript. Resetting an already empty session is a
// no-op and succeeds.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	return s.store.ClearMessages(ctx, sessionID)
}
