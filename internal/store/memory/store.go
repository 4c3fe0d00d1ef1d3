package memory

import (
	"context"
	"sync"

	"github.com/rag4all/backend/internal/model/chat"
	"github.com/rag4all/backend/internal/model/document"
)

// Store keeps sessions, transcripts and document chunks in process memory.
// It backs the server when no database path is configured, so conversations
// live exactly as long as the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	order    []string
	messages map[string][]chat.Message
	chunks   map[string][]document.Chunk
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		chunks:   make(map[string][]document.Chunk),
	}
}

// CreateSession registers a new session.
func (s *Store) CreateSession(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	s.order = append(s.order, session.ID)
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	return nil
}

// GetSession retrieves a session by identifier.
func (s *Store) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	return session, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(_ context.Context) ([]chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]chat.Session, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if session, ok := s.sessions[s.order[i]]; ok {
			out = append(out, session)
		}
	}
	return out, nil
}

// UpdateSession replaces the stored session metadata.
func (s *Store) UpdateSession(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return chat.ErrSessionNotFound
	}
	s.sessions[session.ID] = session
	return nil
}

// DeleteSession removes a session together with its messages and documents.
func (s *Store) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return chat.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	delete(s.chunks, sessionID)
	for i, id := range s.order {
		if id == sessionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// AppendMessage adds a message to the end of the session transcript.
func (s *Store) AppendMessage(_ context.Context, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return chat.ErrSessionNotFound
	}
	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return nil
}

// Transcript returns a copy of the stored messages in insertion order.
func (s *Store) Transcript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, chat.ErrSessionNotFound
	}
	messages := s.messages[sessionID]
	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// ClearMessages empties the transcript without touching session metadata.
func (s *Store) ClearMessages(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return chat.ErrSessionNotFound
	}
	s.messages[sessionID] = s.messages[sessionID][:0]
	return nil
}

// SaveChunks stores document chunks for their session.
func (s *Store) SaveChunks(_ context.Context, chunks []document.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		if _, ok := s.sessions[chunk.SessionID]; !ok {
			return chat.ErrSessionNotFound
		}
		s.chunks[chunk.SessionID] = append(s.chunks[chunk.SessionID], chunk)
	}
	return nil
}

// ListDocuments aggregates stored chunks into per-file summaries.
func (s *Store) ListDocuments(_ context.Context, sessionID string) ([]document.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, chat.ErrSessionNotFound
	}

	counts := make(map[string]int)
	var names []string
	for _, chunk := range s.chunks[sessionID] {
		if _, seen := counts[chunk.FileName]; !seen {
			names = append(names, chunk.FileName)
		}
		counts[chunk.FileName]++
	}

	infos := make([]document.Info, 0, len(names))
	for _, name := range names {
		infos = append(infos, document.Info{FileName: name, ChunkCount: counts[name]})
	}
	return infos, nil
}

// DeleteDocuments removes every chunk stored for the session.
func (s *Store) DeleteDocuments(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return chat.ErrSessionNotFound
	}
	delete(s.chunks, sessionID)
	return nil
}
