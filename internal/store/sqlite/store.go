package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rag4all/backend/internal/model/chat"
	"github.com/rag4all/backend/internal/model/document"
	"github.com/rag4all/backend/internal/model/settings"
)

// Store persists sessions, transcripts and document chunks in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at the given path, ensuring the
// parent directory exists, and applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return store, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			model TEXT NOT NULL,
			temperature REAL NOT NULL,
			max_tokens INTEGER NOT NULL,
			top_p REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (chat_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_chat_id ON chat_messages(chat_id, created_at);

		CREATE TABLE IF NOT EXISTS user_documents (
			id TEXT PRIMARY KEY,
			chat_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (chat_id) REFERENCES chat_sessions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_user_documents_chat_id ON user_documents(chat_id, file_name);
	`)
	return err
}

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, session chat.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, title, model, temperature, max_tokens, top_p, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Title,
		session.Settings.Model, session.Settings.Temperature,
		session.Settings.MaxTokens, session.Settings.TopP,
		session.CreatedAt,
	)
	return err
}

// GetSession loads a single session row.
func (s *Store) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, model, temperature, max_tokens, top_p, created_at
		 FROM chat_sessions WHERE id = ?`, sessionID)
	return scanSession(row)
}

// ListSessions returns every session, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, model, temperature, max_tokens, top_p, created_at
		 FROM chat_sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []chat.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// UpdateSession rewrites title and settings for an existing session.
func (s *Store) UpdateSession(ctx context.Context, session chat.Session) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET title = ?, model = ?, temperature = ?, max_tokens = ?, top_p = ?
		 WHERE id = ?`,
		session.Title,
		session.Settings.Model, session.Settings.Temperature,
		session.Settings.MaxTokens, session.Settings.TopP,
		session.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeleteSession removes the session; messages and documents cascade.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AppendMessage inserts one transcript row.
func (s *Store) AppendMessage(ctx context.Context, message chat.Message) error {
	if err := s.requireSession(ctx, message.SessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, chat_id, role, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		message.ID, message.SessionID, string(message.Role), message.Content, message.CreatedAt,
	)
	return err
}

// Transcript loads the messages for a session in insertion order.
func (s *Store) Transcript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, role, content, created_at
		 FROM chat_messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]chat.Message, 0, 16)
	for rows.Next() {
		var m chat.Message
		var role string
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = chat.Role(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// ClearMessages deletes the transcript but keeps the session row.
func (s *Store) ClearMessages(ctx context.Context, sessionID string) error {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE chat_id = ?`, sessionID)
	return err
}

// SaveChunks inserts document chunks in a single transaction.
func (s *Store) SaveChunks(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.requireSession(ctx, chunks[0].SessionID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO user_documents (id, chat_id, file_name, chunk_index, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		if _, err := stmt.ExecContext(ctx,
			chunk.ID, chunk.SessionID, chunk.FileName, chunk.ChunkIndex, chunk.Content, chunk.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListDocuments aggregates chunk counts per file name.
func (s *Store) ListDocuments(ctx context.Context, sessionID string) ([]document.Info, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_name, COUNT(*) FROM user_documents
		 WHERE chat_id = ? GROUP BY file_name ORDER BY MIN(rowid)`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []document.Info
	for rows.Next() {
		var info document.Info
		if err := rows.Scan(&info.FileName, &info.ChunkCount); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteDocuments removes every chunk stored for the session.
func (s *Store) DeleteDocuments(ctx context.Context, sessionID string) error {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_documents WHERE chat_id = ?`, sessionID)
	return err
}

func (s *Store) requireSession(ctx context.Context, sessionID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM chat_sessions WHERE id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.ErrSessionNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (chat.Session, error) {
	var session chat.Session
	var opts settings.Settings
	err := row.Scan(&session.ID, &session.Title,
		&opts.Model, &opts.Temperature, &opts.MaxTokens, &opts.TopP,
		&session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Session{}, chat.ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, err
	}
	session.Settings = opts
	return session, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return chat.ErrSessionNotFound
	}
	return nil
}
