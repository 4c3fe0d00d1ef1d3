package document

import (
	"context"
	"time"
)

// Chunk is one stored slice of an uploaded document, scoped to a session.
type Chunk struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	FileName   string    `json:"fileName"`
	ChunkIndex int       `json:"chunkIndex"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Info summarizes one uploaded file for listing in the sidebar.
type Info struct {
	FileName   string `json:"fileName"`
	ChunkCount int    `json:"chunkCount"`
}

// Store persists document chunks alongside the chat store.
type Store interface {
	SaveChunks(ctx context.Context, chunks []Chunk) error
	ListDocuments(ctx context.Context, sessionID string) ([]Info, error)
	DeleteDocuments(ctx context.Context, sessionID string) error
}
