package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rag4all/backend/internal/config"
	"github.com/rag4all/backend/internal/model/document"
)

var (
	// ErrUnsupportedType rejects uploads outside the accepted text formats.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrEmptyDocument rejects uploads without extractable text.
	ErrEmptyDocument = errors.New("document contains no text")
)

// Service ingests uploaded documents, chunks them and stores the chunks
// scoped to their chat session.
type Service struct {
	store document.Store
	cfg   config.DocumentConfig
	now   func() time.Time
}

// NewService wires the document pipeline to a chunk store.
func NewService(store document.Store, cfg config.DocumentConfig) *Service {
	return &Service{store: store, cfg: cfg, now: time.Now}
}

// Ingest reads the uploaded file, splits it into chunks and persists them.
func (s *Service) Ingest(ctx context.Context, sessionID, fileName string, r io.Reader) (document.Info, error) {
	if !Supported(fileName) {
		return document.Info{}, fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Ext(fileName))
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return document.Info{}, fmt.Errorf("read upload: %w", err)
	}

	pieces := Split(string(raw), s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if len(pieces) == 0 {
		return document.Info{}, ErrEmptyDocument
	}

	now := s.now().UTC()
	chunks := make([]document.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, document.Chunk{
			ID:         uuid.NewString(),
			SessionID:  sessionID,
			FileName:   fileName,
			ChunkIndex: i,
			Content:    piece,
			CreatedAt:  now,
		})
	}

	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return document.Info{}, err
	}

	log.Printf("[document] stored %d chunks for session=%s file=%s", len(chunks), sessionID, fileName)
	return document.Info{FileName: fileName, ChunkCount: len(chunks)}, nil
}

// List returns the uploaded files of a session with their chunk counts.
func (s *Service) List(ctx context.Context, sessionID string) ([]document.Info, error) {
	return s.store.ListDocuments(ctx, sessionID)
}

// Clear removes every stored chunk for the session.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.store.DeleteDocuments(ctx, sessionID)
}

// Supported reports whether the file name carries an accepted text
// extension. Callers handling multi-file uploads check every name up front
// so a rejected file cannot leave earlier files partially ingested.
func Supported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".md", ".markdown", ".text":
		return true
	}
	return false
}
