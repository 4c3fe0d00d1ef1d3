package chat

import (
	"time"

	"github.com/rag4all/backend/internal/model/settings"
)

// Session captures one conversation and its per-session settings.
type Session struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Settings  settings.Settings `json:"settings"`
	CreatedAt time.Time         `json:"createdAt"`
}
