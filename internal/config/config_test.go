package config

import (
	"testing"

	"github.com/rag4all/backend/internal/model/settings"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATABASE_PATH", "OPENROUTER_API_KEY", "OPENROUTER_MODEL",
		"LLM_STREAM", "LLM_HISTORY_LIMIT", "CHAT_TEMPERATURE", "CHAT_MAX_TOKENS",
		"CHAT_TOP_P", "DOC_CHUNK_SIZE", "DOC_CHUNK_OVERLAP",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8501" {
		t.Fatalf("unexpected default addr: %q", cfg.Server.Addr)
	}
	if cfg.Store.DatabasePath != "" {
		t.Fatalf("expected empty database path, got %q", cfg.Store.DatabasePath)
	}
	if cfg.LLM.Enabled() {
		t.Fatal("LLM must be disabled without an API key")
	}
	if !cfg.LLM.StreamOutput {
		t.Fatal("streaming must default to enabled")
	}
	if cfg.LLM.HistoryLimit != 10 {
		t.Fatalf("unexpected history limit: %d", cfg.LLM.HistoryLimit)
	}
	if cfg.Chat.Defaults != settings.Default() {
		t.Fatalf("unexpected chat defaults: %+v", cfg.Chat.Defaults)
	}
	if cfg.Document.ChunkSize != 1000 || cfg.Document.ChunkOverlap != 100 {
		t.Fatalf("unexpected chunking defaults: %+v", cfg.Document)
	}
}

func TestLoadPortVariants(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %q", cfg.Server.Addr)
	}

	t.Setenv("PORT", "bad port")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for PORT with spaces")
	}
}

func TestLoadChatOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "key")
	t.Setenv("OPENROUTER_MODEL", "some/other-model")
	t.Setenv("CHAT_TEMPERATURE", "0.3")
	t.Setenv("CHAT_MAX_TOKENS", "2000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if !cfg.LLM.Enabled() {
		t.Fatal("LLM must be enabled with an API key")
	}
	if cfg.Chat.Defaults.Model != "some/other-model" {
		t.Fatalf("unexpected model: %q", cfg.Chat.Defaults.Model)
	}
	if cfg.Chat.Defaults.Temperature != 0.3 {
		t.Fatalf("unexpected temperature: %v", cfg.Chat.Defaults.Temperature)
	}
	if cfg.Chat.Defaults.MaxTokens != 2000 {
		t.Fatalf("unexpected max tokens: %d", cfg.Chat.Defaults.MaxTokens)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("CHAT_TEMPERATURE", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid CHAT_TEMPERATURE")
	}

	t.Setenv("CHAT_TEMPERATURE", "5.0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range CHAT_TEMPERATURE")
	}

	t.Setenv("CHAT_TEMPERATURE", "")
	t.Setenv("DOC_CHUNK_OVERLAP", "5000")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for overlap larger than chunk size")
	}
}
