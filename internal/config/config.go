package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rag4all/backend/internal/model/settings"
)

// Config aggregates every runtime option of the service.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	LLM      LLMConfig
	Chat     ChatConfig
	Document DocumentConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	doc, err := loadDocumentConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Store:    StoreConfig{DatabasePath: strings.TrimSpace(os.Getenv("DATABASE_PATH"))},
		LLM:      llm,
		Chat:     chat,
		Document: doc,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8501"
	}

	if strings.Contains(port, ":") {
		// Allow ":8501" or "127.0.0.1:8501" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// StoreConfig selects the persistence backend. An empty DatabasePath keeps
// all state in memory for the lifetime of the process.
type StoreConfig struct {
	DatabasePath string
}

// LLMConfig describes the OpenRouter connection.
type LLMConfig struct {
	APIKey       string
	BaseURL      string
	Referer      string
	Title        string
	StreamOutput bool
	HistoryLimit int
}

// Enabled reports whether the API key required for completions is present.
func (c LLMConfig) Enabled() bool {
	return c.APIKey != ""
}

func loadLLMConfig() (LLMConfig, error) {
	stream, err := parseBoolEnv("LLM_STREAM", true)
	if err != nil {
		return LLMConfig{}, err
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("LLM_HISTORY_LIMIT"); err != nil {
		return LLMConfig{}, err
	} else if override != nil {
		if *override < 1 {
			historyLimit = 1
		} else {
			historyLimit = *override
		}
	}

	return LLMConfig{
		APIKey:       strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		BaseURL:      getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		Referer:      getEnvOrDefault("OPENROUTER_REFERER", "https://rag4all.app"),
		Title:        getEnvOrDefault("OPENROUTER_TITLE", "RAG4ALL Chat Application"),
		StreamOutput: stream,
		HistoryLimit: historyLimit,
	}, nil
}

// ChatConfig carries the default generation settings applied to new sessions.
type ChatConfig struct {
	Defaults settings.Settings
}

func loadChatConfig() (ChatConfig, error) {
	defaults := settings.Default()

	defaults.Model = getEnvOrDefault("OPENROUTER_MODEL", defaults.Model)

	if temperature, err := parseOptionalFloatEnv("CHAT_TEMPERATURE"); err != nil {
		return ChatConfig{}, err
	} else if temperature != nil {
		defaults.Temperature = *temperature
	}

	if maxTokens, err := parseOptionalIntEnv("CHAT_MAX_TOKENS"); err != nil {
		return ChatConfig{}, err
	} else if maxTokens != nil {
		defaults.MaxTokens = *maxTokens
	}

	if topP, err := parseOptionalFloatEnv("CHAT_TOP_P"); err != nil {
		return ChatConfig{}, err
	} else if topP != nil {
		defaults.TopP = *topP
	}

	if err := defaults.Validate(); err != nil {
		return ChatConfig{}, fmt.Errorf("invalid chat defaults: %w", err)
	}

	return ChatConfig{Defaults: defaults}, nil
}

// DocumentConfig controls upload handling and chunking.
type DocumentConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MaxUploadBytes int64
}

func loadDocumentConfig() (DocumentConfig, error) {
	cfg := DocumentConfig{
		ChunkSize:      1000,
		ChunkOverlap:   100,
		MaxUploadBytes: 10 << 20,
	}

	if size, err := parseOptionalIntEnv("DOC_CHUNK_SIZE"); err != nil {
		return DocumentConfig{}, err
	} else if size != nil {
		cfg.ChunkSize = *size
	}

	if overlap, err := parseOptionalIntEnv("DOC_CHUNK_OVERLAP"); err != nil {
		return DocumentConfig{}, err
	} else if overlap != nil {
		cfg.ChunkOverlap = *overlap
	}

	if maxBytes, err := parseOptionalIntEnv("DOC_MAX_UPLOAD_BYTES"); err != nil {
		return DocumentConfig{}, err
	} else if maxBytes != nil {
		cfg.MaxUploadBytes = int64(*maxBytes)
	}

	if cfg.ChunkSize < 1 {
		return DocumentConfig{}, fmt.Errorf("DOC_CHUNK_SIZE must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return DocumentConfig{}, fmt.Errorf("DOC_CHUNK_OVERLAP %d must be in [0, chunk size)", cfg.ChunkOverlap)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
