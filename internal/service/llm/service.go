package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/rag4all/backend/internal/config"
	"github.com/rag4all/backend/internal/model/chat"
)

const systemPrompt = "You are a helpful AI assistant that provides informative responses."

// PromptMessage is one entry of the prompt sent to the model, including the
// system message that never appears in a transcript.
type PromptMessage struct {
	Role    string
	Content string
}

// CompletionRequest is the provider-neutral completion call.
type CompletionRequest struct {
	Model       string
	Messages    []PromptMessage
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// Client abstracts the completion provider so tests can stub it out.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string) error) (string, error)
}

// Service turns session transcripts into model prompts and back.
type Service struct {
	client Client
	cfg    config.LLMConfig
}

// NewService creates the LLM service around a completion client.
func NewService(client Client, cfg config.LLMConfig) *Service {
	return &Service{client: client, cfg: cfg}
}

// StreamingEnabled indicates whether delta streaming is configured.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.StreamOutput
}

// GenerateReply produces a complete assistant response for the session.
func (s *Service) GenerateReply(ctx context.Context, session chat.Session, history []chat.Message, prompt string) (string, error) {
	reply, err := s.client.Complete(ctx, s.buildRequest(session, history, prompt))
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	log.Printf("[llm] generated reply for session=%s model=%s length=%d", session.ID, session.Settings.Model, len(reply))
	return reply, nil
}

// StreamReply streams the assistant response, invoking onDelta per chunk,
// and returns the accumulated text.
func (s *Service) StreamReply(ctx context.Context, session chat.Session, history []chat.Message, prompt string, onDelta func(delta string) error) (string, error) {
	if !s.cfg.StreamOutput {
		return "", fmt.Errorf("streaming disabled in configuration")
	}

	reply, err := s.client.Stream(ctx, s.buildRequest(session, history, prompt), onDelta)
	if err != nil {
		return "", fmt.Errorf("streaming completion failed: %w", err)
	}
	return reply, nil
}

func (s *Service) buildRequest(session chat.Session, history []chat.Message, prompt string) CompletionRequest {
	opts := session.Settings

	messages := make([]PromptMessage, 0, s.cfg.HistoryLimit+2)
	messages = append(messages, PromptMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, s.historyWindow(history)...)

	// The caller may have persisted the user turn before invoking us; only
	// repeat the prompt when it is not already the trailing message.
	if last := lastMessage(messages); last == nil || last.Role != string(chat.RoleUser) || last.Content != prompt {
		messages = append(messages, PromptMessage{Role: string(chat.RoleUser), Content: prompt})
	}

	return CompletionRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
		TopP:        float32(opts.TopP),
	}
}

func (s *Service) historyWindow(history []chat.Message) []PromptMessage {
	startIdx := 0
	if len(history) > s.cfg.HistoryLimit {
		startIdx = len(history) - s.cfg.HistoryLimit
	}

	window := make([]PromptMessage, 0, len(history)-startIdx)
	for _, msg := range history[startIdx:] {
		if !msg.Role.Valid() {
			continue
		}
		window = append(window, PromptMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return window
}

func lastMessage(messages []PromptMessage) *PromptMessage {
	if len(messages) == 0 {
		return nil
	}
	return &messages[len(messages)-1]
}
