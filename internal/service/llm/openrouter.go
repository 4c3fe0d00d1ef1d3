package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	openaiapi "github.com/sashabaranov/go-openai"

	"github.com/rag4all/backend/internal/config"
)

// OpenRouterClient talks to OpenRouter's OpenAI-compatible chat-completions
// endpoint.
type OpenRouterClient struct {
	api *openaiapi.Client
}

// NewOpenRouterClient builds the client from configuration. OpenRouter asks
// callers to identify themselves via HTTP-Referer and X-Title headers.
func NewOpenRouterClient(cfg config.LLMConfig) *OpenRouterClient {
	apiCfg := openaiapi.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiCfg.HTTPClient = &http.Client{
		Transport: &attributionTransport{
			base:    http.DefaultTransport,
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	return &OpenRouterClient{api: openaiapi.NewClientWithConfig(apiCfg)}
}

// Complete performs a blocking chat completion.
func (c *OpenRouterClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, toAPIRequest(req, false))
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("provider returned empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream performs a streaming chat completion, invoking onDelta for each
// content chunk and returning the concatenated reply.
func (c *OpenRouterClient) Stream(ctx context.Context, req CompletionRequest, onDelta func(delta string) error) (string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, toAPIRequest(req, true))
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return "", recvErr
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		reply.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return "", err
			}
		}
	}

	return reply.String(), nil
}

func toAPIRequest(req CompletionRequest, stream bool) openaiapi.ChatCompletionRequest {
	messages := make([]openaiapi.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openaiapi.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	return openaiapi.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Stream:      stream,
	}
}

// attributionTransport injects the OpenRouter attribution headers into every
// request.
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	if t.referer != "" {
		cloned.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		cloned.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(cloned)
}
