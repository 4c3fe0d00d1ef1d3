package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"

	chatmodel "github.com/rag4all/backend/internal/model/chat"
	chatservice "github.com/rag4all/backend/internal/service/chat"
	"github.com/rag4all/backend/internal/service/llm"
	"github.com/rag4all/backend/pkg/utils"
)

// Handler streams assistant replies over Server-Sent Events.
type Handler struct {
	llmSvc  *llm.Service
	chatSvc *chatservice.Service
}

// New creates a stream handler.
func New(llmSvc *llm.Service, chatSvc *chatservice.Service) *Handler {
	return &Handler{llmSvc: llmSvc, chatSvc: chatSvc}
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// HandleStreamRequest runs one chat turn over SSE: the user message is
// recorded, deltas are streamed as they arrive, and the final reply is
// appended to the transcript.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, "session not found")
		return err
	}

	history, err := h.chatSvc.Transcript(ctx, sessionID)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("failed to load transcript: %v", err))
		return err
	}

	// The client may have persisted the user turn via REST already; avoid
	// duplicating it.
	if !hasMatchingUserMessage(history, userMessage) {
		userMsg, err := h.chatSvc.AppendMessage(ctx, sessionID, chatmodel.RoleUser, userMessage)
		if err != nil {
			log.Printf("[stream] failed to save user message: %v", err)
		} else {
			history = append(history, userMsg)
		}
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: sessionID})

	reply, err := h.dispatchReply(ctx, w, flusher, sessionID, session, history, userMessage)
	if err != nil {
		h.sendSSEError(w, flusher, fmt.Sprintf("generation failed: %v", err))
		return err
	}

	if _, err := h.chatSvc.AppendMessage(ctx, sessionID, chatmodel.RoleAssistant, reply); err != nil {
		log.Printf("[stream] failed to save assistant message: %v", err)
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "end", SessionID: sessionID, Finished: true})

	log.Printf("[stream] completed response for session=%s", sessionID)
	return nil
}

func (h *Handler) dispatchReply(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, sessionID string, session chatmodel.Session, history []chatmodel.Message, userMessage string) (string, error) {
	if h.llmSvc.StreamingEnabled() {
		reply, err := h.llmSvc.StreamReply(ctx, session, history, userMessage, func(delta string) error {
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "delta",
				SessionID: sessionID,
				Content:   delta,
			})
			return ctx.Err()
		})
		if err != nil {
			return "", err
		}

		h.sendSSE(w, flusher, StreamResponse{Event: "message", SessionID: sessionID, Content: reply})
		return reply, nil
	}

	reply, err := h.llmSvc.GenerateReply(ctx, session, history, userMessage)
	if err != nil {
		return "", err
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "message", SessionID: sessionID, Content: reply})
	return reply, nil
}

func hasMatchingUserMessage(history []chatmodel.Message, content string) bool {
	if len(history) == 0 {
		return false
	}

	last := history[len(history)-1]
	return last.Role == chatmodel.RoleUser && last.Content == content
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}

func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: errorMsg})
}
