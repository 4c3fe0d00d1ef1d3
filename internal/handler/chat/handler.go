package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/rag4all/backend/internal/model/chat"
	chatservice "github.com/rag4all/backend/internal/service/chat"
	"github.com/rag4all/backend/internal/service/llm"
	"github.com/rag4all/backend/pkg/utils"
)

// Handler serves the synchronous chat turn: user prompt in, assistant
// reply out, both recorded on the transcript.
type Handler struct {
	chatSvc *chatservice.Service
	llmSvc  *llm.Service
}

// New creates the chat handler. llmSvc may be nil when no API key is
// configured; the endpoint then reports 503 while the rest of the API keeps
// working.
func New(chatSvc *chatservice.Service, llmSvc *llm.Service) *Handler {
	return &Handler{chatSvc: chatSvc, llmSvc: llmSvc}
}

// RegisterRoutes mounts the chat route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/chat", h.handleChat)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	if h.llmSvc == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "chat completions unavailable: no API key configured")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()

	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	history, err := h.chatSvc.Transcript(ctx, sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	userMsg, err := h.chatSvc.AppendMessage(ctx, sessionID, chatmodel.RoleUser, payload.Message)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to record user message")
		return
	}
	history = append(history, userMsg)

	reply, err := h.llmSvc.GenerateReply(ctx, session, history, payload.Message)
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return
		}
		utils.RespondError(w, http.StatusBadGateway, "completion failed")
		return
	}

	assistantMsg, err := h.chatSvc.AppendMessage(ctx, sessionID, chatmodel.RoleAssistant, reply)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to record assistant message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]chatmodel.Message{
		"userMessage":      userMsg,
		"assistantMessage": assistantMsg,
	})
}
