package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatmodel "github.com/rag4all/backend/internal/model/chat"
	"github.com/rag4all/backend/internal/model/settings"
	chatservice "github.com/rag4all/backend/internal/service/chat"
	"github.com/rag4all/backend/internal/service/llm"
)

// Handler carries chat turns over a WebSocket connection as an alternative
// to the SSE transport.
type Handler struct {
	chatSvc  *chatservice.Service
	llmSvc   *llm.Service
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler.
func New(chatSvc *chatservice.Service, llmSvc *llm.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		llmSvc:  llmSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type textMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; gorilla permits only one concurrent writer per
// connection and the ping loop runs alongside the read loop.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	c := &wsConn{conn: conn}
	go h.pingLoop(ctx, c)

	h.send(c, sessionID, map[string]any{"type": "connected"})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[ws] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			h.handleMessage(ctx, c, sessionID, &msg)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *wsConn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, c, sessionID, msg.Data)
	case "settings":
		h.handleSettingsMessage(ctx, c, sessionID, msg.Data)
	default:
		h.sendError(c, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, c *wsConn, sessionID string, raw json.RawMessage) {
	var text textMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(c, "invalid text payload")
		return
	}
	if text.Text == "" {
		return
	}

	if err := h.processUserText(ctx, c, sessionID, text.Text); err != nil {
		h.sendError(c, err.Error())
	}
}

func (h *Handler) handleSettingsMessage(ctx context.Context, c *wsConn, sessionID string, raw json.RawMessage) {
	var patch settings.Patch
	if err := json.Unmarshal(raw, &patch); err != nil {
		h.sendError(c, "invalid settings payload")
		return
	}

	session, err := h.chatSvc.UpdateSettings(ctx, sessionID, patch)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	log.Printf("[ws] settings applied session=%s model=%s", sessionID, session.Settings.Model)
	h.send(c, sessionID, map[string]any{
		"type":     "settings",
		"settings": session.Settings,
	})
}

func (h *Handler) processUserText(ctx context.Context, c *wsConn, sessionID, userText string) error {
	session, err := h.chatSvc.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session failed: %w", err)
	}

	history, err := h.chatSvc.Transcript(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load transcript failed: %w", err)
	}

	userMsg, err := h.chatSvc.AppendMessage(ctx, sessionID, chatmodel.RoleUser, userText)
	if err != nil {
		return fmt.Errorf("save user message failed: %w", err)
	}
	history = append(history, userMsg)

	h.send(c, sessionID, map[string]any{
		"type": "user",
		"text": userText,
	})

	if h.llmSvc == nil {
		return errors.New("chat completions unavailable")
	}

	reply, err := h.generateReply(ctx, c, sessionID, session, history, userText)
	if err != nil {
		return err
	}

	if _, err := h.chatSvc.AppendMessage(ctx, sessionID, chatmodel.RoleAssistant, reply); err != nil {
		log.Printf("[ws] save assistant message failed: %v", err)
	}

	return nil
}

func (h *Handler) generateReply(ctx context.Context, c *wsConn, sessionID string, session chatmodel.Session, history []chatmodel.Message, userText string) (string, error) {
	if !h.llmSvc.StreamingEnabled() {
		reply, err := h.llmSvc.GenerateReply(ctx, session, history, userText)
		if err != nil {
			return "", fmt.Errorf("generation failed: %w", err)
		}
		h.send(c, sessionID, map[string]any{
			"type":    "ai",
			"text":    reply,
			"isFinal": true,
		})
		return reply, nil
	}

	reply, err := h.llmSvc.StreamReply(ctx, session, history, userText, func(delta string) error {
		h.send(c, sessionID, map[string]any{
			"type": "ai_delta",
			"text": delta,
		})
		return ctx.Err()
	})
	if err != nil {
		return "", fmt.Errorf("streaming failed: %w", err)
	}

	h.send(c, sessionID, map[string]any{
		"type":    "ai",
		"text":    reply,
		"isFinal": true,
	})

	return reply, nil
}

func (h *Handler) send(c *wsConn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := c.writeJSON(msg); err != nil {
		log.Printf("[ws] write failed: %v", err)
	}
}

func (h *Handler) sendError(c *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := c.writeJSON(msg); err != nil {
		log.Printf("[ws] write error failed: %v", err)
	}
}

// pingLoop keeps the connection alive under proxies with idle timeouts.
func (h *Handler) pingLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
