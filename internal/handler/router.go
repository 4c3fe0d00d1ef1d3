package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chathandler "github.com/rag4all/backend/internal/handler/chat"
	dochandler "github.com/rag4all/backend/internal/handler/document"
	sessionhandler "github.com/rag4all/backend/internal/handler/session"
	"github.com/rag4all/backend/internal/handler/stream"
	wshandler "github.com/rag4all/backend/internal/handler/ws"
	middlewarePkg "github.com/rag4all/backend/internal/middleware"
	chatservice "github.com/rag4all/backend/internal/service/chat"
	docservice "github.com/rag4all/backend/internal/service/document"
	"github.com/rag4all/backend/internal/service/llm"
	"github.com/rag4all/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. llmSvc may be nil; the
// session and document APIs stay available without it.
func NewRouter(chatSvc *chatservice.Service, docSvc *docservice.Service, llmSvc *llm.Service, maxUploadBytes int64) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sessionHandler := sessionhandler.New(chatSvc)
	chatHandler := chathandler.New(chatSvc, llmSvc)
	docHandler := dochandler.New(docSvc, maxUploadBytes)

	var streamHandler *stream.Handler
	if llmSvc != nil {
		streamHandler = stream.New(llmSvc, chatSvc)
	}

	r.Route("/api", func(api chi.Router) {
		sessionHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		docHandler.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if streamHandler == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "streaming unavailable: no API key configured")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamHandler.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})

		wsHandler := wshandler.New(chatSvc, llmSvc)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
