package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rag4all/backend/internal/config"
	"github.com/rag4all/backend/internal/handler"
	"github.com/rag4all/backend/internal/model/chat"
	"github.com/rag4all/backend/internal/model/document"
	chatservice "github.com/rag4all/backend/internal/service/chat"
	docservice "github.com/rag4all/backend/internal/service/document"
	"github.com/rag4all/backend/internal/service/llm"
	"github.com/rag4all/backend/internal/store/memory"
	"github.com/rag4all/backend/internal/store/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	chatStore, docStore, closeStore, err := openStores(cfg.Store)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer closeStore()

	chatSvc := chatservice.NewService(chatStore, cfg.Chat.Defaults)
	docSvc := docservice.NewService(docStore, cfg.Document)

	var llmSvc *llm.Service
	if cfg.LLM.Enabled() {
		llmSvc = llm.NewService(llm.NewOpenRouterClient(cfg.LLM), cfg.LLM)
		log.Println("LLM service initialized successfully")
	} else {
		log.Println("OPENROUTER_API_KEY not configured, chat completions disabled")
	}

	router := handler.NewRouter(chatSvc, docSvc, llmSvc, cfg.Document.MaxUploadBytes)

	startServer(ctx, cfg.Server, router)
}

func openStores(cfg config.StoreConfig) (chat.Store, document.Store, func(), error) {
	if cfg.DatabasePath == "" {
		log.Println("DATABASE_PATH not configured, using in-memory store")
		store := memory.New()
		return store, store, func() {}, nil
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, err
	}

	log.Printf("SQLite store opened at %s", cfg.DatabasePath)
	return store, store, func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close store: %v", err)
		}
	}, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("RAG4ALL backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
