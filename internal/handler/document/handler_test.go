package document

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/rag4all/backend/internal/config"
	docmodel "github.com/rag4all/backend/internal/model/document"
	"github.com/rag4all/backend/internal/model/settings"
	chatservice "github.com/rag4all/backend/internal/service/chat"
	docservice "github.com/rag4all/backend/internal/service/document"
	"github.com/rag4all/backend/internal/store/memory"
)

func setupRouter(t *testing.T) (*chi.Mux, *docservice.Service, string) {
	t.Helper()

	store := memory.New()
	chatSvc := chatservice.NewService(store, settings.Default())
	docSvc := docservice.NewService(store, config.DocumentConfig{
		ChunkSize:      100,
		ChunkOverlap:   10,
		MaxUploadBytes: 1 << 20,
	})

	session, err := chatSvc.CreateSession(context.Background(), "docs")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	r := chi.NewRouter()
	New(docSvc, 1<<20).RegisterRoutes(r)
	return r, docSvc, session.ID
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile err: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part err: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer err: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadAndList(t *testing.T) {
	r, _, sessionID := setupRouter(t)

	body, contentType := multipartBody(t, map[string]string{"notes.txt": "some plain text content"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID+"/documents", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var infos []docmodel.Info
	if err := json.Unmarshal(resp.Body.Bytes(), &infos); err != nil {
		t.Fatalf("failed to decode listing: %v", err)
	}
	if len(infos) != 1 || infos[0].FileName != "notes.txt" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
}

func TestUploadUnsupportedType(t *testing.T) {
	r, _, sessionID := setupRouter(t)

	body, contentType := multipartBody(t, map[string]string{"report.pdf": "%PDF-1.4"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestUploadRejectsWholeBatchOnBadFile(t *testing.T) {
	r, docSvc, sessionID := setupRouter(t)

	body, contentType := multipartBody(t, map[string]string{
		"notes.txt":  "good content",
		"report.pdf": "%PDF-1.4",
	})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()

	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d: %s", resp.Code, resp.Body.String())
	}

	// A rejected batch must not persist chunks from the accepted files.
	infos, err := docSvc.List(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no documents after rejected batch, got %+v", infos)
	}
}

func TestDeleteDocuments(t *testing.T) {
	r, docSvc, sessionID := setupRouter(t)

	body, contentType := multipartBody(t, map[string]string{"notes.md": "# heading\n\nbody"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID+"/documents", body)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/sessions/"+sessionID+"/documents", nil)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}

	infos, err := docSvc.List(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected no documents after delete, got %+v", infos)
	}
}
