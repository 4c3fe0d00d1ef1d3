package document

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/rag4all/backend/internal/model/chat"
	docmodel "github.com/rag4all/backend/internal/model/document"
	docservice "github.com/rag4all/backend/internal/service/document"
	"github.com/rag4all/backend/pkg/utils"
)

// Handler exposes per-session document upload and management.
type Handler struct {
	docSvc         *docservice.Service
	maxUploadBytes int64
}

// New creates the document handler.
func New(docSvc *docservice.Service, maxUploadBytes int64) *Handler {
	return &Handler{docSvc: docSvc, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the document routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions/{sessionID}/documents", func(r chi.Router) {
		r.Post("/", h.handleUpload)
		r.Get("/", h.handleList)
		r.Delete("/", h.handleDeleteAll)
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	// Reject the whole batch up front so a bad file cannot leave earlier
	// files ingested while the request fails.
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			if !docservice.Supported(header.Filename) {
				utils.RespondError(w, http.StatusUnsupportedMediaType,
					fmt.Sprintf("unsupported file type: %s", header.Filename))
				return
			}
		}
	}

	var uploaded []docmodel.Info
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, "failed to read uploaded file")
				return
			}

			info, err := h.docSvc.Ingest(r.Context(), sessionID, header.Filename, file)
			file.Close()
			if err != nil {
				respondServiceError(w, err)
				return
			}
			uploaded = append(uploaded, info)
		}
	}

	if len(uploaded) == 0 {
		utils.RespondError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, uploaded)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := h.docSvc.List(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if infos == nil {
		infos = []docmodel.Info{}
	}
	utils.RespondJSON(w, http.StatusOK, infos)
}

func (h *Handler) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.docSvc.Clear(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatmodel.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, docservice.ErrUnsupportedType):
		utils.RespondError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, docservice.ErrEmptyDocument):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
