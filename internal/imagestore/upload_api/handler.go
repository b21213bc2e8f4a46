package upload_api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"techsymposium/internal/imagestore"
	"techsymposium/internal/logger"
	"techsymposium/internal/utils"
)

const formField = "file"

// UploadResponse keeps the {success,url} contract of the upload action.
// A false success always carries an empty url.
type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	Error   string `json:"error,omitempty"`
}

type Handler struct {
	Uploader *imagestore.Uploader
	MaxBytes int64
	Logger   *logger.Logger
}

func NewHandler(uploader *imagestore.Uploader, maxBytes int64, log *logger.Logger) *Handler {
	return &Handler{Uploader: uploader, MaxBytes: maxBytes, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/uploads", h.Upload)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes+1024)
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		h.fail(w, http.StatusBadRequest, "request must be multipart/form-data within the size limit")
		return
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if header.Size > h.MaxBytes {
		h.fail(w, http.StatusBadRequest, fmt.Sprintf("file exceeds %d bytes", h.MaxBytes))
		return
	}

	url, err := h.Uploader.Upload(r.Context(), header.Filename, file)
	if err != nil {
		status, msg := StatusFor(err)
		h.fail(w, status, msg)
		return
	}

	utils.WriteJSON(w, http.StatusOK, UploadResponse{Success: true, URL: url})
}

// StatusFor maps upload errors to an HTTP status and a client-safe message.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, imagestore.ErrNotImage):
		return http.StatusBadRequest, "file must be an image"
	case errors.Is(err, imagestore.ErrEmptyFile):
		return http.StatusBadRequest, "file is empty"
	case errors.Is(err, imagestore.ErrUploadFailed):
		return http.StatusBadGateway, "image upload failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handler) fail(w http.ResponseWriter, status int, msg string) {
	h.Logger.Warn("UPLOAD", fmt.Sprintf("Upload rejected (%d): %s", status, msg))
	utils.WriteJSON(w, status, UploadResponse{Success: false, URL: "", Error: msg})
}
