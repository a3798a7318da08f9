package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/http/response"
	"github.com/minhhungle-offical/chua-dieu-phap-server/internal/platform/storage"
)

// maxUploadBytes caps thumbnail uploads at 10 MiB.
const maxUploadBytes = 10 << 20

type UploadHandler struct {
	Storage storage.Service
}

func NewUploadHandler(st storage.Service) *UploadHandler {
	return &UploadHandler{Storage: st}
}

func (h *UploadHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.upload)
	r.Delete("/{publicID}", h.destroy)
	return r
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		response.BadRequest(w, "file too large or malformed multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	up, err := h.Storage.Upload(r.Context(), file, header.Filename)
	if err != nil {
		response.InternalError(w, "upload failed")
		return
	}
	response.WriteJSON(w, http.StatusCreated, up)
}

func (h *UploadHandler) destroy(w http.ResponseWriter, r *http.Request) {
	publicID := chi.URLParam(r, "publicID")
	if publicID == "" {
		response.BadRequest(w, "missing public id")
		return
	}
	if err := h.Storage.Destroy(r.Context(), publicID); err != nil {
		response.InternalError(w, "delete failed")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"message": "image deleted"})
}
