package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vncsmyrnk/api-poc/internal/core/ports"
)

type ImageHandler struct {
	service ports.ImageService
	logger  *slog.Logger
}

func NewImageHandler(service ports.ImageService, logger *slog.Logger) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageHandler{
		service: service,
		logger:  logger,
	}
}

func (h *ImageHandler) Image(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Generate(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "generate image", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate image")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
