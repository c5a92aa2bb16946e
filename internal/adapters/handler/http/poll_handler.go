package http

import (
	"log/slog"
	"net/http"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
	"github.com/vncsmyrnk/api-poc/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
	logger  *slog.Logger
}

func NewPollHandler(service ports.PollService, logger *slog.Logger) *PollHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PollHandler{
		service: service,
		logger:  logger,
	}
}

type listPollsResponse struct {
	Polls []domain.Poll `json:"polls"`
}

func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListPolls(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list polls", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list polls")
		return
	}

	writeJSON(w, http.StatusOK, listPollsResponse{Polls: polls})
}

func (h *PollHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
