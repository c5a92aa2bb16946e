package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vncsmyrnk/api-poc/internal/core/domain"
	"github.com/vncsmyrnk/api-poc/internal/core/ports"
)

type SleepHandler struct {
	service ports.SleepService
	logger  *slog.Logger
}

func NewSleepHandler(service ports.SleepService, logger *slog.Logger) *SleepHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SleepHandler{
		service: service,
		logger:  logger,
	}
}

type sleepResponse struct {
	Sleepy string `json:"sleepy"`
}

func (h *SleepHandler) Sleepy(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.SleepRandom(r.Context())
	h.respond(w, r, d, err)
}

func (h *SleepHandler) SleepyFixed(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("sleep")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing sleep parameter")
		return
	}

	ms, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrInvalidSleep.Error())
		return
	}

	d, err := h.service.SleepFor(r.Context(), ms)
	h.respond(w, r, d, err)
}

func (h *SleepHandler) respond(w http.ResponseWriter, r *http.Request, d time.Duration, err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInvalidSleep), errors.Is(err, domain.ErrSleepTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The client is gone; nobody is left to read a response.
		h.logger.DebugContext(r.Context(), "sleep interrupted", "error", err)
		return
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, sleepResponse{Sleepy: delayPrefix(d)})
}

// delayPrefix renders d in milliseconds, cut to at most five characters.
func delayPrefix(d time.Duration) string {
	s := strconv.FormatInt(d.Milliseconds(), 10)
	return s[:min(5, len(s))]
}
