package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(pollHandler *PollHandler, sleepHandler *SleepHandler, imageHandler *ImageHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/hello", Hello)
	r.Get("/sleepy", sleepHandler.Sleepy)
	r.Get("/sleepy-fixed", sleepHandler.SleepyFixed)
	r.Get("/image", imageHandler.Image)
	r.Get("/database", pollHandler.ListPolls)
	r.Get("/healthz", pollHandler.Health)

	return r
}
