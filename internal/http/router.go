package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"live-transcript-service/internal/app"
	"live-transcript-service/internal/export"
	"live-transcript-service/internal/ingest"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application, hub *Hub) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if application.Ingestor.State() != ingest.StateOpen {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("stream not open"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	h := &handlers{app: application}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Post("/connect", h.connect)
			r.Post("/disconnect", h.disconnect)
			r.Post("/clear", h.clear)
			r.Get("/status", h.status)
		})
		r.Route("/transcript", func(r chi.Router) {
			r.Get("/", h.transcript)
			r.Get("/turns", h.turns)
			r.Get("/stats", h.stats)
			r.Get("/export", h.export)
			if hub != nil {
				r.Get("/ws", hub.ServeWS)
			}
		})
	})

	return r
}

type handlers struct {
	app *app.Application
}

func (h *handlers) connect(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Ingestor.Connect(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrClosed) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.app.Ingestor.Status())
}

func (h *handlers) disconnect(w http.ResponseWriter, _ *http.Request) {
	h.app.Ingestor.Disconnect()
	writeJSON(w, http.StatusOK, h.app.Ingestor.Status())
}

func (h *handlers) clear(w http.ResponseWriter, _ *http.Request) {
	h.app.Ingestor.Clear()
	writeJSON(w, http.StatusOK, h.app.Ingestor.Status())
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Ingestor.Status())
}

func (h *handlers) transcript(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Session.View())
}

func (h *handlers) turns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Session.View().Turns)
}

func (h *handlers) stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Session.Stats())
}

func (h *handlers) export(w http.ResponseWriter, _ *http.Request) {
	segments := h.app.Session.Segments()
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(time.Now())))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, segments); err != nil {
		log.Error().Err(err).Str("component", "http").Msg("Failed to write export")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Str("component", "http").Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
