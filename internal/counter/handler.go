package counter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/rewind/internal/logging"
)

// NewHandler serves b over HTTP:
//
//	GET  /count      -> {"id": ..., "count": ...}
//	POST /count/inc  -> {"id": ..., "count": ...}
func NewHandler(b Backend, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &handler{backend: b, logger: logger}

	r := chi.NewRouter()
	r.Get("/count", h.get)
	r.Post("/count/inc", h.inc)
	return r
}

type handler struct {
	backend Backend
	logger  *slog.Logger
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	c, err := h.backend.Get(r.Context())
	h.respond(w, c, err)
}

func (h *handler) inc(w http.ResponseWriter, r *http.Request) {
	c, err := h.backend.Inc(r.Context())
	h.respond(w, c, err)
}

func (h *handler) respond(w http.ResponseWriter, c Count, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		h.logger.Error("counter request failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	if err := json.NewEncoder(w).Encode(c); err != nil {
		h.logger.Error("counter encode failed", "error", err)
	}
}
