package commands

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/WessleyAI/wessley-plates/engine/domain"
	"github.com/WessleyAI/wessley-plates/engine/pipeline"
	"github.com/WessleyAI/wessley-plates/pkg/metrics"
	"github.com/WessleyAI/wessley-plates/pkg/mid"
)

// EventResponse is the body returned by POST /events.
type EventResponse struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// handleEvent runs one posted storage event through h. Recognition failures
// answer 502; an event without records answers 204.
func handleEvent(h pipeline.Handler, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev domain.StorageEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, EventResponse{Error: "event too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, EventResponse{Error: "invalid event: " + err.Error()})
			return
		}

		status, err := h.Handle(r.Context(), ev)
		switch {
		case isRecognitionError(err):
			writeJSON(w, http.StatusBadGateway, EventResponse{Error: err.Error()})
		case err != nil:
			log.Error("event handling failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, EventResponse{Error: "internal error"})
		case status == "":
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusOK, EventResponse{Status: status})
		}
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// newHandler builds the service mux with its middleware.
func newHandler(h pipeline.Handler, reg *metrics.Registry, maxBody int64, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /events", handleEvent(h, log))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.Handle("GET /metrics", reg.Handler())

	return mid.Chain(mux,
		mid.Recover(log),
		mid.Logger(log, "/healthz", "/metrics"),
		mid.Metrics(reg),
		mid.OTel(cmdName),
		mid.MaxBytes(maxBody),
	)
}
