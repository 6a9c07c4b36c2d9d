package gateway

import (
	"net/http"

	"github.com/nexuslabs/nexus/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger log.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK when the service can answer requests. The
// gateway has no backing dependencies: the local responder guarantees an
// answer even with no provider configured, so readiness equals liveness.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
