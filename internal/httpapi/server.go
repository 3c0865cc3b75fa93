// Package httpapi binds the admission controller's logical RPC surface
// (spec.md §6, concrete transport in SPEC_FULL.md §6) to JSON-over-HTTP,
// styled after the teacher's internal/simd/http_server.go: one
// *http.ServeMux, one handler per route, suffix dispatch for path
// parameters, and shared writeJSON/writeError helpers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/snc-qos/admission-core/internal/admission"
	"github.com/snc-qos/admission-core/internal/registry"
	"github.com/snc-qos/admission-core/pkg/logger"
)

// Server is the admission controller's HTTP surface.
type Server struct {
	mux        *http.ServeMux
	controller *admission.Controller
	metrics    *Metrics
}

// NewServer wires every route of SPEC_FULL.md §6 onto a fresh mux.
func NewServer(controller *admission.Controller) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		controller: controller,
		metrics:    NewMetrics(),
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/metrics", s.metrics.Handler().ServeHTTP)
	s.mux.HandleFunc("/v1/clients", s.handleClients)
	s.mux.HandleFunc("/v1/clients/", s.handleClientByName)
	s.mux.HandleFunc("/v1/queues", s.handleQueues)
	s.mux.HandleFunc("/v1/queues/", s.handleQueueByName)

	return s
}

// Handler returns the root http.Handler, wrapped with a per-request
// correlation id and structured access log.
func (s *Server) Handler() http.Handler {
	return s.withCorrelation(s.mux)
}

func (s *Server) withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r)
		logger.Info("http request", "request_id", requestID, "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleClients dispatches POST /v1/clients (AddClients) and GET /v1/clients
// (ListClients, a supplemented introspection endpoint — SPEC_FULL.md §12).
func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAddClients(w, r)
	case http.MethodGet:
		s.handleListClients(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAddClients(w http.ResponseWriter, r *http.Request) {
	var clients []admission.ClientDescriptor
	if err := json.NewDecoder(r.Body).Decode(&clients); err != nil {
		s.writeStatus(w, registry.InvalidArgument, "invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	result, err := s.controller.AddClients(r.Context(), clients)
	s.metrics.BatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		logger.Error("add_clients failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Admitted {
		s.metrics.AdmissionDecisions.WithLabelValues("admitted").Inc()
	} else {
		s.metrics.AdmissionDecisions.WithLabelValues("rejected").Inc()
	}
	s.observeRegistry()
	s.writeJSON(w, httpStatusFor(result.Status), map[string]any{
		"status":   result.Status.String(),
		"admitted": result.Admitted,
	})
}

// observeRegistry refreshes the registry-size gauges after any operation
// that may have changed them.
func (s *Server) observeRegistry() {
	reg := s.controller.Registry()
	s.metrics.Observe(len(reg.Queues()), len(reg.AllFlows()), len(reg.Clients()))
}

func (s *Server) handleListClients(w http.ResponseWriter, _ *http.Request) {
	clients := s.controller.Registry().Clients()
	out := make([]map[string]any, 0, len(clients))
	for _, c := range clients {
		out = append(out, map[string]any{
			"name":    c.Name,
			"slo":     c.SLOSeconds,
			"latency": c.Latency,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleClientByName dispatches GET and DELETE /v1/clients/{name}.
func (s *Server) handleClientByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/clients/")
	if name == "" {
		s.writeStatus(w, registry.MissingArgument, "client name is required")
		return
	}
	switch r.Method {
	case http.MethodDelete:
		s.handleDelClient(w, r, name)
	case http.MethodGet:
		s.handleGetClient(w, name)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDelClient(w http.ResponseWriter, r *http.Request, name string) {
	err := s.controller.DelClient(r.Context(), name)
	if err != nil {
		s.writeErrorFromStatus(w, err)
		return
	}
	s.observeRegistry()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": registry.Success.String()})
}

func (s *Server) handleGetClient(w http.ResponseWriter, name string) {
	client, ok := s.controller.Registry().ClientByName(name)
	if !ok {
		s.writeStatus(w, registry.ClientNameNonexistent, "client not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":    client.Name,
		"slo":     client.SLOSeconds,
		"latency": client.Latency,
	})
}

// handleQueues dispatches POST /v1/queues (AddQueue) and GET /v1/queues
// (ListQueues, supplemented).
func (s *Server) handleQueues(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleAddQueue(w, r)
	case http.MethodGet:
		s.handleListQueues(w)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleAddQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		Bandwidth float64 `json:"bandwidth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeStatus(w, registry.InvalidArgument, "invalid request body: "+err.Error())
		return
	}
	if err := s.controller.AddQueue(req.Name, req.Bandwidth); err != nil {
		s.writeErrorFromStatus(w, err)
		return
	}
	s.observeRegistry()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": registry.Success.String()})
}

func (s *Server) handleListQueues(w http.ResponseWriter) {
	queues := s.controller.Registry().Queues()
	out := make([]map[string]any, 0, len(queues))
	for _, q := range queues {
		out = append(out, map[string]any{
			"name":      q.Name,
			"bandwidth": q.Bandwidth,
			"flows":     len(q.FlowIDs),
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleQueueByName dispatches DELETE /v1/queues/{name}.
func (s *Server) handleQueueByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/queues/")
	if name == "" {
		s.writeStatus(w, registry.MissingArgument, "queue name is required")
		return
	}
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := s.controller.DelQueue(name); err != nil {
		s.writeErrorFromStatus(w, err)
		return
	}
	s.observeRegistry()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": registry.Success.String()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]any{"error": message})
}

// writeStatus reports a registry.Status directly, for validation failures
// the admission controller never gets a chance to classify.
func (s *Server) writeStatus(w http.ResponseWriter, status registry.Status, message string) {
	s.writeJSON(w, httpStatusFor(status), map[string]any{
		"status": status.String(),
		"error":  message,
	})
}

// writeErrorFromStatus unwraps a *registry.StatusError from err, if any,
// and reports it; otherwise the error is an internal failure.
func (s *Server) writeErrorFromStatus(w http.ResponseWriter, err error) {
	var se *registry.StatusError
	if errors.As(err, &se) {
		s.writeJSON(w, httpStatusFor(se.Status), map[string]any{
			"status": se.Status.String(),
			"error":  se.Message,
		})
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func httpStatusFor(status registry.Status) int {
	switch status {
	case registry.Success:
		return http.StatusOK
	case registry.MissingArgument, registry.InvalidArgument:
		return http.StatusBadRequest
	case registry.FlowNameInUse, registry.ClientNameInUse, registry.QueueNameInUse, registry.QueueHasActiveFlows:
		return http.StatusConflict
	case registry.FlowNameNonexistent, registry.ClientNameNonexistent, registry.QueueNameNonexistent:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
