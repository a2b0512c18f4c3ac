// Package inspect exposes an HTTP diagnostics surface for the runtime:
// per-namespace storage information and Prometheus metrics. It is
// informational only and creates no dependency-tracking side effects.
package inspect

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fluxion-dev/fluxion/pkg/storage"
)

// Handler serves diagnostics for a set of registered reactive storage
// views. Mount it wherever the host application serves operational
// endpoints:
//
//	h := inspect.NewHandler()
//	h.Register(settings)
//	http.ListenAndServe(":9090", h)
type Handler struct {
	mux    chi.Router
	logger *slog.Logger

	mu     sync.RWMutex
	stores map[string]*storage.Reactive
}

// NewHandler creates a diagnostics handler with routes for health,
// metrics, and per-namespace storage info.
func NewHandler() *Handler {
	h := &Handler{
		mux:    chi.NewRouter(),
		logger: slog.Default().With("component", "inspect"),
		stores: make(map[string]*storage.Reactive),
	}

	h.mux.Get("/healthz", h.handleHealth)
	h.mux.Handle("/metrics", promhttp.Handler())
	h.mux.Get("/storage", h.handleList)
	h.mux.Get("/storage/{namespace}", h.handleInfo)

	return h
}

// Register adds a reactive view, keyed by its namespace. Re-registering a
// namespace replaces the previous view.
func (h *Handler) Register(r *storage.Reactive) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stores[r.Namespace()] = r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	namespaces := make([]string, 0, len(h.stores))
	for ns := range h.stores {
		namespaces = append(namespaces, ns)
	}
	h.mu.RUnlock()

	sort.Strings(namespaces)
	h.writeJSON(w, map[string]any{"namespaces": namespaces})
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "namespace")

	h.mu.RLock()
	view, ok := h.stores[ns]
	h.mu.RUnlock()

	if !ok {
		http.Error(w, "unknown namespace", http.StatusNotFound)
		return
	}

	info, err := storage.Inspect(r.Context(), view)
	if err != nil {
		h.logger.Error("inspect failed", "namespace", ns, "error", err)
		http.Error(w, "inspect failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, info)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode failed", "error", err)
	}
}
