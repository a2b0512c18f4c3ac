package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fluxion-dev/fluxion/pkg/storage"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	backend := storage.NewMemoryBackend()
	settings := storage.New(backend, "settings")
	settings.Set(context.Background(), "theme", "dark")

	h := NewHandler()
	h.Register(settings)
	h.Register(storage.New(backend, "session"))
	return h
}

func TestHandlerHealth(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestHandlerListNamespaces(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Namespaces []string `json:"namespaces"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []string{"session", "settings"}
	if len(body.Namespaces) != 2 || body.Namespaces[0] != want[0] || body.Namespaces[1] != want[1] {
		t.Errorf("namespaces = %v, want %v", body.Namespaces, want)
	}
}

func TestHandlerStorageInfo(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/settings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var info storage.Info
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Key != "settings:" || info.Namespace != "settings" || info.Backend != "memory" {
		t.Errorf("info = %+v", info)
	}
	if !info.Exists || info.Keys != 1 || info.SizeBytes == 0 {
		t.Errorf("info = %+v, want one non-empty key", info)
	}
}

func TestHandlerUnknownNamespace(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/storage/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
