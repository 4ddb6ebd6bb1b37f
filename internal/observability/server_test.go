package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"live-transcript-service/internal/observability/metrics"
)

func TestHandler_Health(t *testing.T) {
	h := NewHandler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body 'ok', got %q", rec.Body.String())
	}
}

func TestHandler_Readiness(t *testing.T) {
	tests := []struct {
		name     string
		ready    func() bool
		expected int
	}{
		{"nil probe", nil, http.StatusOK},
		{"stream open", func() bool { return true }, http.StatusOK},
		{"stream not open", func() bool { return false }, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(tt.ready).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rec.Code != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestHandler_Metrics(t *testing.T) {
	metrics.DefaultMetrics.RecordMessage(false)

	rec := httptest.NewRecorder()
	NewHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "live_transcript_messages_discarded_total") {
		t.Error("expected discarded message counter in metrics output")
	}
}
