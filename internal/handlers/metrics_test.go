package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWriteGauge(t *testing.T) {
	var b strings.Builder
	writeGauge(&b, "consultdesk_test", "A test gauge", 2.5)

	expected := "# HELP consultdesk_test A test gauge\n# TYPE consultdesk_test gauge\nconsultdesk_test 2.5\n\n"
	if b.String() != expected {
		t.Errorf("writeGauge() = %q, expected %q", b.String(), expected)
	}
}

func TestMetricsWithoutDatabase(t *testing.T) {
	r := gin.New()
	r.GET("/metrics", Metrics)

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, expected 200", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	for _, name := range []string{"consultdesk_uptime_seconds", "consultdesk_sse_active_clients", "consultdesk_queue_async_enabled"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("metrics should contain %s", name)
		}
	}
	if strings.Contains(w.Body.String(), "consultdesk_tasks_open") {
		t.Error("domain gauges need a database")
	}
}
