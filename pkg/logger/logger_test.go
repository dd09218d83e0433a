package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInitWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("warn", "json", &buf)
	defer Init("info", "")

	Info().Msg("hidden")
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message should be written")
	}
}

func TestInitWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("loud", "json", &buf)
	defer Init("info", "")

	Debug().Msg("debug line")
	Info().Msg("info line")

	out := buf.String()
	if strings.Contains(out, "debug line") {
		t.Error("debug should be filtered when falling back to info")
	}
	if !strings.Contains(out, "info line") {
		t.Error("info should be written when falling back to info")
	}
}

func TestInitWithWriter_Format(t *testing.T) {
	tests := []struct {
		level, format string
		json          bool
	}{
		{"info", "", true},
		{"debug", "", false},
		{"debug", "json", true},
		{"info", "console", false},
	}
	defer Init("info", "")

	for _, tt := range tests {
		var buf bytes.Buffer
		InitWithWriter(tt.level, tt.format, &buf)
		Info().Msg("line")

		var entry map[string]interface{}
		isJSON := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry) == nil
		if isJSON != tt.json {
			t.Errorf("Init(%q, %q) json = %v, expected %v: %s", tt.level, tt.format, isJSON, tt.json, buf.String())
		}
	}
}

func TestGinLogger_RequestID(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", "json", &buf)
	defer Init("info", "")

	router := gin.New()
	router.Use(GinLogger())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, RequestID(c))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	router.ServeHTTP(w, req)
	if w.Body.String() != "req-42" || w.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("incoming id not reused: body %q header %q", w.Body.String(), w.Header().Get(RequestIDHeader))
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("log line should carry the request id, got %s", buf.String())
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ping", nil)
	router.ServeHTTP(w, req)
	if id := w.Header().Get(RequestIDHeader); id == "" || id != w.Body.String() {
		t.Errorf("generated id = %q, handler saw %q", id, w.Body.String())
	}
}

func TestGinLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", "json", &buf)
	defer Init("info", "")

	router := gin.New()
	router.Use(GinLogger())
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/missing?x=1", nil)
	router.ServeHTTP(w, req)

	out := buf.String()
	if !strings.Contains(out, `"status":404`) {
		t.Errorf("expected status in log line, got %s", out)
	}
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("4xx responses should log at warn, got %s", out)
	}
}

func TestGinRecovery_Returns500(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", "json", &buf)
	defer Init("info", "")

	router := gin.New()
	router.Use(GinRecovery())
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/panic", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Error("panic should be logged")
	}
}
