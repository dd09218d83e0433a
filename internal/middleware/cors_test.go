package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantAllowed bool
	}{
		{"no origins allows any", nil, "http://localhost:5173", true},
		{"wildcard allows any", []string{"*"}, "https://anything.example", true},
		{"listed origin", []string{"https://desk.example.com"}, "https://desk.example.com", true},
		{"unlisted origin", []string{"https://desk.example.com"}, "https://evil.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORS(tt.origins...))
			router.GET("/api/projects", func(c *gin.Context) { c.Status(http.StatusOK) })

			req, _ := http.NewRequest(http.MethodGet, "/api/projects", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			allowed := w.Header().Get("Access-Control-Allow-Origin") == tt.origin
			if allowed != tt.wantAllowed {
				t.Errorf("origin allowed = %v, expected %v", allowed, tt.wantAllowed)
			}
			if tt.wantAllowed && w.Header().Get("Access-Control-Allow-Credentials") != "true" {
				t.Error("credentials should be allowed for bearer and cookie clients")
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	router := gin.New()
	router.Use(CORS("https://desk.example.com"))
	router.PUT("/api/projects/:id/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest(http.MethodOptions, "/api/projects/1/status", nil)
	req.Header.Set("Origin", "https://desk.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent && w.Code != http.StatusOK {
		t.Errorf("preflight status = %d, expected 200 or 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://desk.example.com" {
		t.Errorf("preflight Allow-Origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
