package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseRouteInfo(t *testing.T) {
	tests := []struct {
		path   string
		method string
		module string
		action string
	}{
		{"/api/projects", "POST", "projects", "create"},
		{"/api/consultants/:email", "PUT", "consultants", "update"},
		{"/api/groups/:id", "DELETE", "groups", "delete"},
		{"/api/projects/:id/consultants", "POST", "projects", "consultants.create"},
		{"/api/projects/:id/payments/:paymentID/paid", "POST", "projects", "paid"},
		{"/api/consultants/:email/move", "POST", "consultants", "move"},
		{"/api/consultants/:email/tasks/:taskID", "DELETE", "consultants", "tasks.delete"},
		{"/api/auth/password", "PUT", "auth", "password"},
		{"", "PATCH", "unknown", "patch"},
	}

	for _, tt := range tests {
		module, action := parseRouteInfo(tt.path, tt.method)
		if module != tt.module || action != tt.action {
			t.Errorf("parseRouteInfo(%q, %q) = (%q, %q), expected (%q, %q)",
				tt.path, tt.method, module, action, tt.module, tt.action)
		}
	}
}

func TestAuditBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		hidden  []string
		visible []string
	}{
		{"flat", `{"username":"alice","password":"hunter2","new_password": "s3cret"}`,
			[]string{"hunter2", "s3cret"}, []string{`"username":"alice"`, `"password":"***"`}},
		{"nested", `{"ldap":{"bind_password":"pw1"},"items":[{"Token":"abc"}]}`,
			[]string{"pw1", "abc"}, []string{`"Token":"***"`}},
		{"non json", `title=Library`, nil, []string{"title=Library"}},
		{"empty", "  ", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := auditBody([]byte(tt.body))
			for _, s := range tt.hidden {
				if strings.Contains(got, s) {
					t.Errorf("auditBody() = %s, %q should be masked", got, s)
				}
			}
			for _, s := range tt.visible {
				if !strings.Contains(got, s) {
					t.Errorf("auditBody() = %s, expected %q", got, s)
				}
			}
			if len(tt.visible) == 0 && got != "" {
				t.Errorf("auditBody() = %q, expected empty", got)
			}
		})
	}
}

func TestAuditBody_TruncatesAfterMasking(t *testing.T) {
	body := `{"password":"hunter2","notes":"` + strings.Repeat("x", 600) + `"}`
	got := auditBody([]byte(body))
	if !strings.HasSuffix(got, "...[truncated]") {
		t.Errorf("auditBody() should be truncated, got %d bytes", len(got))
	}
	if strings.Contains(got, "hunter2") {
		t.Error("auditBody() leaked the password")
	}
}

func TestFormatAuditMessage(t *testing.T) {
	if got := formatAuditMessage("alice", "POST", "/api/projects", 201); got != "[Audit] alice POST /api/projects -> OK" {
		t.Errorf("formatAuditMessage() = %q", got)
	}
	if got := formatAuditMessage("alice", "DELETE", "/api/projects/9", 404); !strings.HasSuffix(got, "Failed") {
		t.Errorf("formatAuditMessage() = %q, expected Failed suffix", got)
	}
}

func TestAuditLog_PreservesBody(t *testing.T) {
	router := gin.New()
	router.Use(AuditLog())
	router.POST("/api/projects", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusCreated, body)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/projects", strings.NewReader(`{"title":"Library"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	if !strings.Contains(w.Body.String(), "Library") {
		t.Error("handler should still see the request body")
	}
}
