package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/logger"
)

const auditBodyLimit = 500

var sensitiveKeys = map[string]bool{
	"password":      true,
	"old_password":  true,
	"new_password":  true,
	"bind_password": true,
	"secret":        true,
	"token":         true,
}

// Trailing route segments that name the action themselves, as in
// POST /api/consultants/:email/move.
var actionSegments = map[string]bool{
	"move": true, "toggle": true, "close": true, "paid": true, "status": true,
	"quote": true, "password": true, "logout": true, "run": true,
}

// AuditLog writes one system_logs row per mutating request, with secrets in
// the body masked.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(raw))
			body = auditBody(raw)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)
		message := formatAuditMessage(GetUsername(c), method, c.Request.URL.Path, status)
		if body != "" {
			message += " " + body
		}

		level := "info"
		if status >= http.StatusBadRequest {
			level = "warning"
		}
		var uid *uint
		if id := GetUserID(c); id > 0 {
			uid = &id
		}
		services.LogRequest(level, module, action, message, uid, services.RequestMeta{
			RequestID: logger.RequestID(c),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
	}
}

// parseRouteInfo names a route pattern for the audit log. The module is the
// first path segment. The action is a trailing verb segment when there is
// one, else the method's verb, prefixed by the sub-resource it acts on:
//
//	POST /api/projects/:id/payments          -> ("projects", "payments.create")
//	POST /api/consultants/:email/move        -> ("consultants", "move")
//	DELETE /api/projects/:id                 -> ("projects", "delete")
func parseRouteInfo(fullPath, method string) (module, action string) {
	var static []string
	for _, seg := range strings.Split(strings.TrimPrefix(fullPath, "/api/"), "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") {
			static = append(static, seg)
		}
	}
	if len(static) == 0 {
		return "unknown", methodVerb(method)
	}

	module = static[0]
	last := static[len(static)-1]
	switch {
	case len(static) > 1 && actionSegments[last]:
		action = last
	case len(static) > 1:
		action = last + "." + methodVerb(method)
	default:
		action = methodVerb(method)
	}
	return module, action
}

func methodVerb(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodDelete:
		return "delete"
	}
	return strings.ToLower(method)
}

func formatAuditMessage(username, method, path string, status int) string {
	outcome := "Failed"
	if status >= 200 && status < 300 {
		outcome = "OK"
	}
	return fmt.Sprintf("[Audit] %s %s %s -> %s", username, method, path, outcome)
}

// auditBody renders a request body for the log. JSON objects are masked
// before truncation; anything else is only truncated.
func auditBody(raw []byte) string {
	if len(bytes.TrimSpace(raw)) == 0 {
		return ""
	}
	out := string(raw)
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err == nil {
		if masked, err := json.Marshal(maskSensitive(doc)); err == nil {
			out = string(masked)
		}
	}
	if len(out) > auditBodyLimit {
		out = out[:auditBodyLimit] + "...[truncated]"
	}
	return out
}

// maskSensitive replaces the value of every sensitive key, at any depth.
func maskSensitive(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if sensitiveKeys[strings.ToLower(k)] {
				val[k] = "***"
				continue
			}
			val[k] = maskSensitive(inner)
		}
	case []interface{}:
		for i := range val {
			val[i] = maskSensitive(val[i])
		}
	}
	return v
}
