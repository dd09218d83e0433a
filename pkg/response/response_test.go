package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func render(t *testing.T, handler gin.HandlerFunc) (int, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body %q is not an envelope: %v", w.Body.String(), err)
	}
	return w.Code, resp
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		handler gin.HandlerFunc
		status  int
		code    int
		message string
	}{
		{"success", func(c *gin.Context) { Success(c, gin.H{"title": "Riverside Library"}) }, 200, 0, "ok"},
		{"created", func(c *gin.Context) { Created(c, gin.H{"id": 1}) }, 201, 0, "created"},
		{"bad request", func(c *gin.Context) { BadRequest(c, "invalid amount") }, 400, 400, "invalid amount"},
		{"unauthorized", func(c *gin.Context) { Unauthorized(c, "token expired") }, 401, 401, "token expired"},
		{"forbidden", func(c *gin.Context) { Forbidden(c, "admin required") }, 403, 403, "admin required"},
		{"not found", func(c *gin.Context) { NotFound(c, "project not found") }, 404, 404, "project not found"},
		{"conflict", func(c *gin.Context) { Conflict(c, "already attached") }, 409, 409, "already attached"},
		{"server error", func(c *gin.Context) { ServerError(c, "disk full") }, 500, 500, "disk full"},
		{"app error", func(c *gin.Context) { Error(c, NewBadRequest("missing name")) }, 400, 400, "missing name"},
		{"wrapped app error", func(c *gin.Context) {
			Error(c, errors.Join(errors.New("context"), NewNotFound("consultant not found")))
		}, 404, 404, "consultant not found"},
		{"plain error", func(c *gin.Context) { Error(c, errors.New("connection refused")) }, 500, 500, "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := render(t, tt.handler)
			if status != tt.status {
				t.Errorf("status = %d, expected %d", status, tt.status)
			}
			if resp.Code != tt.code || resp.Message != tt.message {
				t.Errorf("envelope = {%d %q}, expected {%d %q}", resp.Code, resp.Message, tt.code, tt.message)
			}
		})
	}
}

type quotaError struct{}

func (quotaError) Error() string { return "quota exceeded" }

func TestResolve_RegisteredTranslator(t *testing.T) {
	saved := translators
	defer func() { translators = saved }()

	RegisterTranslator(func(err error) *AppError {
		var q quotaError
		if errors.As(err, &q) {
			return NewConflict(q.Error())
		}
		return nil
	})

	if got := Resolve(quotaError{}); got.HTTPStatus != http.StatusConflict {
		t.Errorf("Resolve(quotaError) status = %d, expected 409", got.HTTPStatus)
	}
	if got := Resolve(errors.New("other")); got.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("unrecognized errors should fall back to 500, got %d", got.HTTPStatus)
	}
}
