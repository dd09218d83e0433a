package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/huangang/consultdesk/internal/middleware"
	"github.com/huangang/consultdesk/internal/services"
	"github.com/huangang/consultdesk/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterErrorTranslator()
}

const testOwner uint = 1

// newTestRouter wires the workspace routes over an in-memory repository and
// authenticates every request as testOwner.
func newTestRouter(t *testing.T) (*gin.Engine, *services.MemoryRepository) {
	t.Helper()
	repo := services.NewMemoryRepository()
	ws := services.NewWorkspace(repo, services.NewEventHub())

	router := gin.New()
	api := router.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, testOwner)
		c.Set(middleware.ContextUsername, "alice")
		c.Next()
	})
	RegisterWorkspaceRoutes(api, ws)
	return router, repo
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) (int, response.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp response.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: invalid response %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("data = %#v, expected an object", resp.Data)
	}
	return m
}

func createProject(t *testing.T, router *gin.Engine) string {
	t.Helper()
	code, resp := do(t, router, "POST", "/api/projects", map[string]interface{}{
		"title":        "Riverside Library",
		"client_name":  "City Council",
		"client_email": "council@city.gov",
	})
	if code != http.StatusCreated {
		t.Fatalf("create project status = %d (%s)", code, resp.Message)
	}
	return jsonNumber(dataMap(t, resp)["id"].(float64))
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}

func TestConsultantRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	code, resp := do(t, router, "POST", "/api/consultants", map[string]interface{}{
		"name": "Ana", "email": "Ana@X.com", "specialty": "Architect",
	})
	if code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", code, resp.Message)
	}
	if got := dataMap(t, resp)["email"]; got != "ana@x.com" {
		t.Errorf("email = %v, expected normalized address", got)
	}

	code, resp = do(t, router, "POST", "/api/consultants", map[string]interface{}{
		"name": "Ana again", "email": "ana@x.com",
	})
	if code != http.StatusBadRequest {
		t.Errorf("duplicate email status = %d, expected %d (%s)", code, http.StatusBadRequest, resp.Message)
	}

	code, _ = do(t, router, "POST", "/api/consultants", map[string]interface{}{"name": "No email"})
	if code != http.StatusBadRequest {
		t.Errorf("missing email status = %d, expected %d", code, http.StatusBadRequest)
	}

	code, resp = do(t, router, "PUT", "/api/consultants/ana@x.com", map[string]interface{}{
		"name": "Ana Silva", "specialty": "Structural Engineer",
	})
	if code != http.StatusOK {
		t.Fatalf("update status = %d (%s)", code, resp.Message)
	}
	if got := dataMap(t, resp)["name"]; got != "Ana Silva" {
		t.Errorf("name = %v, expected %q", got, "Ana Silva")
	}

	code, resp = do(t, router, "GET", "/api/consultants/grouped", nil)
	if code != http.StatusOK {
		t.Fatalf("grouped status = %d", code)
	}
	groups, ok := resp.Data.([]interface{})
	if !ok || len(groups) != 1 {
		t.Fatalf("grouped data = %#v, expected one group", resp.Data)
	}

	code, _ = do(t, router, "DELETE", "/api/consultants/ana@x.com", nil)
	if code != http.StatusOK {
		t.Errorf("delete status = %d", code)
	}
	code, _ = do(t, router, "DELETE", "/api/consultants/ana@x.com", nil)
	if code != http.StatusNotFound {
		t.Errorf("second delete status = %d, expected %d", code, http.StatusNotFound)
	}
}

func TestGroupAndMoveRoutes(t *testing.T) {
	router, _ := newTestRouter(t)

	do(t, router, "POST", "/api/consultants", map[string]interface{}{"name": "Ana", "email": "ana@x.com"})
	code, resp := do(t, router, "POST", "/api/groups", map[string]interface{}{"title": "Favourites"})
	if code != http.StatusCreated {
		t.Fatalf("create group status = %d (%s)", code, resp.Message)
	}
	groupID := dataMap(t, resp)["id"].(float64)

	code, resp = do(t, router, "POST", "/api/consultants/ana@x.com/move", map[string]interface{}{
		"from_group": 0, "to_group": groupID,
	})
	if code != http.StatusOK || dataMap(t, resp)["moved"] != true {
		t.Fatalf("move status = %d data = %#v", code, resp.Data)
	}

	code, resp = do(t, router, "POST", "/api/consultants/ana@x.com/move", map[string]interface{}{
		"from_group": groupID, "to_group": groupID,
	})
	if code != http.StatusOK || dataMap(t, resp)["moved"] != false {
		t.Errorf("same-group move status = %d data = %#v, expected no change", code, resp.Data)
	}
}

func TestProjectRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createProject(t, router)

	code, resp := do(t, router, "GET", "/api/projects/"+id, nil)
	if code != http.StatusOK || dataMap(t, resp)["status"] != "active" {
		t.Fatalf("get status = %d data = %#v", code, resp.Data)
	}

	code, _ = do(t, router, "PUT", "/api/projects/"+id+"/status", map[string]interface{}{"status": "archived"})
	if code != http.StatusBadRequest {
		t.Errorf("invalid status code = %d, expected %d", code, http.StatusBadRequest)
	}

	code, resp = do(t, router, "PUT", "/api/projects/"+id+"/status", map[string]interface{}{"status": "on-hold"})
	if code != http.StatusOK || dataMap(t, resp)["status"] != "on-hold" {
		t.Errorf("status update = %d data = %#v", code, resp.Data)
	}

	code, _ = do(t, router, "GET", "/api/projects/999", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown project status = %d, expected %d", code, http.StatusNotFound)
	}
	code, _ = do(t, router, "GET", "/api/projects/abc", nil)
	if code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, expected %d", code, http.StatusBadRequest)
	}
}

func TestEngagementAndPaymentRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	id := createProject(t, router)
	do(t, router, "POST", "/api/consultants", map[string]interface{}{"name": "Ana", "email": "ana@x.com"})

	base := "/api/projects/" + id
	code, resp := do(t, router, "POST", base+"/consultants", map[string]interface{}{"email": "ana@x.com"})
	if code != http.StatusCreated {
		t.Fatalf("attach status = %d (%s)", code, resp.Message)
	}
	code, _ = do(t, router, "POST", base+"/consultants", map[string]interface{}{"email": "ana@x.com"})
	if code != http.StatusConflict {
		t.Errorf("second attach status = %d, expected %d", code, http.StatusConflict)
	}

	code, _ = do(t, router, "PUT", base+"/consultants/ana@x.com/quote", map[string]interface{}{"quote": 1000})
	if code != http.StatusOK {
		t.Fatalf("quote status = %d", code)
	}

	code, resp = do(t, router, "POST", base+"/payments", map[string]interface{}{
		"email": "ana@x.com", "amount": 400, "invoice_name": "INV-1",
	})
	if code != http.StatusCreated {
		t.Fatalf("invoice status = %d (%s)", code, resp.Message)
	}
	paymentID := jsonNumber(dataMap(t, resp)["id"].(float64))

	code, resp = do(t, router, "POST", base+"/payments", map[string]interface{}{
		"email": "ana@x.com", "amount": 700, "invoice_name": "INV-2",
	})
	if code != http.StatusBadRequest || resp.Message != services.MsgExceedsQuote {
		t.Errorf("over-quote invoice = %d %q, expected %d %q", code, resp.Message, http.StatusBadRequest, services.MsgExceedsQuote)
	}

	code, _ = do(t, router, "POST", base+"/payments/"+paymentID+"/paid", nil)
	if code != http.StatusOK {
		t.Errorf("mark paid status = %d", code)
	}
	code, _ = do(t, router, "POST", base+"/payments/"+paymentID+"/paid", nil)
	if code != http.StatusConflict {
		t.Errorf("second mark paid status = %d, expected %d", code, http.StatusConflict)
	}

	code, resp = do(t, router, "GET", base+"/payments", nil)
	if code != http.StatusOK {
		t.Fatalf("ledger status = %d", code)
	}
	summary := dataMap(t, resp)["summary"].(map[string]interface{})
	if summary["total_quote"] != 1000.0 || summary["total_invoiced"] != 400.0 || summary["total_paid"] != 400.0 {
		t.Errorf("summary = %#v", summary)
	}
}

func TestPersistenceFailureSurfacesMessage(t *testing.T) {
	router, repo := newTestRouter(t)
	repo.FailOn("InsertProject", true)

	code, resp := do(t, router, "POST", "/api/projects", map[string]interface{}{
		"title": "Library", "client_name": "City", "client_email": "city@gov.org",
	})
	if code != http.StatusInternalServerError {
		t.Errorf("status = %d, expected %d", code, http.StatusInternalServerError)
	}
	if !strings.Contains(resp.Message, services.ErrStoreDown.Error()) {
		t.Errorf("message = %q, expected the store error", resp.Message)
	}

	repo.FailOn("InsertProject", false)
	_, resp = do(t, router, "GET", "/api/projects", nil)
	if items, _ := resp.Data.([]interface{}); len(items) != 0 {
		t.Errorf("projects = %#v, failed create should not be visible", resp.Data)
	}
}

func TestTaskRoutes(t *testing.T) {
	router, _ := newTestRouter(t)
	do(t, router, "POST", "/api/consultants", map[string]interface{}{"name": "Ana", "email": "ana@x.com"})
	base := "/api/consultants/ana@x.com/tasks"

	code, resp := do(t, router, "POST", base, map[string]interface{}{
		"description": "Send drawings", "due_date": "2026-10-20",
	})
	if code != http.StatusCreated {
		t.Fatalf("add status = %d (%s)", code, resp.Message)
	}
	taskID := dataMap(t, resp)["id"].(string)

	code, resp = do(t, router, "POST", base, map[string]interface{}{
		"description": "Review", "related_task_ids": []string{taskID, "missing"},
	})
	if code != http.StatusCreated {
		t.Fatalf("add related status = %d", code)
	}

	code, _ = do(t, router, "POST", base, map[string]interface{}{"description": "   "})
	if code != http.StatusOK {
		t.Errorf("blank add status = %d, expected %d", code, http.StatusOK)
	}
	code, _ = do(t, router, "POST", base, map[string]interface{}{"description": "x", "due_date": "20/10/2026"})
	if code != http.StatusBadRequest {
		t.Errorf("bad due date status = %d, expected %d", code, http.StatusBadRequest)
	}

	code, resp = do(t, router, "POST", base+"/"+taskID+"/toggle", nil)
	if code != http.StatusOK || dataMap(t, resp)["changed"] != true {
		t.Errorf("toggle = %d %#v", code, resp.Data)
	}

	_, resp = do(t, router, "GET", base, nil)
	items := resp.Data.([]interface{})
	if len(items) != 2 {
		t.Fatalf("tasks = %d, expected 2", len(items))
	}
	if items[0].(map[string]interface{})["completed"] != true {
		t.Error("first task should be completed")
	}
	related := items[1].(map[string]interface{})["related"].([]interface{})
	if len(related) != 2 || related[0] != "Send drawings" || related[1] != services.TaskNotFound {
		t.Errorf("related = %#v", related)
	}

	code, _ = do(t, router, "GET", "/api/consultants/nobody@x.com/tasks", nil)
	if code != http.StatusNotFound {
		t.Errorf("unknown consultant status = %d, expected %d", code, http.StatusNotFound)
	}
}

func TestHealth_NoDatabase(t *testing.T) {
	router := gin.New()
	router.GET("/health", NewHealthHandler(nil, services.NewEventHub(), services.NewSyncQueue()).CheckHealth)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, expected %d", w.Code, http.StatusServiceUnavailable)
	}
	if !strings.Contains(w.Body.String(), `"queue_mode":"sync"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestTranslateError_UnknownIsNil(t *testing.T) {
	if translateError(http.ErrAbortHandler) != nil {
		t.Error("unrelated errors should not be translated")
	}
}

func TestDashboardRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	code, resp := do(t, router, "GET", "/api/dashboard", nil)
	if code != http.StatusOK {
		t.Fatalf("empty dashboard status = %d (%s)", code, resp.Message)
	}
	if got := dataMap(t, resp)["stats"].(map[string]interface{})["active_projects"]; got != 0.0 {
		t.Errorf("active_projects = %v, expected 0", got)
	}

	createProject(t, router)
	do(t, router, "POST", "/api/consultants", map[string]interface{}{"name": "Ana", "email": "ana@x.com"})

	_, resp = do(t, router, "GET", "/api/dashboard", nil)
	stats := dataMap(t, resp)["stats"].(map[string]interface{})
	if stats["active_projects"] != 1.0 || stats["consultants"] != 1.0 {
		t.Errorf("stats = %v, expected one active project and one consultant", stats)
	}
	if projects := dataMap(t, resp)["project_stats"].([]interface{}); len(projects) != 1 {
		t.Errorf("project_stats = %v, expected one entry", projects)
	}
}

func TestEmailPathIsCaseInsensitive(t *testing.T) {
	router, _ := newTestRouter(t)

	code, resp := do(t, router, "POST", "/api/consultants", map[string]interface{}{
		"name": "Alice", "email": "Alice@X.com", "specialty": "Civil Engineer",
	})
	if code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", code, resp.Message)
	}
	project := createProject(t, router)
	engagement := "/api/projects/" + project + "/consultants/Alice@X.com"

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"update", "PUT", "/api/consultants/Alice@X.com", map[string]interface{}{"name": "Alice Chen"}, http.StatusOK},
		{"attach", "POST", "/api/projects/" + project + "/consultants", map[string]interface{}{"email": "ALICE@x.com"}, http.StatusCreated},
		{"quote", "PUT", engagement + "/quote", map[string]interface{}{"quote": 1000}, http.StatusOK},
		{"quote beyond bound", "PUT", engagement + "/quote", map[string]interface{}{"quote": 1e18}, http.StatusBadRequest},
		{"status", "PUT", engagement + "/status", map[string]interface{}{"status": "completed"}, http.StatusOK},
		{"invoice", "POST", "/api/projects/" + project + "/payments", map[string]interface{}{
			"email": "Alice@X.com", "amount": 400, "invoice_name": "Design"}, http.StatusCreated},
		{"invoice beyond bound", "POST", "/api/projects/" + project + "/payments", map[string]interface{}{
			"email": "alice@x.com", "amount": 1e18, "invoice_name": "Huge"}, http.StatusBadRequest},
		{"add task", "POST", "/api/consultants/Alice@X.com/tasks", map[string]interface{}{"description": "Send drawings"}, http.StatusCreated},
		{"list tasks", "GET", "/api/consultants/ALICE@X.COM/tasks", nil, http.StatusOK},
		{"detach", "DELETE", engagement, nil, http.StatusOK},
		{"delete", "DELETE", "/api/consultants/Alice@X.com", nil, http.StatusOK},
	}

	for _, tt := range tests {
		code, resp := do(t, router, tt.method, tt.path, tt.body)
		if code != tt.status {
			t.Errorf("%s: status = %d, expected %d (%s)", tt.name, code, tt.status, resp.Message)
		}
	}
}
