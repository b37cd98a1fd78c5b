package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	OK(c, http.StatusCreated, "created", gin.H{"id": "1"})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["success"] != true || body["message"] != "created" || body["data"].(map[string]any)["id"] != "1" {
		t.Fatalf("body = %v", body)
	}
	if _, ok := body["meta"]; ok {
		t.Fatalf("meta present without value: %v", body)
	}
}

func TestOKNullData(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	OK(c, http.StatusOK, "logged_out", nil)

	body := decode(t, rec)
	data, ok := body["data"]
	if !ok || data != nil {
		t.Fatalf("data must be an explicit null: %v", body)
	}
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	Fail(c, http.StatusForbidden, "forbidden", "AUTH_FORBIDDEN")

	if rec.Code != http.StatusForbidden || !c.IsAborted() {
		t.Fatalf("status = %d aborted = %v", rec.Code, c.IsAborted())
	}
	body := decode(t, rec)
	errBody := body["error"].(map[string]any)
	if body["success"] != false || errBody["code"] != "AUTH_FORBIDDEN" {
		t.Fatalf("body = %v", body)
	}
	if _, ok := errBody["details"]; ok {
		t.Fatalf("details present without value: %v", body)
	}
}

func TestFailWithDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	FailWithDetails(c, http.StatusBadRequest, "bad", "VALIDATION_X", []string{"field"})

	errBody := decode(t, rec)["error"].(map[string]any)
	if details, ok := errBody["details"].([]any); !ok || details[0] != "field" {
		t.Fatalf("details = %v", errBody["details"])
	}
}
