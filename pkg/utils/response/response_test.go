package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"skillforge/pkg/errors"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(c)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return w, body
}

func TestSuccessEnvelope(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		Success(c, "done", gin.H{"id": "abc"})
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if body["success"] != true {
		t.Error("success should be true")
	}
	if body["message"] != "done" {
		t.Errorf("message = %v", body["message"])
	}
	data := body["data"].(map[string]interface{})
	if data["id"] != "abc" {
		t.Errorf("data.id = %v", data["id"])
	}
}

func TestCreatedReturns201(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		Created(c, "", gin.H{"id": "new"})
	})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if body["message"] != "Created" {
		t.Errorf("default message = %v", body["message"])
	}
}

func TestErrorMapsCodeToStatus(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		Error(c, errors.New(errors.AlreadyClaimed))
	})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if body["success"] != false {
		t.Error("success should be false")
	}
	if body["message"] != "Solution already claimed by another reviewer" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestErrorIncludesValidationDetails(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		Error(c, errors.ValidationError("title", "required"))
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	details := body["details"].(map[string]interface{})
	if details["field"] != "title" {
		t.Errorf("details.field = %v", details["field"])
	}
}

func TestErrorWrapsForeignErrorsAs500(t *testing.T) {
	w, _ := perform(t, func(c *gin.Context) {
		Error(c, http.ErrServerClosed)
	})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestSuccessWithPagination(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		SuccessWithPagination(c, "", []string{"a", "b"}, 25, 2, 10)
	})
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	data := body["data"].(map[string]interface{})
	if data["total"] != float64(25) {
		t.Errorf("total = %v", data["total"])
	}
	if data["totalPages"] != float64(3) {
		t.Errorf("totalPages = %v", data["totalPages"])
	}
	if data["hasNextPage"] != true || data["hasPrevPage"] != true {
		t.Errorf("hasNextPage=%v hasPrevPage=%v", data["hasNextPage"], data["hasPrevPage"])
	}
	items := data["data"].([]interface{})
	if len(items) != 2 {
		t.Errorf("items = %d", len(items))
	}
}

func TestTraceIDEchoedWhenSet(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("trace_id", "trace-123")
	Success(c, "", nil)

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["trace_id"] != "trace-123" {
		t.Errorf("trace_id = %v", body["trace_id"])
	}
}
