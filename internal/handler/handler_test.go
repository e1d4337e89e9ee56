package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func postJSON(t *testing.T, h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", uint64(1))
	h(c)
	return w
}

func TestSubmitRejectsInvalidBody(t *testing.T) {
	h := NewPostHandler()
	w := postJSON(t, h.Submit, `{"pod_id": "not-a-number"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	h := NewPostHandler()
	w := postJSON(t, h.Submit, `{"pod_id": 1}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestPodCreateRejectsMissingName(t *testing.T) {
	h := NewPodHandler()
	w := postJSON(t, h.Create, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestWebhookRejectsUnknownEvent(t *testing.T) {
	h := NewAccountHandler()
	w := postJSON(t, h.Webhook, `{"user_id": 1, "event": "exploded"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}

func TestRegisterRejectsBadEmail(t *testing.T) {
	h := NewUserHandler()
	w := postJSON(t, h.Register, `{"username": "a", "password": "longenough", "email": "not-an-email"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", w.Code)
	}
}
