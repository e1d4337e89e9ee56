package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAPIErrorTransient(t *testing.T) {
	cases := []struct {
		code      int
		transient bool
	}{
		{429, true},
		{500, true},
		{503, true},
		{504, true},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{422, false},
		// 未知状态码按永久失败处理
		{418, false},
		{599, false},
	}
	for _, tc := range cases {
		e := &APIError{Code: tc.code}
		if e.Transient() != tc.transient {
			t.Errorf("code %d: Transient() = %v, want %v", tc.code, e.Transient(), tc.transient)
		}
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
	if !IsTransient(errors.New("connection reset")) {
		t.Error("network-level error should be transient")
	}
	if IsTransient(&APIError{Code: 400}) {
		t.Error("400 should be permanent")
	}
	if !IsTransient(&APIError{Code: 429}) {
		t.Error("429 should be transient")
	}
}

func TestPerformReaction(t *testing.T) {
	var gotPath string
	var gotAuth string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	if err := c.PerformReaction(context.Background(), "urn:member:1", "urn:share:9", "like"); err != nil {
		t.Fatalf("PerformReaction: %v", err)
	}
	if gotPath != "/reactions" {
		t.Errorf("path = %s", gotPath)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("auth = %s", gotAuth)
	}
	if !strings.Contains(gotBody, `"reaction":"like"`) {
		t.Errorf("body = %s", gotBody)
	}
}

func TestPerformCommentErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	err := c.PerformComment(context.Background(), "urn:member:1", "urn:share:9", "nice post")
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Code != http.StatusTooManyRequests {
		t.Errorf("code = %d", ae.Code)
	}
	if !ae.Transient() {
		t.Error("429 should be transient")
	}
}

func TestFetchMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("urn") != "urn:share:9" {
			t.Errorf("urn query = %s", r.URL.Query().Get("urn"))
		}
		w.Write([]byte(`{"reactions": 42}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	n, err := c.FetchMetrics(context.Background(), "urn:share:9")
	if err != nil {
		t.Fatalf("FetchMetrics: %v", err)
	}
	if n != 42 {
		t.Errorf("reactions = %d, want 42", n)
	}
}

func TestGenerateComment(t *testing.T) {
	got := GenerateComment("")
	if got == "" {
		t.Fatal("empty comment")
	}
	got = GenerateComment("From one founder to another:")
	if !strings.HasPrefix(got, "From one founder to another: ") {
		t.Errorf("prompt prefix missing: %q", got)
	}
}
