package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wolfman30/lawfirm-intake/pkg/logging"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Level: "info", Format: "json", Writer: &buf})

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
	req.Header.Set("X-Request-ID", "req-123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, `"msg":"request completed"`) {
		t.Fatalf("expected completion log, got %s", out)
	}
	if !strings.Contains(out, `"status":202`) {
		t.Fatalf("expected status in log, got %s", out)
	}
	if !strings.Contains(out, `"request_id":"req-123"`) {
		t.Fatalf("expected request id in log, got %s", out)
	}
}

func TestRequestLoggerLevelsAndRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithOptions(logging.Options{Level: "info", Format: "json", Writer: &buf})

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	req := httptest.NewRequest(http.MethodPatch, "/admin/records/by-phone/01012345678", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("expected warn level for 404, got %s", out)
	}
	if strings.Contains(out, "01012345678") {
		t.Fatalf("phone leaked into log: %s", out)
	}
	if !strings.Contains(out, `"path":"/admin/records/by-phone/*******5678"`) {
		t.Fatalf("expected masked path, got %s", out)
	}
}

func TestRedactPath(t *testing.T) {
	cases := map[string]string{
		"/api/leads":                          "/api/leads",
		"/admin/records/by-phone/01099998888": "/admin/records/by-phone/*******8888",
		"/x/by-phone/0101234/extra":           "/x/by-phone/***1234/extra",
	}
	for in, want := range cases {
		if got := redactPath(in); got != want {
			t.Errorf("redactPath(%q) = %q, want %q", in, got, want)
		}
	}
}
