package casesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, server *httptest.Server, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = server.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = server.Client()
	}
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientDefaultsAndValidation(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrAPIKeyRequired) {
		t.Fatalf("expected ErrAPIKeyRequired, got %v", err)
	}
	client, err := New(Config{APIKey: "key", BaseURL: "https://cases.local/api/"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.baseURL != "https://cases.local/api" {
		t.Fatalf("expected trailing slash trimmed, got %s", client.baseURL)
	}
	if client.httpClient.Timeout != 10*time.Second {
		t.Fatalf("expected default timeout, got %s", client.httpClient.Timeout)
	}
}

func TestCreateCase(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/cases" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		var req CaseRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Contact != "01012345678" || req.CustomerName != "naver3" {
			t.Errorf("unexpected payload %+v", req)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"case-77","status":"open"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{APIKey: "secret"})
	created, err := client.CreateCase(context.Background(), CaseRequest{
		CustomerName:     "naver3",
		Contact:          "01012345678",
		ConsultationType: "phone-consultation",
	})
	if err != nil {
		t.Fatalf("create case: %v", err)
	}
	if created.ID != "case-77" {
		t.Fatalf("unexpected case %+v", created)
	}
}

func TestCreateCaseMissingIDIsMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"open"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	_, err := client.CreateCase(context.Background(), CaseRequest{Contact: "01012345678", ConsultationType: "phone-consultation"})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if kind := Classify(err); kind != UnknownFailure {
		t.Fatalf("expected unknown failure, got %s", kind)
	}
}

func TestCreateCaseClassifiesStatus(t *testing.T) {
	cases := []struct {
		status int
		want   FailureKind
	}{
		{http.StatusUnauthorized, AuthFailure},
		{http.StatusForbidden, AuthFailure},
		{http.StatusBadRequest, ValidationFailure},
		{http.StatusUnprocessableEntity, ValidationFailure},
		{http.StatusConflict, ValidationFailure},
		{http.StatusInternalServerError, ServerFailure},
		{http.StatusServiceUnavailable, ServerFailure},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"title":"rejected","detail":"nope"}`))
			}))
			defer server.Close()

			client := newTestClient(t, server, Config{})
			_, err := client.CreateCase(context.Background(), CaseRequest{Contact: "01012345678", ConsultationType: "visit-consultation"})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.StatusCode != tc.status || apiErr.Title != "rejected" {
				t.Fatalf("unexpected api error %+v", apiErr)
			}
			if got := Classify(err); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCreateCaseTimeoutIsNetworkFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(t, server, Config{HTTPClient: &http.Client{Timeout: 50 * time.Millisecond}})
	_, err := client.CreateCase(context.Background(), CaseRequest{Contact: "01012345678", ConsultationType: "phone-consultation"})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if kind := Classify(err); kind != NetworkFailure {
		t.Fatalf("expected network failure, got %s (%v)", kind, err)
	}
}

func TestCreateCaseConnectionRefusedIsNetworkFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client, err := New(Config{APIKey: "key", BaseURL: "http://" + addr})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.CreateCase(context.Background(), CaseRequest{Contact: "01012345678", ConsultationType: "phone-consultation"})
	if kind := Classify(err); kind != NetworkFailure {
		t.Fatalf("expected network failure, got %s (%v)", kind, err)
	}
}

func TestListCasesByContact(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/cases" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("contact"); got != "01012345678" {
			t.Errorf("unexpected contact query %q", got)
		}
		_, _ = w.Write([]byte(`{"count":2,"cases":[
			{"id":"c1","assigned_staff":"Kim","created_at":"2026-01-01T00:00:00Z"},
			{"id":"c2","assigned_staff":"Lee","created_at":"2026-02-01T00:00:00Z"}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	list, err := client.ListCasesByContact(context.Background(), "01012345678")
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	if list.Count != 2 || len(list.Cases) != 2 {
		t.Fatalf("unexpected list %+v", list)
	}
	staff, ok := list.LatestAssignedStaff()
	if !ok || staff != "Lee" {
		t.Fatalf("expected Lee, got %q (%v)", staff, ok)
	}
}

func TestListCasesByContactMalformed(t *testing.T) {
	for _, body := range []string{`not json`, `{}`, `{"count":-1}`} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		client := newTestClient(t, server, Config{})
		_, err := client.ListCasesByContact(context.Background(), "01012345678")
		server.Close()
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("body %q: expected ErrMalformedResponse, got %v", body, err)
		}
	}
}

func TestListCasesCountFallsBackToCases(t *testing.T) {
	list, err := decodeCaseList([]byte(`{"data":{"cases":[{"id":"a"},{"id":"b"},{"id":"c"}]}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 3 {
		t.Fatalf("expected count 3, got %d", list.Count)
	}
}

func TestClassify(t *testing.T) {
	if got := Classify(nil); got != "" {
		t.Fatalf("expected empty kind for nil, got %s", got)
	}
	if got := Classify(fmt.Errorf("wrap: %w", context.DeadlineExceeded)); got != NetworkFailure {
		t.Fatalf("expected network for deadline, got %s", got)
	}
	if got := Classify(errors.New("boom")); got != UnknownFailure {
		t.Fatalf("expected unknown, got %s", got)
	}
	if got := Classify(&APIError{StatusCode: 502}); got != ServerFailure {
		t.Fatalf("expected server for bare 502, got %s", got)
	}
}
