package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestWebhookChannel_Send(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload["text"] != "hello staff" {
			t.Errorf("unexpected text %q", payload["text"])
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, server.Client(), nil)
	if err := ch.Send(context.Background(), Message{Kind: KindSuccess, Text: "hello staff"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWebhookChannel_NoRetryOnFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, server.Client(), nil)
	if err := ch.Send(context.Background(), Message{Kind: KindFailure, Text: "x"}); err == nil {
		t.Fatal("expected error for 500")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestNewWebhookChannel_NilWithoutURL(t *testing.T) {
	if NewWebhookChannel("  ", nil, nil) != nil {
		t.Fatal("expected nil channel without URL")
	}
}
