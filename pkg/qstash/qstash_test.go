package qstash

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPublish(t *testing.T) {
	t.Parallel()

	var (
		gotPath  string
		gotBody  string
		gotDedup string
		gotAuth  string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotDedup = r.Header.Get("Upstash-Deduplication-Id")
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		fmt.Fprint(w, `{"messageId":"msg_123"}`)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, Token: "tok"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	client.WithHTTPClient(server.Client())

	id, err := client.Publish(context.Background(), PublishRequest{
		Destination:     "https://worker.example.com/email",
		Body:            []byte(`{"to":"a@example.com"}`),
		DeduplicationID: "triage-t1-email-1",
	})
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if id != "msg_123" {
		t.Fatalf("Publish() id = %q, want msg_123", id)
	}
	if !strings.HasPrefix(gotPath, "/v2/publish/https:/") {
		t.Fatalf("path = %q, want /v2/publish/<destination>", gotPath)
	}
	if gotDedup != "triage-t1-email-1" {
		t.Fatalf("dedup header = %q", gotDedup)
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody != `{"to":"a@example.com"}` {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestPublishErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid destination"}`)
	}))
	t.Cleanup(server.Close)

	client := MustNew(Config{URL: server.URL, Token: "tok"}).WithHTTPClient(server.Client())
	_, err := client.Publish(context.Background(), PublishRequest{Destination: "https://x.example.com"})
	if err == nil || !strings.Contains(err.Error(), "invalid destination") {
		t.Fatalf("Publish() error = %v, want invalid destination", err)
	}

	if _, err := client.Publish(context.Background(), PublishRequest{}); err == nil {
		t.Fatal("Publish() without destination: error = nil")
	}
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{URL: "https://qstash.upstash.io"}); err == nil {
		t.Fatal("missing token: error = nil")
	}
	if _, err := NewClient(Config{URL: "::bad", Token: "x"}); err == nil {
		t.Fatal("bad url: error = nil")
	}
}
