package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestMemoryGuardClaimOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	g := NewMemoryGuard(time.Minute)

	ok, err := g.Claim(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Claim() = %v, %v, want true", ok, err)
	}
	ok, err = g.Claim(ctx, "k")
	if err != nil || ok {
		t.Fatalf("second Claim() = %v, %v, want false", ok, err)
	}
	if err := g.Release(ctx, "k"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	ok, _ = g.Claim(ctx, "k")
	if !ok {
		t.Fatal("Claim() after Release = false, want true")
	}
}

func TestMemoryGuardExpires(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewMemoryGuard(time.Second)
	g.now = func() time.Time { return now }

	if ok, _ := g.Claim(context.Background(), "k"); !ok {
		t.Fatal("first Claim() = false")
	}
	now = now.Add(2 * time.Second)
	if ok, _ := g.Claim(context.Background(), "k"); !ok {
		t.Fatal("Claim() after expiry = false, want true")
	}
}

func TestMemoryGuardEmptyKey(t *testing.T) {
	t.Parallel()

	if _, err := NewMemoryGuard(0).Claim(context.Background(), " "); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("Claim() error = %v, want ErrEmptyKey", err)
	}
}

// fakeRedis answers SET NX and DEL like Upstash's REST endpoint.
type fakeRedis struct {
	mu       sync.Mutex
	keys     map[string]bool
	commands [][]any
}

func (f *fakeRedis) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer token" {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"unauthorized"}`)
		return
	}
	var cmd []any
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)

	key, _ := cmd[1].(string)
	switch cmd[0] {
	case "SET":
		if f.keys[key] {
			fmt.Fprint(w, `{"result":null}`)
			return
		}
		f.keys[key] = true
		fmt.Fprint(w, `{"result":"OK"}`)
	case "DEL":
		delete(f.keys, key)
		fmt.Fprint(w, `{"result":1}`)
	default:
		fmt.Fprint(w, `{"error":"unknown command"}`)
	}
}

func TestUpstashGuardClaimAndRelease(t *testing.T) {
	t.Parallel()

	redis := &fakeRedis{keys: map[string]bool{}}
	server := httptest.NewServer(redis)
	t.Cleanup(server.Close)

	g, err := NewUpstashGuard(
		UpstashRedisConfig{URL: server.URL, Token: "token", TTL: 90 * time.Second},
		WithHTTPClient(server.Client()),
		WithKeyPrefix("test:"),
	)
	if err != nil {
		t.Fatalf("NewUpstashGuard() error = %v", err)
	}

	ctx := context.Background()
	if ok, err := g.Claim(ctx, "triage/t1/email-1"); err != nil || !ok {
		t.Fatalf("Claim() = %v, %v, want true", ok, err)
	}
	if ok, err := g.Claim(ctx, "triage/t1/email-1"); err != nil || ok {
		t.Fatalf("second Claim() = %v, %v, want false", ok, err)
	}
	if err := g.Release(ctx, "triage/t1/email-1"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if ok, _ := g.Claim(ctx, "triage/t1/email-1"); !ok {
		t.Fatal("Claim() after Release = false, want true")
	}

	first := redis.commands[0]
	want := []any{"SET", "test:triage/t1/email-1", "1", "NX", "EX", float64(90)}
	if len(first) != len(want) {
		t.Fatalf("command = %#v, want %#v", first, want)
	}
	for i := range want {
		if first[i] != want[i] {
			t.Fatalf("command[%d] = %#v, want %#v", i, first[i], want[i])
		}
	}
}

func TestUpstashGuardSurfacesErrors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(&fakeRedis{keys: map[string]bool{}})
	t.Cleanup(server.Close)

	g, err := NewUpstashGuard(UpstashRedisConfig{URL: server.URL, Token: "wrong"}, WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("NewUpstashGuard() error = %v", err)
	}
	if _, err := g.Claim(context.Background(), "k"); err == nil {
		t.Fatal("Claim() error = nil, want http status error")
	}
	if _, err := g.Claim(context.Background(), ""); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("Claim(empty) error = %v, want ErrEmptyKey", err)
	}
}

func TestNewUpstashGuardValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewUpstashGuard(UpstashRedisConfig{Token: "x"}); err == nil {
		t.Fatal("missing url: error = nil")
	}
	if _, err := NewUpstashGuard(UpstashRedisConfig{URL: "http://localhost"}); err == nil {
		t.Fatal("missing token: error = nil")
	}
	if got := ttlSeconds(1500 * time.Millisecond); got != 2 {
		t.Fatalf("ttlSeconds(1.5s) = %d, want 2", got)
	}
}
