package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_Wait(t *testing.T) {
	l := New(Config{
		RPS:   10, // 100ms interval
		Burst: 1,
	})
	ctx := context.Background()

	start := time.Now()
	if err := l.Wait(ctx, "test.example"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Fatalf("first wait should be immediate, took %v", time.Since(start))
	}

	start = time.Now()
	if err := l.Wait(ctx, "test.example"); err != nil {
		t.Fatal(err)
	}
	if dur := time.Since(start); dur < 80*time.Millisecond {
		t.Errorf("expected wait ~100ms, got %v", dur)
	}
}

func TestLimiter_DifferentHosts(t *testing.T) {
	l := New(Config{RPS: 1, Burst: 1})
	ctx := context.Background()

	if err := l.Wait(ctx, "a.example"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Wait(ctx, "b.example"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("host b blocked unexpectedly")
	}
}

func TestLimiter_ContextCanceled(t *testing.T) {
	l := New(Config{RPS: 0.1, Burst: 1})
	if err := l.Wait(context.Background(), "slow.example"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Wait(ctx, "slow.example"); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := New(Config{})
	for i := 0; i < 50; i++ {
		if err := l.Wait(context.Background(), "fast.example"); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLimiter_Client(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := New(Config{RPS: 100, Burst: 1}).Client(time.Second)
	for i := 0; i < 2; i++ {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("unexpected status %d", resp.StatusCode)
		}
	}
}
