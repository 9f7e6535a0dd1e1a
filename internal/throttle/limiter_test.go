package throttle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	for i := 0; i < 50; i++ {
		if err := limiter.Wait(ctx, "https://en.wikipedia.org/w/api.php"); err != nil {
			t.Fatalf("request %d throttled with limiting disabled: %v", i, err)
		}
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "http://example.com/foo"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
	if err := limiter.Wait(ctx, "http://other.example.com"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimitIsPerHost(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "http://example.com"

	if err := limiter.Wait(context.Background(), url); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	// burst of 1 is consumed; the next token is 100s away
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, url); err == nil {
		t.Errorf("expected wait to fail with exhausted tokens")
	}

	if err := limiter.Wait(context.Background(), "http://other.com"); err != nil {
		t.Errorf("expected clearance for other host: %v", err)
	}
}

func TestLimiter_InvalidURL(t *testing.T) {
	if err := NewLimiter(10, 1).Wait(context.Background(), "://bad"); err == nil {
		t.Errorf("expected error for unparsable URL")
	}
}

func TestSleep(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 30*time.Millisecond); err != nil {
		t.Fatalf("sleep failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected delay >= 30ms, got %v", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Errorf("expected error from cancelled context")
	}

	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("zero sleep should not fail: %v", err)
	}
}

func TestTransport_WaitsPerHost(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: NewTransport(nil, NewLimiter(1000, 1))}
	for i := 0; i < 3; i++ {
		resp, err := client.Get(server.URL)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		_ = resp.Body.Close()
	}

	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected 3 calls, got %d", got)
	}
}

func TestTransport_CancelledContext(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	// drain the only token
	if err := limiter.Wait(context.Background(), "http://127.0.0.1:1"); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:1", nil)
	if _, err := NewTransport(nil, limiter).RoundTrip(req); err == nil {
		t.Errorf("expected error when context is cancelled while throttled")
	}
}
