package classify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthState(t *testing.T) {
	cases := map[string]string{
		``:                                   "ok",
		`not json`:                           "ok",
		`{"status": "READY"}`:                "ready",
		`{"state": "Degraded"}`:              "degraded",
		`{"ready": false}`:                   "loading",
		`{"model": {"ready": true}}`:         "ready",
		`{"uptime": 12}`:                     "ok",
		`{"status": "up", "state": "other"}`: "up",
	}
	for body, want := range cases {
		if got := healthState([]byte(body)); got != want {
			t.Errorf("healthState(%q) = %q, want %q", body, got, want)
		}
	}
}

func TestPollHealthNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	states := make(chan string, 1)
	go PollHealth(ctx, srv.URL, time.Hour, func(s string) {
		select {
		case states <- s:
		default:
		}
	})
	select {
	case s := <-states:
		if s != "http_503" {
			t.Fatalf("unexpected state: %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for health state")
	}
}

func TestPollHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	states := make(chan string, 4)
	go PollHealth(ctx, srv.URL, 10*time.Millisecond, func(s string) {
		select {
		case states <- s:
		default:
		}
	})
	defer cancel()

	select {
	case s := <-states:
		if s != "ok" {
			t.Fatalf("unexpected state: %q", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for health state")
	}
}
