package classify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseResponseFood(t *testing.T) {
	text := "Here you go:\n```json\n{\"is_food\": true, \"name\": \"Roma Tomatoes\", \"category\": \"Fresh Produce\", \"quantity\": 4, \"expiry_date\": \"null\", \"brand\": null}\n```"
	rec := ParseResponse(text)
	if !rec.IsFood || rec.Name != "Roma Tomatoes" || rec.Category != "Fresh Produce" {
		t.Fatalf("unexpected recognition: %#v", rec)
	}
	if rec.Quantity != 4 {
		t.Fatalf("unexpected quantity: %v", rec.Quantity)
	}
	if rec.ExpiryDate != "" || rec.Brand != "" {
		t.Fatalf("null fields should be empty: %#v", rec)
	}
}

func TestParseResponseDefaults(t *testing.T) {
	rec := ParseResponse(`{"is_food": true, "name": "Milk"}`)
	if rec.Quantity != 1 {
		t.Fatalf("quantity should default to 1, got %v", rec.Quantity)
	}

	rec = ParseResponse(`{"is_food": false}`)
	if rec.IsFood || rec.Description != "Not a food item" {
		t.Fatalf("unexpected non-food recognition: %#v", rec)
	}
}

func TestParseResponseGarbage(t *testing.T) {
	rec := ParseResponse("I could not see anything")
	if rec.IsFood || rec.Error == "" || rec.RawResponse == "" {
		t.Fatalf("unexpected recognition: %#v", rec)
	}
}

func TestHTTPClassifier(t *testing.T) {
	var gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"is_food": true, "name": "Apple", "category": "Fresh Produce"}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL, time.Second)
	rec, err := c.Classify(context.Background(), []byte{0xFF, 0xD8})
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if rec.Name != "Apple" {
		t.Fatalf("unexpected recognition: %#v", rec)
	}
	if gotType != "image/jpeg" || len(gotBody) != 2 {
		t.Fatalf("unexpected request: type=%q body=%v", gotType, gotBody)
	}
}

func TestHTTPClassifierErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := NewHTTPClassifier(srv.URL, time.Second).Classify(context.Background(), nil); err == nil {
		t.Fatalf("expected error for 429")
	}
	if _, err := NewHTTPClassifier("", 0).Classify(context.Background(), nil); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("expected ErrMissingBaseURL, got %v", err)
	}
}

func TestMockClassifierDeterministic(t *testing.T) {
	img := []byte("same image bytes")
	first, _ := MockClassifier{}.Classify(context.Background(), img)
	for i := 0; i < 3; i++ {
		again, _ := MockClassifier{}.Classify(context.Background(), img)
		if again != first {
			t.Fatalf("mock answer changed: %#v vs %#v", first, again)
		}
	}
}
