package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"dytto/internal/models"
)

func newTestRemote(t *testing.T, handler http.HandlerFunc) (*RemoteAnalyzer, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return NewRemoteAnalyzer(RemoteConfig{
		BaseURL:    server.URL,
		Timeout:    time.Second,
		RatePerSec: 100,
	}), &calls
}

func TestRemoteAnalyzer_Success(t *testing.T) {
	remote, calls := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			t.Errorf("Expected /analyze, got %s", r.URL.Path)
		}
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sentiment":      "Positive",
			"emotional_tone": []string{"warm"},
			"suggestions":    []string{"a", "b", "c", "d"},
			"confidence":     1.7,
		})
	})

	result, err := remote.Analyze(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Sentiment != models.SentimentPositive {
		t.Errorf("Expected positive, got %s", result.Sentiment)
	}
	if len(result.Topics) != 1 || result.Topics[0] != GeneralTopic {
		t.Errorf("Expected general topic default, got %v", result.Topics)
	}
	if len(result.Suggestions) != 3 {
		t.Errorf("Expected suggestions truncated to 3, got %d", len(result.Suggestions))
	}
	if result.Confidence != 1 {
		t.Errorf("Expected confidence clamped to 1, got %f", result.Confidence)
	}

	// second call is served from cache
	if _, err := remote.Analyze(context.Background(), "hello there"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("Expected 1 upstream call, got %d", atomic.LoadInt32(calls))
	}
}

func TestRemoteAnalyzer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}},
		{"unknown sentiment", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"sentiment":"ecstatic"}`))
		}},
		{"timeout", func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(1500 * time.Millisecond)
			w.Write([]byte(`{"sentiment":"neutral"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote, _ := newTestRemote(t, tt.handler)
			_, err := remote.Analyze(context.Background(), "content")
			if !errors.Is(err, models.ErrAnalysisFailed) {
				t.Errorf("Expected ErrAnalysisFailed, got %v", err)
			}
		})
	}
}
