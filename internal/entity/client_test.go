package entity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dwrignell/homesynth/internal/infrastructure/config"
)

func testClient(serverURL string) *Client {
	return NewClient(config.HomeAssistantConfig{
		BaseURL:       serverURL,
		Token:         "test-token",
		VerifySSL:     true,
		Timeout:       5,
		RetryAttempts: 3,
		RetryBackoff:  1, // keep test backoff negligible
	})
}

func TestClient_States(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode([]Record{
			{EntityID: "light.kitchen", State: "off"},
			{EntityID: "sensor.outdoor_temp", State: "18.2"},
		})
	}))
	defer server.Close()

	records, err := testClient(server.URL).States(context.Background())
	if err != nil {
		t.Fatalf("States() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("States() returned %d records, want 2", len(records))
	}
}

func TestClient_StateNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).State(context.Background(), "light.nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("State() error = %v, want ErrNotFound", err)
	}
}

func TestClient_StateInvalidID(t *testing.T) {
	_, err := testClient("http://unused").State(context.Background(), "notanid")
	if !errors.Is(err, ErrInvalidID) {
		t.Errorf("State() error = %v, want ErrInvalidID", err)
	}
}

func TestClient_RetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode([]Record{{EntityID: "light.kitchen", State: "on"}})
	}))
	defer server.Close()

	records, err := testClient(server.URL).States(context.Background())
	if err != nil {
		t.Fatalf("States() error after retries = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("States() returned %d records, want 1", len(records))
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3", calls.Load())
	}
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := testClient(server.URL).States(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("States() error = %v, want ErrTimeout", err)
	}
	if calls.Load() != 3 {
		t.Errorf("server called %d times, want 3 attempts", calls.Load())
	}
}

func TestClient_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := testClient(server.URL).States(context.Background())
	if !errors.Is(err, ErrAPIStatus) {
		t.Fatalf("States() error = %v, want ErrAPIStatus", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1 (4xx must not retry)", calls.Load())
	}
}

func TestClient_CallService(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/services/light/turn_on" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if payload["entity_id"] != "light.kitchen" {
			t.Errorf("entity_id = %v", payload["entity_id"])
		}
		if payload["brightness"] != float64(200) {
			t.Errorf("brightness = %v", payload["brightness"])
		}
		w.Write([]byte("[]")) //nolint:errcheck // Test handler
	}))
	defer server.Close()

	_, err := testClient(server.URL).CallService(context.Background(),
		"light", "turn_on", "light.kitchen", map[string]any{"brightness": 200})
	if err != nil {
		t.Fatalf("CallService() error = %v", err)
	}
}

func TestClient_CheckConfig(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantOK     bool
		wantErrors int
	}{
		{
			name:     "valid",
			response: `{"result": "valid", "errors": null}`,
			wantOK:   true,
		},
		{
			name:       "invalid with string error",
			response:   `{"result": "invalid", "errors": "Component not found: bad_platform"}`,
			wantOK:     false,
			wantErrors: 1,
		},
		{
			name:       "invalid with list",
			response:   `{"result": "invalid", "errors": ["first", "second"]}`,
			wantOK:     false,
			wantErrors: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/config/core/check_config" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				w.Write([]byte(tt.response)) //nolint:errcheck // Test handler
			}))
			defer server.Close()

			result, err := testClient(server.URL).CheckConfig(context.Background())
			if err != nil {
				t.Fatalf("CheckConfig() error = %v", err)
			}
			if result.OK != tt.wantOK {
				t.Errorf("OK = %v, want %v", result.OK, tt.wantOK)
			}
			if len(result.Errors) != tt.wantErrors {
				t.Errorf("Errors = %v, want %d entries", result.Errors, tt.wantErrors)
			}
		})
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(server.URL).States(ctx)
	if err == nil {
		t.Error("States() with cancelled context returned nil error")
	}
}
