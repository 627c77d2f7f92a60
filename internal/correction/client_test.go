package correction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JonMunkholm/freight/internal/config"
	"github.com/JonMunkholm/freight/internal/core"
	"github.com/google/go-cmp/cmp"
)

func testClient(url string, attempts int) *Client {
	return NewClient(config.CorrectionConfig{
		BaseURL:     url,
		Timeout:     2 * time.Second,
		MaxAttempts: attempts,
		Backoff:     time.Millisecond,
	})
}

func ptr(f float64) *float64 { return &f }

func TestCorrectCity_SendsNormalizedCity(t *testing.T) {
	var gotBody correctRequest
	var gotPath, gotMethod, gotType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod, gotType = r.URL.Path, r.Method, r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"original":"helsinkki","corrected":"Helsinki","confidence":0.87}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL+"/", 1).CorrectCity(context.Background(), "  HELSINKKI ")
	if err != nil {
		t.Fatalf("CorrectCity() error = %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != CorrectPath {
		t.Errorf("request = %s %s, want POST %s", gotMethod, gotPath, CorrectPath)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotBody.City != "helsinkki" {
		t.Errorf("sent city = %q, want %q", gotBody.City, "helsinkki")
	}

	want := core.CityCorrection{Original: "helsinkki", Corrected: "Helsinki", Confidence: ptr(0.87)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CorrectCity() mismatch (-want +got):\n%s", diff)
	}
}

func TestCorrectCity_MissingConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"original":"espoo","corrected":"Espoo"}`))
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, 1).CorrectCity(context.Background(), "Espoo")
	if err != nil {
		t.Fatalf("CorrectCity() error = %v", err)
	}
	if got.Confidence != nil {
		t.Errorf("Confidence = %v, want nil", *got.Confidence)
	}
}

func TestCorrectCity_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad request", http.StatusBadRequest, `{"error":"no city"}`},
		{"not found", http.StatusNotFound, ``},
		{"empty corrected", http.StatusOK, `{"original":"x","corrected":"  "}`},
		{"malformed json", http.StatusOK, `{"corrected":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := testClient(srv.URL, 3).CorrectCity(context.Background(), "x"); err == nil {
				t.Fatal("CorrectCity() expected error")
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("calls = %d, want 1 (no retry)", n)
			}
		})
	}
}

func TestCorrectCity_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 1).CorrectCity(context.Background(), "x")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StatusError", err)
	}
	if se.Code != http.StatusUnprocessableEntity || se.Body != "model not loaded" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestCorrectCity_RetriesTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte(`{"original":"turku","corrected":"Turku","confidence":1}`))
		}
	}))
	defer srv.Close()

	got, err := testClient(srv.URL, 3).CorrectCity(context.Background(), "turku")
	if err != nil {
		t.Fatalf("CorrectCity() error = %v", err)
	}
	if got.Corrected != "Turku" {
		t.Errorf("Corrected = %q, want Turku", got.Corrected)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestCorrectCity_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 2).CorrectCity(context.Background(), "x")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("error = %v, want 502 StatusError", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestCorrectCity_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := testClient(url, 2).CorrectCity(context.Background(), "x"); err == nil {
		t.Fatal("CorrectCity() expected error for unreachable service")
	}
}

func TestCorrectCity_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL, 3).CorrectCity(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("calls = %d, want 0", n)
	}
}
