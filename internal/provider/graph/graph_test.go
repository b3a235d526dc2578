package graph

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shineum/email-worker-devsend/internal/provider"
)

func TestGraphProvider_Name(t *testing.T) {
	t.Parallel()

	p := &GraphProvider{}
	if p.Name() != "graph" {
		t.Errorf("Name: got %q, want %q", p.Name(), "graph")
	}
}

func TestGraphProvider_DeliverMIME(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32
	tokenServer := newTokenServer(t, &tokenCalls, 3600)

	raw := "From: a@x.com\r\nTo: b@y.com\r\nSubject: Test\r\n\r\nHi there"

	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			t.Errorf("Authorization header: got %q, want %q", r.Header.Get("Authorization"), "Bearer token-1")
		}
		if r.Header.Get("Content-Type") != "text/plain" {
			t.Errorf("Content-Type header: got %q, want %q", r.Header.Get("Content-Type"), "text/plain")
		}

		body, _ := io.ReadAll(r.Body)
		decoded, err := base64.StdEncoding.DecodeString(string(body))
		if err != nil {
			t.Errorf("body is not base64: %v", err)
		}
		if string(decoded) != raw {
			t.Errorf("decoded body: got %q, want %q", decoded, raw)
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer graphServer.Close()

	p := newWithOverrides(
		GraphProviderConfig{ClientID: "c", ClientSecret: "s", Sender: "a@x.com"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)

	resp, err := p.Deliver(context.Background(), &provider.Envelope{From: "a@x.com", To: "b@y.com", Raw: []byte(raw)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("StatusCode: got %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if !resp.OK() {
		t.Error("OK(): got false for 202")
	}
}

func TestGraphProvider_ErrorStatusReturnedOnce(t *testing.T) {
	t.Parallel()

	var tokenCalls atomic.Int32
	tokenServer := newTokenServer(t, &tokenCalls, 3600)

	var graphCalls atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		graphCalls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(graphErrorResponse{
			Error: graphError{Code: "ServiceUnavailable", Message: "Try again"},
		})
	}))
	defer graphServer.Close()

	p := newWithOverrides(
		GraphProviderConfig{ClientID: "c", ClientSecret: "s", Sender: "a@x.com"},
		graphServer.URL, tokenServer.URL, graphServer.Client(),
	)

	resp, err := p.Deliver(context.Background(), &provider.Envelope{Raw: []byte("x")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode: got %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
	if graphCalls.Load() != 1 {
		t.Errorf("graph call count: got %d, want 1", graphCalls.Load())
	}

	gerr, ok := decodeGraphError(resp.Body)
	if !ok || gerr.Code != "ServiceUnavailable" {
		t.Errorf("decodeGraphError: got %+v, %v", gerr, ok)
	}
}

func TestGraphProvider_TokenFailure(t *testing.T) {
	t.Parallel()

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer tokenServer.Close()

	var graphCalls atomic.Int32
	graphServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		graphCalls.Add(1)
	}))
	defer graphServer.Close()

	p := newWithOverrides(GraphProviderConfig{}, graphServer.URL, tokenServer.URL, graphServer.Client())

	if _, err := p.Deliver(context.Background(), &provider.Envelope{Raw: []byte("x")}); err == nil {
		t.Fatal("expected error, got nil")
	}
	if graphCalls.Load() != 0 {
		t.Errorf("graph must not be called without a token, got %d calls", graphCalls.Load())
	}
}

func TestDecodeGraphError_NotGraphBody(t *testing.T) {
	t.Parallel()

	if _, ok := decodeGraphError([]byte("plain text")); ok {
		t.Error("expected ok=false for a non-JSON body")
	}
}
