package webclient_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/webclient"
)

func newClient(t *testing.T, ts *httptest.Server, cfg webclient.Config) *webclient.NetHTTPClient {
	t.Helper()
	client, err := webclient.NewNetHTTPClient(cfg, logging.NopLogger{}, ts.Client())
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// ─── Do: real HTTP round-trip via httptest ──────────────────────────────

func TestNetHTTPClient_Do_GET_ReturnsBody(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "hello")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "response body")
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})

	resp, err := client.Do(context.Background(), &webclient.Request{
		Method: "GET",
		URL:    ts.URL + "/test",
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "response body" {
		t.Errorf("expected 'response body', got %q", resp.Body)
	}
	if resp.Headers.Get("X-Custom") != "hello" {
		t.Errorf("expected X-Custom header 'hello', got %q", resp.Headers.Get("X-Custom"))
	}
	if !resp.OK() {
		t.Error("expected OK() for 200")
	}
}

func TestNetHTTPClient_Do_POST_SendsBody(t *testing.T) {
	t.Parallel()
	var receivedBody, receivedMethod string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		receivedBody = string(body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})

	resp, err := client.Do(context.Background(), &webclient.Request{
		Method: "post",
		URL:    ts.URL + "/submit",
		Body:   []byte("payload"),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if receivedMethod != "POST" {
		t.Errorf("expected POST, got %s", receivedMethod)
	}
	if receivedBody != "payload" {
		t.Errorf("expected body 'payload', got %q", receivedBody)
	}
	if resp.StatusCode != 201 {
		t.Errorf("expected 201, got %d", resp.StatusCode)
	}
}

func TestNetHTTPClient_Do_DefaultUserAgent(t *testing.T) {
	t.Parallel()
	var ua string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})
	if _, err := client.Get(context.Background(), ts.URL); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ua != webclient.DefaultUserAgent {
		t.Errorf("expected default user agent, got %q", ua)
	}
}

func TestNetHTTPClient_Do_RequestHeadersWin(t *testing.T) {
	t.Parallel()
	var ua, accept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		accept = r.Header.Get("Accept")
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{UserAgent: "cfg-agent"})
	hdrs := http.Header{}
	hdrs.Set("User-Agent", "custom-agent")
	hdrs.Set("Accept", webclient.DefaultAccept)

	if _, err := client.Do(context.Background(), &webclient.Request{URL: ts.URL, Headers: hdrs}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if ua != "custom-agent" {
		t.Errorf("expected request user agent to win, got %q", ua)
	}
	if accept != webclient.DefaultAccept {
		t.Errorf("expected Accept forwarded, got %q", accept)
	}
}

func TestNetHTTPClient_Do_ContextCanceled(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.Get(ctx, ts.URL); err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestNetHTTPClient_Do_NilRequest(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	if _, err := client.Do(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil request")
	}
}

func TestNewNetHTTPClient_DefaultTimeout(t *testing.T) {
	t.Parallel()
	client, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	if got := client.HTTPClient().Timeout; got != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", got)
	}

	client, _ = webclient.NewNetHTTPClient(webclient.Config{Timeout: 15 * time.Second}, nil, nil)
	if got := client.HTTPClient().Timeout; got != 15*time.Second {
		t.Errorf("expected 15s timeout, got %s", got)
	}
}

// ─── Body cap ─────────────────────────────────────────────────────────────

func TestNetHTTPClient_Do_TruncatesAtBodyCap(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Query().Get("body"))
	}))
	defer ts.Close()

	client := newClient(t, ts, webclient.Config{MaxBodyBytes: 8})

	resp, err := client.Get(context.Background(), ts.URL+"/?body=0123456789abcdef")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.Truncated {
		t.Error("expected Truncated for a body over the cap")
	}
	if string(resp.Body) != "01234567" {
		t.Errorf("expected body cut to 8 bytes, got %q", resp.Body)
	}

	resp, err = client.Get(context.Background(), ts.URL+"/?body=01234567")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Truncated {
		t.Error("a body exactly at the cap is not truncated")
	}
	if string(resp.Body) != "01234567" {
		t.Errorf("unexpected body %q", resp.Body)
	}
}
