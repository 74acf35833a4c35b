// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns how many warnings were logged.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyResponse is a canned reply for one URL.
type DummyResponse struct {
	Status      int
	Body        string
	ContentType string
	Truncated   bool
}

// DummyWebClient implements webclient.WebClient.
// By default it returns body "ok:<url>" with status 200.
// Set Responses[url] for a canned reply, or FailURLs[url] = true to force
// an error for a specific URL.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Responses     map[string]DummyResponse

	mu       sync.Mutex
	Requests []*webclient.Request
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, req)
	canned, hasCanned := d.Responses[req.URL]
	fail := d.FailURLs[req.URL]
	d.mu.Unlock()

	if fail {
		return nil, &errString{"dummy fetch fail for " + req.URL}
	}

	resp := &webclient.Response{
		Request:    req,
		Headers:    http.Header{},
		Body:       []byte("ok:" + req.URL),
		StatusCode: http.StatusOK,
		FetchedAt:  time.Now(),
	}
	if hasCanned {
		resp.Body = []byte(canned.Body)
		if canned.Status != 0 {
			resp.StatusCode = canned.Status
		}
		if canned.ContentType != "" {
			resp.Headers.Set("Content-Type", canned.ContentType)
		}
		resp.Truncated = canned.Truncated
	}
	return resp, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// SetResponse replaces the canned reply for url.
func (d *DummyWebClient) SetResponse(url string, r DummyResponse) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Responses == nil {
		d.Responses = map[string]DummyResponse{}
	}
	d.Responses[url] = r
}

// RequestCount returns how many requests were received.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── Generator ─────────────────────────────────────────────────────────

// StubGenerator implements analyzer.Generator with a fixed reply.
type StubGenerator struct {
	Reply string
	Err   error
	Delay time.Duration

	mu      sync.Mutex
	Prompts []string
}

func (g *StubGenerator) Generate(ctx context.Context, _, prompt string) (string, error) {
	g.mu.Lock()
	g.Prompts = append(g.Prompts, prompt)
	g.mu.Unlock()

	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

// Calls returns how many prompts were received.
func (g *StubGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

// LastPrompt returns the most recent prompt, or "".
func (g *StubGenerator) LastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Prompts) == 0 {
		return ""
	}
	return g.Prompts[len(g.Prompts)-1]
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
