package analyzer_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/observer/internal/analyzer"
	"github.com/raysh454/observer/internal/webclient"
)

func TestNewGenerator_UnknownProvider(t *testing.T) {
	t.Parallel()
	_, err := analyzer.NewGenerator(analyzer.Config{Provider: "llama-on-a-toaster"}, nil, nil)
	assert.Error(t, err)
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	t.Parallel()

	type seen struct {
		header http.Header
		body   map[string]any
	}
	reqs := make(chan seen, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(data, &body)
		reqs <- seen{header: r.Header.Clone(), body: body}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","content":[{"type":"text","text":"{\"findings\":[]}"}]}`)
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	require.NoError(t, err)

	g := analyzer.NewAnthropicGenerator(analyzer.Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "m"}, wc, nil)
	out, err := g.Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"findings":[]}`, out)

	got := <-reqs
	assert.Equal(t, "sk-test", got.header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", got.header.Get("anthropic-version"))
	assert.Equal(t, "sys", got.body["system"])
	assert.Equal(t, "m", got.body["model"])
}

func TestAnthropicGenerator_DefaultModel(t *testing.T) {
	t.Parallel()

	models := make(chan any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		models <- body["model"]

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"content":[{"type":"text","text":"ok"}]}`)
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	require.NoError(t, err)

	g := analyzer.NewAnthropicGenerator(analyzer.Config{APIKey: "sk-test", BaseURL: srv.URL}, wc, nil)
	_, err = g.Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", <-models)
	assert.Equal(t, "claude-sonnet-4-5", analyzer.DefaultAnthropicModel)
}

func TestAnthropicGenerator_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	require.NoError(t, err)

	g := analyzer.NewAnthropicGenerator(analyzer.Config{APIKey: "bad", BaseURL: srv.URL}, wc, nil)
	_, err = g.Generate(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authentication_error")
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	g := analyzer.NewOpenAIGenerator(analyzer.Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	out, err := g.Generate(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestOpenAIGenerator_MissingKey(t *testing.T) {
	t.Parallel()

	g := analyzer.NewOpenAIGenerator(analyzer.Config{}, nil)
	_, err := g.Generate(context.Background(), "sys", "prompt")
	assert.ErrorIs(t, err, analyzer.ErrMissingCredential)
}
