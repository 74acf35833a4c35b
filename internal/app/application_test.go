package app_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/observer/internal/app"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/pipeline"
	"github.com/raysh454/observer/internal/testutil"
)

func newTarget(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><head><title>Status</title></head><body>all systems operational</body></html>")
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newApp(t *testing.T, mutate func(*app.Config)) *app.Application {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.Analysis.APIKey = ""
	if mutate != nil {
		mutate(cfg)
	}
	a, err := app.NewApplication(cfg, &testutil.DummyLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNewApplication_EndToEndRun(t *testing.T) {
	t.Parallel()
	target := newTarget(t)
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	a := newApp(t, func(c *app.Config) { c.Archive.Path = dbPath })

	run, err := a.Coordinator.Run(context.Background(), pipeline.Request{Targets: []string{target.URL}})
	require.NoError(t, err)

	for _, s := range run.Stages {
		assert.Equal(t, model.StageSuccess, s.Status, "stage %s: %s", s.Name, s.Error)
	}
	analysis, ok := run.Stages[2].Result.(*model.AnalysisResult)
	require.True(t, ok)
	assert.Equal(t, model.AnalysisUnavailable, analysis.Status, "no credential means unavailable, not failed")

	snap, ok := a.Snapshots.Latest(target.URL)
	require.True(t, ok)
	assert.Equal(t, "Status", snap.Title)
	assert.Equal(t, "text/html", snap.ContentType)

	require.NotNil(t, a.Archive)
	archived, err := a.Archive.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, archived.ID)
}

func TestNewApplication_InvalidSchedulerTarget(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Scheduler.Targets = []string{"ftp://bad.example"}

	_, err := app.NewApplication(cfg, nil)
	assert.Error(t, err)
}

func TestNewApplication_UnknownProvider(t *testing.T) {
	t.Parallel()
	cfg := app.DefaultConfig()
	cfg.Analysis.Provider = "mystery"

	_, err := app.NewApplication(cfg, nil)
	assert.Error(t, err)
}

func TestApplication_ServeAndShutdown(t *testing.T) {
	t.Parallel()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	a := newApp(t, func(c *app.Config) { c.Server.ListenAddr = addr })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
