package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/raysh454/observer/internal/fetcher"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/testutil"
	"github.com/raysh454/observer/internal/tracker"
	"github.com/raysh454/observer/internal/webclient"
)

var hex16 = regexp.MustCompile(`^[0-9a-f]{16}$`)

func newNetHTTP(t *testing.T) webclient.WebClient {
	t.Helper()
	wc, err := webclient.NewNetHTTPClient(webclient.Config{}, nil, nil)
	if err != nil {
		t.Fatalf("NewNetHTTPClient: %v", err)
	}
	return wc
}

// ─── Fetch ────────────────────────────────────────────────────────────────

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><head><title> Status Board </title></head><body>ok</body></html>")
	}))
	defer srv.Close()

	store := tracker.NewSnapshotStore(5)
	f := fetcher.New(fetcher.DefaultConfig(), store, newNetHTTP(t), nil)

	snap := f.Fetch(context.Background(), srv.URL)

	if snap.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", snap.StatusCode)
	}
	if snap.ContentType != "text/html" {
		t.Errorf("content type = %q, want text/html", snap.ContentType)
	}
	if snap.Title != "Status Board" {
		t.Errorf("title = %q", snap.Title)
	}
	if snap.ContentLength != len(snap.Content) || snap.ContentLength == 0 {
		t.Errorf("content length = %d, content %d bytes", snap.ContentLength, len(snap.Content))
	}
	if !hex16.MatchString(snap.Fingerprint) {
		t.Errorf("fingerprint %q is not 16 hex chars", snap.Fingerprint)
	}
	if snap.ID == "" || snap.Timestamp.IsZero() {
		t.Errorf("snapshot id/timestamp not set: %+v", snap)
	}
	got := <-headers
	if ua := got.Get("User-Agent"); ua != webclient.DefaultUserAgent {
		t.Errorf("user agent = %q", ua)
	}
	if accept := got.Get("Accept"); accept != webclient.DefaultAccept {
		t.Errorf("accept = %q", accept)
	}

	latest, ok := store.Latest(srv.URL)
	if !ok || latest.ID != snap.ID {
		t.Fatalf("snapshot not appended to store")
	}
}

func TestFetch_NonOKStatusIsNotAFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, `{"status":"down"}`)
	}))
	defer srv.Close()

	f := fetcher.New(fetcher.DefaultConfig(), nil, newNetHTTP(t), nil)
	snap := f.Fetch(context.Background(), srv.URL)

	if snap.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", snap.StatusCode)
	}
	if snap.Failed() {
		t.Fatalf("an HTTP error status is a response, not a fetch failure")
	}
	if snap.ContentType != "application/json" || snap.Title != "" {
		t.Fatalf("unexpected meta %+v", snap.Meta())
	}
}

func TestFetch_TransportErrorProducesFailedSnapshot(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{FailURLs: map[string]bool{"https://down.example": true}}
	store := tracker.NewSnapshotStore(5)
	f := fetcher.New(fetcher.DefaultConfig(), store, wc, &testutil.DummyLogger{})

	snap := f.Fetch(context.Background(), "https://down.example")

	if snap.StatusCode != 0 || snap.Content != "" || snap.ContentLength != 0 {
		t.Fatalf("failed fetch should be empty with status 0: %+v", snap)
	}
	if snap.Fingerprint != model.FingerprintFetchError || !snap.Failed() {
		t.Fatalf("fingerprint = %q", snap.Fingerprint)
	}
	if snap.Error == "" {
		t.Fatalf("error text not recorded")
	}
	if snap.ContentType != "unknown" {
		t.Fatalf("content type = %q", snap.ContentType)
	}
	if len(store.List("https://down.example")) != 1 {
		t.Fatalf("failed snapshots are stored too")
	}
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{ResponseDelay: time.Second}
	cfg := fetcher.DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond
	f := fetcher.New(cfg, nil, wc, nil)

	snap := f.Fetch(context.Background(), "https://slow.example")
	if !snap.Failed() || snap.StatusCode != 0 {
		t.Fatalf("timeout should yield a failed snapshot, got %+v", snap)
	}
}

func TestFetch_MissingContentType(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	f := fetcher.New(fetcher.DefaultConfig(), nil, wc, nil)

	snap := f.Fetch(context.Background(), "https://plain.example")
	if snap.ContentType != "unknown" {
		t.Fatalf("content type = %q, want unknown", snap.ContentType)
	}
	if snap.Content != "ok:https://plain.example" {
		t.Fatalf("content = %q", snap.Content)
	}
}

func TestFetch_IdenticalContentSameFingerprint(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	wc.SetResponse("https://a.example", testutil.DummyResponse{Body: "same body"})
	wc.SetResponse("https://b.example", testutil.DummyResponse{Body: "same body"})
	f := fetcher.New(fetcher.DefaultConfig(), nil, wc, nil)

	a := f.Fetch(context.Background(), "https://a.example")
	b := f.Fetch(context.Background(), "https://b.example")
	if a.Fingerprint != b.Fingerprint {
		t.Fatalf("fingerprints differ: %s vs %s", a.Fingerprint, b.Fingerprint)
	}
	if a.ID == b.ID {
		t.Fatalf("snapshot ids must be unique")
	}
}

func TestFetch_TruncatedBodyIsFlagged(t *testing.T) {
	t.Parallel()

	wc := &testutil.DummyWebClient{}
	wc.SetResponse("https://big.example", testutil.DummyResponse{Body: "prefix", Truncated: true})
	logger := &testutil.DummyLogger{}
	f := fetcher.New(fetcher.DefaultConfig(), nil, wc, logger)

	snap := f.Fetch(context.Background(), "https://big.example")
	if !snap.Truncated || !snap.Meta().Truncated {
		t.Fatalf("expected truncated snapshot, got %+v", snap.Meta())
	}
	if snap.Failed() || snap.ContentLength != len("prefix") {
		t.Fatalf("truncated fetch should keep the prefix: %+v", snap.Meta())
	}
	if logger.WarnCount() != 1 {
		t.Fatalf("expected one truncation warning, got %v", logger.Warns)
	}

	if f.Fetch(context.Background(), "https://plain.example").Truncated {
		t.Fatalf("complete bodies must not be flagged")
	}
}

// ─── FetchAll ─────────────────────────────────────────────────────────────

func TestFetchAll_PreservesOrderAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	targets := []string{"https://a.example", "https://b.example", "https://c.example"}
	wc := &testutil.DummyWebClient{FailURLs: map[string]bool{"https://b.example": true}}
	store := tracker.NewSnapshotStore(5)
	f := fetcher.New(fetcher.DefaultConfig(), store, wc, nil)

	snaps, err := f.FetchAll(context.Background(), targets)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(snaps) != len(targets) {
		t.Fatalf("got %d snapshots", len(snaps))
	}
	for i, s := range snaps {
		if s.URL != targets[i] {
			t.Errorf("snapshot %d url = %s, want %s", i, s.URL, targets[i])
		}
	}
	if !snaps[1].Failed() || snaps[0].Failed() || snaps[2].Failed() {
		t.Fatalf("failure must be captured per target")
	}
	if got := len(store.Targets()); got != 3 {
		t.Fatalf("store has %d targets, want 3", got)
	}
}

func TestFetchAll_NoWebClient(t *testing.T) {
	t.Parallel()

	f := fetcher.New(fetcher.DefaultConfig(), nil, nil, nil)
	if _, err := f.FetchAll(context.Background(), []string{"https://a.example"}); err == nil {
		t.Fatalf("expected error without a webclient")
	}
}

func TestFetchAll_RespectsMaxConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	cfg := fetcher.DefaultConfig()
	cfg.MaxConcurrency = 2
	f := fetcher.New(cfg, nil, newNetHTTP(t), nil)

	targets := make([]string, 6)
	for i := range targets {
		targets[i] = fmt.Sprintf("%s/page/%d", srv.URL, i)
	}
	if _, err := f.FetchAll(context.Background(), targets); err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if peak.Load() > 2 {
		t.Fatalf("peak concurrency %d exceeds limit", peak.Load())
	}
}
