// Package fetcher retrieves target URLs and turns every attempt, successful
// or not, into a stored Snapshot.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/tracker"
	"github.com/raysh454/observer/internal/webclient"
)

// ErrNoWebClient means the fetcher has no transport and cannot run at all.
var ErrNoWebClient = errors.New("fetcher: webclient is nil")

// Module: fetcher
// Fetches targets, fingerprints their content and stores snapshots
type Fetcher struct {
	cfg    Config
	store  *tracker.SnapshotStore
	wc     webclient.WebClient
	logger logging.Logger
}

// New creates a Fetcher. store may be nil, in which case snapshots are
// returned but not retained.
func New(cfg Config, store *tracker.SnapshotStore, wc webclient.WebClient, logger logging.Logger) *Fetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Accept == "" {
		cfg.Accept = def.Accept
	}
	return &Fetcher{
		cfg:    cfg,
		store:  store,
		wc:     wc,
		logger: logging.OrNop(logger).With(logging.Field{Key: "component", Value: "fetcher"}),
	}
}

// Fingerprint is the 16 hex char xxHash64 of content.
func Fingerprint(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// Fetch GETs target and returns its Snapshot. Transport failures and
// timeouts produce a Snapshot with status 0, no content and the reserved
// error fingerprint; Fetch never fails.
func (f *Fetcher) Fetch(ctx context.Context, target string) *model.Snapshot {
	snap := f.fetch(ctx, target)
	if f.store != nil {
		f.store.Append(snap)
	}
	return snap
}

func (f *Fetcher) fetch(ctx context.Context, target string) *model.Snapshot {
	started := time.Now()
	snap := &model.Snapshot{
		ID:        uuid.New().String(),
		URL:       target,
		Timestamp: started.UTC(),
	}

	if f.wc == nil {
		return failed(snap, ErrNoWebClient, started)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	headers := http.Header{}
	headers.Set("User-Agent", f.cfg.UserAgent)
	headers.Set("Accept", f.cfg.Accept)

	resp, err := f.wc.Do(reqCtx, &webclient.Request{
		Method:  http.MethodGet,
		URL:     target,
		Headers: headers,
	})
	if err != nil {
		f.logger.Warn("fetch failed",
			logging.Field{Key: "url", Value: target},
			logging.Field{Key: "error", Value: err})
		return failed(snap, err, started)
	}

	content := string(resp.Body)
	snap.ElapsedMs = time.Since(started).Milliseconds()
	snap.StatusCode = resp.StatusCode
	snap.Content = content
	snap.ContentLength = len(content)
	snap.Fingerprint = Fingerprint(content)
	snap.Truncated = resp.Truncated
	snap.ContentType = contentType(resp.Headers.Get("Content-Type"))
	if strings.Contains(snap.ContentType, "html") {
		snap.Title = extractTitle(content)
	}

	if snap.Truncated {
		f.logger.Warn("fetched content truncated",
			logging.Field{Key: "url", Value: target},
			logging.Field{Key: "bytes", Value: snap.ContentLength})
	}

	f.logger.Debug("fetched target",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "status", Value: snap.StatusCode},
		logging.Field{Key: "elapsed_ms", Value: snap.ElapsedMs},
		logging.Field{Key: "bytes", Value: snap.ContentLength})
	return snap
}

func failed(snap *model.Snapshot, err error, started time.Time) *model.Snapshot {
	snap.ElapsedMs = time.Since(started).Milliseconds()
	snap.ContentType = "unknown"
	snap.Fingerprint = model.FingerprintFetchError
	snap.Error = err.Error()
	return snap
}

// FetchAll fetches every target concurrently and returns the snapshots in
// input order. It fails only when there is no transport.
func (f *Fetcher) FetchAll(ctx context.Context, targets []string) ([]*model.Snapshot, error) {
	if f.wc == nil {
		return nil, ErrNoWebClient
	}

	slots := f.cfg.MaxConcurrency
	if slots <= 0 || slots > len(targets) {
		slots = max(len(targets), 1)
	}

	results := make([]*model.Snapshot, len(targets))
	sem := make(chan struct{}, slots)
	var wg sync.WaitGroup

	for i, target := range targets {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = f.Fetch(ctx, target)
		}(i, target)
	}

	wg.Wait()
	return results, nil
}

func contentType(header string) string {
	if header == "" {
		return "unknown"
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType, _, _ = strings.Cut(header, ";")
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return "unknown"
	}
	return mediaType
}

func extractTitle(content string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
