package model

import "time"

// FingerprintFetchError is the fingerprint carried by snapshots whose fetch
// failed. Content fingerprints are lowercase hex and never collide with it.
const FingerprintFetchError = "fetch-error"

// Snapshot is one fetch of one target at one instant. Snapshots are
// immutable once created.
type Snapshot struct {
	// ID is assigned by the fetcher (uuid).
	ID string `json:"id"`

	// URL is the canonical target URL.
	URL string `json:"url"`

	// Timestamp is when the fetch started.
	Timestamp time.Time `json:"timestamp"`

	// Content is the raw response body. Empty for failed fetches.
	Content string `json:"content,omitempty"`

	// ContentType is the media type without parameters, "unknown" if absent.
	ContentType string `json:"content_type"`

	// StatusCode is the HTTP status, 0 when the fetch itself failed.
	StatusCode int `json:"status_code"`

	// ElapsedMs is the wall time of the request in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`

	// ContentLength is len(Content) in bytes.
	ContentLength int `json:"content_length"`

	// Fingerprint is a deterministic hash of Content, or FingerprintFetchError.
	Fingerprint string `json:"fingerprint"`

	// Title is the HTML <title>, when the content is HTML and has one.
	Title string `json:"title,omitempty"`

	// Error holds the transport error for failed fetches.
	Error string `json:"error,omitempty"`

	// Truncated marks Content as cut at the transport's body cap; the
	// fingerprint and length then describe the kept prefix only.
	Truncated bool `json:"truncated,omitempty"`
}

// Failed reports whether the snapshot records a transport failure.
func (s *Snapshot) Failed() bool {
	return s.Fingerprint == FingerprintFetchError
}

// SnapshotMeta is a Snapshot without its content, used in listings.
type SnapshotMeta struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Timestamp     time.Time `json:"timestamp"`
	ContentType   string    `json:"content_type"`
	StatusCode    int       `json:"status_code"`
	ElapsedMs     int64     `json:"elapsed_ms"`
	ContentLength int       `json:"content_length"`
	Fingerprint   string    `json:"fingerprint"`
	Title         string    `json:"title,omitempty"`
	Error         string    `json:"error,omitempty"`
	Truncated     bool      `json:"truncated,omitempty"`
}

// Meta strips the content from s.
func (s *Snapshot) Meta() SnapshotMeta {
	return SnapshotMeta{
		ID:            s.ID,
		URL:           s.URL,
		Timestamp:     s.Timestamp,
		ContentType:   s.ContentType,
		StatusCode:    s.StatusCode,
		ElapsedMs:     s.ElapsedMs,
		ContentLength: s.ContentLength,
		Fingerprint:   s.Fingerprint,
		Title:         s.Title,
		Error:         s.Error,
		Truncated:     s.Truncated,
	}
}
