// Package tracker keeps the bounded, per-target history of snapshots and
// diff results. Each store is owned by one writer: the fetcher appends
// snapshots, the pipeline's diff stage appends diff results.
package tracker

import (
	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/ringbuf"
)

// SnapshotStore retains the last N snapshots per target URL.
type SnapshotStore struct {
	buf *ringbuf.Keyed[*model.Snapshot]
}

func NewSnapshotStore(capacity int) *SnapshotStore {
	return &SnapshotStore{buf: ringbuf.NewKeyed[*model.Snapshot](capacity)}
}

// Append stores snap under its URL and returns the snapshot evicted to make
// room, if any.
func (s *SnapshotStore) Append(snap *model.Snapshot) *model.Snapshot {
	if snap == nil {
		return nil
	}
	evicted, _ := s.buf.Push(snap.URL, snap)
	return evicted
}

// List returns the snapshots for url, most recent first.
func (s *SnapshotStore) List(url string) []*model.Snapshot {
	return s.buf.Items(url)
}

// Latest returns the newest snapshot for url.
func (s *SnapshotStore) Latest(url string) (*model.Snapshot, bool) {
	return s.buf.Latest(url)
}

// Predecessor returns the snapshot stored immediately before the one with
// id. When id is no longer (or never was) in the store, the newest stored
// snapshot is the predecessor.
func (s *SnapshotStore) Predecessor(url, id string) (*model.Snapshot, bool) {
	items := s.buf.Items(url)
	for i, snap := range items {
		if snap.ID != id {
			continue
		}
		if i+1 < len(items) {
			return items[i+1], true
		}
		return nil, false
	}
	if len(items) > 0 {
		return items[0], true
	}
	return nil, false
}

// Targets lists every URL with stored snapshots.
func (s *SnapshotStore) Targets() []string {
	return s.buf.Keys()
}

func (s *SnapshotStore) Capacity() int { return s.buf.Cap() }

// DiffStore retains the last M diff results per target URL.
type DiffStore struct {
	buf *ringbuf.Keyed[*model.DiffResult]
}

func NewDiffStore(capacity int) *DiffStore {
	return &DiffStore{buf: ringbuf.NewKeyed[*model.DiffResult](capacity)}
}

func (d *DiffStore) Append(res *model.DiffResult) *model.DiffResult {
	if res == nil {
		return nil
	}
	evicted, _ := d.buf.Push(res.URL, res)
	return evicted
}

// List returns the diff results for url, most recent first.
func (d *DiffStore) List(url string) []*model.DiffResult {
	return d.buf.Items(url)
}

func (d *DiffStore) Latest(url string) (*model.DiffResult, bool) {
	return d.buf.Latest(url)
}

func (d *DiffStore) Targets() []string {
	return d.buf.Keys()
}

func (d *DiffStore) Capacity() int { return d.buf.Cap() }
