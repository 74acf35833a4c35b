package tracker_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/raysh454/observer/internal/model"
	"github.com/raysh454/observer/internal/tracker"
)

func snap(url, id string) *model.Snapshot {
	return &model.Snapshot{ID: id, URL: url, Timestamp: time.Now()}
}

func TestSnapshotStore_EvictsOldestPerTarget(t *testing.T) {
	t.Parallel()
	st := tracker.NewSnapshotStore(3)

	for i := 0; i < 4; i++ {
		st.Append(snap("https://a.example", fmt.Sprintf("a%d", i)))
	}
	st.Append(snap("https://b.example", "b0"))

	got := st.List("https://a.example")
	if len(got) != 3 {
		t.Fatalf("expected 3 snapshots for a, got %d", len(got))
	}
	want := []string{"a3", "a2", "a1"}
	for i, s := range got {
		if s.ID != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], s.ID)
		}
	}
	if n := len(st.List("https://b.example")); n != 1 {
		t.Errorf("eviction on a must not touch b, got %d", n)
	}
}

func TestSnapshotStore_AppendReturnsEvicted(t *testing.T) {
	t.Parallel()
	st := tracker.NewSnapshotStore(1)

	if ev := st.Append(snap("u", "first")); ev != nil {
		t.Fatalf("expected no eviction, got %s", ev.ID)
	}
	ev := st.Append(snap("u", "second"))
	if ev == nil || ev.ID != "first" {
		t.Fatalf("expected 'first' evicted, got %+v", ev)
	}
}

func TestSnapshotStore_Predecessor(t *testing.T) {
	t.Parallel()
	st := tracker.NewSnapshotStore(5)

	if _, ok := st.Predecessor("u", "x"); ok {
		t.Fatal("expected no predecessor on empty store")
	}

	st.Append(snap("u", "s1"))
	if _, ok := st.Predecessor("u", "s1"); ok {
		t.Fatal("first snapshot must not have a predecessor")
	}

	st.Append(snap("u", "s2"))
	st.Append(snap("u", "s3"))

	prev, ok := st.Predecessor("u", "s3")
	if !ok || prev.ID != "s2" {
		t.Fatalf("expected s2 before s3, got %+v", prev)
	}
	prev, ok = st.Predecessor("u", "s2")
	if !ok || prev.ID != "s1" {
		t.Fatalf("expected s1 before s2, got %+v", prev)
	}

	// unknown id: newest stored snapshot is the predecessor
	prev, ok = st.Predecessor("u", "not-stored")
	if !ok || prev.ID != "s3" {
		t.Fatalf("expected newest (s3) for unknown id, got %+v", prev)
	}
}

func TestSnapshotStore_LatestAndTargets(t *testing.T) {
	t.Parallel()
	st := tracker.NewSnapshotStore(2)
	st.Append(snap("https://z.example", "z"))
	st.Append(snap("https://a.example", "a1"))
	st.Append(snap("https://a.example", "a2"))

	latest, ok := st.Latest("https://a.example")
	if !ok || latest.ID != "a2" {
		t.Fatalf("expected a2, got %+v", latest)
	}
	targets := st.Targets()
	if len(targets) != 2 || targets[0] != "https://a.example" {
		t.Errorf("expected sorted targets, got %v", targets)
	}
	if st.Append(nil) != nil {
		t.Error("appending nil must be a no-op")
	}
}

func TestDiffStore_EvictsOldest(t *testing.T) {
	t.Parallel()
	ds := tracker.NewDiffStore(2)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ds.Append(&model.DiffResult{URL: "u", Timestamp: base.Add(time.Duration(i) * time.Minute)})
	}

	got := ds.List("u")
	if len(got) != 2 {
		t.Fatalf("expected 2 diffs, got %d", len(got))
	}
	if !got[0].Timestamp.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected newest first, got %s", got[0].Timestamp)
	}
	if !got[1].Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("expected oldest evicted, got %s", got[1].Timestamp)
	}
	if ds.Capacity() != 2 {
		t.Errorf("expected capacity 2, got %d", ds.Capacity())
	}
}

func TestDiffStore_UnknownTarget(t *testing.T) {
	t.Parallel()
	ds := tracker.NewDiffStore(2)
	if got := ds.List("missing"); len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
	if _, ok := ds.Latest("missing"); ok {
		t.Error("expected no latest for unknown target")
	}
}
