package tracker

// Config controls the per-target history kept in memory.
type Config struct {
	// SnapshotCapacity is N, the snapshots retained per target.
	SnapshotCapacity int `yaml:"snapshot_capacity"`

	// DiffCapacity is M, the diff results retained per target.
	DiffCapacity int `yaml:"diff_capacity"`
}

// DefaultConfig keeps the last 10 snapshots and 20 diffs per target.
func DefaultConfig() Config {
	return Config{
		SnapshotCapacity: 10,
		DiffCapacity:     20,
	}
}
