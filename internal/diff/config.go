package diff

// Thresholds are the heuristic limits the engine flags against. They carry
// no derivation beyond operational experience and are configurable.
type Thresholds struct {
	// LatencyWarnMs flags responses slower than this as a latency spike.
	LatencyWarnMs int64 `yaml:"latency_warn_ms"`

	// SizeWarnPercent and SizeCriticalPercent bound |size change| against
	// the previous snapshot. Both are exclusive.
	SizeWarnPercent     float64 `yaml:"size_warn_percent"`
	SizeCriticalPercent float64 `yaml:"size_critical_percent"`

	// LineDropWarn raises a line-count decrease above this to warning.
	LineDropWarn int `yaml:"line_drop_warn"`

	// ErrorIndicators are matched case-insensitively; one appearing in the
	// current content but not the previous is a critical change.
	ErrorIndicators []string `yaml:"error_indicators"`

	// HealthIndicators disappearing from the content is a warning change.
	HealthIndicators []string `yaml:"health_indicators"`

	// ChurnMaxLines caps the line-mode diff used for inserted/deleted
	// counts. Larger snapshots are described by net line counts only.
	ChurnMaxLines int `yaml:"churn_max_lines"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		LatencyWarnMs:       5000,
		SizeWarnPercent:     50,
		SizeCriticalPercent: 80,
		LineDropWarn:        50,
		ErrorIndicators: []string{
			"error",
			"exception",
			"failed",
			"fatal",
			"503 service unavailable",
		},
		HealthIndicators: []string{
			"healthy",
			`"status":"ok"`,
			`"status": "ok"`,
			"operational",
		},
		ChurnMaxLines: 2000,
	}
}

// withDefaults fills zero-valued fields from DefaultThresholds.
func (t Thresholds) withDefaults() Thresholds {
	def := DefaultThresholds()
	if t.LatencyWarnMs <= 0 {
		t.LatencyWarnMs = def.LatencyWarnMs
	}
	if t.SizeWarnPercent <= 0 {
		t.SizeWarnPercent = def.SizeWarnPercent
	}
	if t.SizeCriticalPercent <= 0 {
		t.SizeCriticalPercent = def.SizeCriticalPercent
	}
	if t.LineDropWarn <= 0 {
		t.LineDropWarn = def.LineDropWarn
	}
	if t.ChurnMaxLines <= 0 {
		t.ChurnMaxLines = def.ChurnMaxLines
	}
	if t.ErrorIndicators == nil {
		t.ErrorIndicators = def.ErrorIndicators
	}
	if t.HealthIndicators == nil {
		t.HealthIndicators = def.HealthIndicators
	}
	return t
}
