package pipeline

import "time"

type Config struct {
	// RunDeadline bounds a whole run; stages not started by then are skipped.
	RunDeadline time.Duration `yaml:"run_deadline"`

	// AnalyzeTimeout and ReportTimeout bound their stages. The analyze
	// timeout should exceed the analyzer's own call timeout so a slow model
	// degrades the analysis instead of failing the stage.
	AnalyzeTimeout time.Duration `yaml:"analyze_timeout"`
	ReportTimeout  time.Duration `yaml:"report_timeout"`

	// NotifyTimeout bounds forwarding one analysis result downstream.
	NotifyTimeout time.Duration `yaml:"notify_timeout"`

	// HistoryCapacity is the number of completed runs kept in memory.
	HistoryCapacity int `yaml:"history_capacity"`
}

func DefaultConfig() Config {
	return Config{
		RunDeadline:     5 * time.Minute,
		AnalyzeTimeout:  65 * time.Second,
		ReportTimeout:   30 * time.Second,
		NotifyTimeout:   10 * time.Second,
		HistoryCapacity: 50,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.RunDeadline <= 0 {
		c.RunDeadline = def.RunDeadline
	}
	if c.AnalyzeTimeout <= 0 {
		c.AnalyzeTimeout = def.AnalyzeTimeout
	}
	if c.ReportTimeout <= 0 {
		c.ReportTimeout = def.ReportTimeout
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = def.NotifyTimeout
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = def.HistoryCapacity
	}
	return c
}
