// Package archive keeps a durable SQLite copy of completed pipeline runs.
package archive

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/observer/internal/logging"
	"github.com/raysh454/observer/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrRunNotFound = errors.New("pipeline run not found")

type Config struct {
	// Path of the SQLite file; empty disables the archive.
	Path string `yaml:"path"`
}

// Archive stores pipeline runs as JSON rows keyed by run id.
type Archive struct {
	db     *sql.DB
	logger logging.Logger
}

// Open creates (if needed) the database at path and applies the schema.
func Open(path string, logger logging.Logger) (*Archive, error) {
	if path == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure archive dir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	db.SetMaxOpenConns(1)

	a, err := New(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// New wraps an open database and runs the schema.
func New(db *sql.DB, logger logging.Logger) (*Archive, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if err := applySchema(db); err != nil {
		return nil, err
	}
	return &Archive{
		db:     db,
		logger: logging.OrNop(logger).With(logging.Field{Key: "component", Value: "archive"}),
	}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Save inserts run, replacing any earlier copy with the same id.
func (a *Archive) Save(ctx context.Context, run *model.PipelineRun) error {
	if run == nil {
		return fmt.Errorf("run is nil")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pipeline_runs
            (id, created_at, target_count, stages_completed, stages_failed,
             changes_detected, anomalies_detected, run_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Timestamp.UnixNano(),
		len(run.Targets),
		run.Summary.StagesCompleted,
		run.Summary.StagesFailed,
		boolInt(run.Summary.ChangesDetected),
		boolInt(run.Summary.AnomaliesDetected),
		string(data),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	a.logger.Debug("run archived", logging.Field{Key: "run_id", Value: run.ID})
	return nil
}

// Get returns the archived run with id, or ErrRunNotFound.
func (a *Archive) Get(ctx context.Context, id string) (*model.PipelineRun, error) {
	var data string
	err := a.db.QueryRowContext(ctx,
		`SELECT run_json FROM pipeline_runs WHERE id = ? LIMIT 1`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", id, err)
	}
	return decodeRun(data)
}

// List returns up to limit runs, newest first. limit <= 0 means 50.
func (a *Archive) List(ctx context.Context, limit int) ([]*model.PipelineRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT run_json FROM pipeline_runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.PipelineRun, 0, limit)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		run, err := decodeRun(data)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (a *Archive) Close() error {
	return a.db.Close()
}

func decodeRun(data string) (*model.PipelineRun, error) {
	var run model.PipelineRun
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
