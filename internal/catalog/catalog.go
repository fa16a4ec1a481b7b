// Package catalog provides persistent run history for tool invocations.
// Runs are stored in a SQLite database under .mrsbasis/ and exported to
// JSONL on Sync() so history survives in a diff-friendly form.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Run records one invocation of an external tool.
type Run struct {
	// ID is a UUID assigned when the run is recorded.
	ID string `json:"id"`

	// Kind is the invocation kind: "sim" or "vis".
	Kind string `json:"kind"`

	// StartedAt is when the tool process was launched.
	StartedAt time.Time `json:"started_at"`

	// Duration is the wall-clock run time.
	Duration time.Duration `json:"duration"`

	// SequenceFile and SequenceSHA256 identify the sequence description
	// used for simulation runs. Empty for visualisation runs.
	SequenceFile   string `json:"sequence_file,omitempty"`
	SequenceSHA256 string `json:"sequence_sha256,omitempty"`

	// Metabolites lists the simulated metabolite names.
	Metabolites []string `json:"metabolites,omitempty"`

	// EchoTime is the echo time in ms.
	EchoTime float64 `json:"echo_time,omitempty"`

	// PhaseOffset is the receiver phase in degrees.
	PhaseOffset float64 `json:"phase_offset,omitempty"`

	// MMFile is the macromolecule definition path, if any.
	MMFile string `json:"mm_file,omitempty"`

	// OutputPath is where the tool wrote its result.
	OutputPath string `json:"output_path,omitempty"`

	// ToolPath and ToolVersion identify the binary that ran.
	ToolPath    string `json:"tool_path"`
	ToolVersion string `json:"tool_version,omitempty"`

	// Argv is the full argument list passed to the tool.
	Argv []string `json:"argv"`

	// ExitCode is the process exit code; -1 when it did not run.
	ExitCode int `json:"exit_code"`

	// Error holds the failure message for unsuccessful runs.
	Error string `json:"error,omitempty"`
}

// Catalog is a SQLite-backed run history.
type Catalog struct {
	mu       sync.Mutex
	db       *sql.DB
	stateDir string
	dbPath   string
	runsFile string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	duration_ms     INTEGER NOT NULL,
	sequence_file   TEXT,
	sequence_sha256 TEXT,
	metabolites     TEXT,
	echo_time       REAL,
	phase_offset    REAL,
	mm_file         TEXT,
	output_path     TEXT,
	tool_path       TEXT NOT NULL,
	tool_version    TEXT,
	argv            TEXT NOT NULL,
	exit_code       INTEGER NOT NULL,
	error           TEXT
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// startedAtLayout pads nanoseconds to fixed width so the TEXT column
// sorts chronologically. RFC3339Nano drops trailing zeros, which would
// order a whole-second timestamp after a fractional one.
const startedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open opens (creating if necessary) the catalog rooted at projectRoot.
// The database lives at .mrsbasis/runs.db.
func Open(projectRoot string) (*Catalog, error) {
	stateDir := filepath.Join(projectRoot, ".mrsbasis")

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .mrsbasis directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, "runs.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Catalog{
		db:       db,
		stateDir: stateDir,
		dbPath:   dbPath,
		runsFile: filepath.Join(stateDir, "runs.jsonl"),
	}, nil
}

// Record stores a run, assigning it an ID if it has none. The assigned
// ID is returned.
func (c *Catalog) Record(ctx context.Context, run Run) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Kind == "" {
		return "", fmt.Errorf("run kind is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	metabsJSON, err := json.Marshal(run.Metabolites)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metabolites: %w", err)
	}
	argvJSON, err := json.Marshal(run.Argv)
	if err != nil {
		return "", fmt.Errorf("failed to marshal argv: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, kind, started_at, duration_ms, sequence_file, sequence_sha256,
			metabolites, echo_time, phase_offset, mm_file, output_path,
			tool_path, tool_version, argv, exit_code, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID, run.Kind, run.StartedAt.UTC().Format(startedAtLayout),
		run.Duration.Milliseconds(), nullString(run.SequenceFile),
		nullString(run.SequenceSHA256), string(metabsJSON),
		run.EchoTime, run.PhaseOffset, nullString(run.MMFile),
		nullString(run.OutputPath), run.ToolPath,
		nullString(run.ToolVersion), string(argvJSON),
		run.ExitCode, nullString(run.Error),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	return run.ID, nil
}

// Get returns the run with the given ID.
func (c *Catalog) Get(ctx context.Context, id string) (*Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRowContext(ctx, `
		SELECT id, kind, started_at, duration_ms, sequence_file, sequence_sha256,
			metabolites, echo_time, phase_offset, mm_file, output_path,
			tool_path, tool_version, argv, exit_code, error
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. limit <= 0 means all.
func (c *Catalog) List(ctx context.Context, limit int) ([]Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := `
		SELECT id, kind, started_at, duration_ms, sequence_file, sequence_sha256,
			metabolites, echo_time, phase_offset, mm_file, output_path,
			tool_path, tool_version, argv, exit_code, error
		FROM runs ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// Sync exports the full history to .mrsbasis/runs.jsonl, one run per
// line, oldest first. The file is rewritten atomically.
func (c *Catalog) Sync(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, kind, started_at, duration_ms, sequence_file, sequence_sha256,
			metabolites, echo_time, phase_offset, mm_file, output_path,
			tool_path, tool_version, argv, exit_code, error
		FROM runs ORDER BY started_at ASC
	`)
	if err != nil {
		return fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	tmp, err := os.CreateTemp(c.stateDir, "runs-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("failed to scan run: %w", err)
		}
		data, err := json.Marshal(run)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		data = append(data, '\n')
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write run: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to iterate runs: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.runsFile); err != nil {
		return fmt.Errorf("failed to replace runs.jsonl: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// scanner abstracts *sql.Row and *sql.Rows for scanRun.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run        Run
		startedAt  string
		durationMS int64
		seqFile    sql.NullString
		seqSHA     sql.NullString
		metabsJSON string
		mmFile     sql.NullString
		outputPath sql.NullString
		version    sql.NullString
		argvJSON   string
		runErr     sql.NullString
	)

	err := s.Scan(
		&run.ID, &run.Kind, &startedAt, &durationMS, &seqFile, &seqSHA,
		&metabsJSON, &run.EchoTime, &run.PhaseOffset, &mmFile, &outputPath,
		&run.ToolPath, &version, &argvJSON, &run.ExitCode, &runErr,
	)
	if err != nil {
		return nil, err
	}

	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.SequenceFile = seqFile.String
	run.SequenceSHA256 = seqSHA.String
	run.MMFile = mmFile.String
	run.OutputPath = outputPath.String
	run.ToolVersion = version.String
	run.Error = runErr.String

	if err := json.Unmarshal([]byte(metabsJSON), &run.Metabolites); err != nil {
		return nil, fmt.Errorf("invalid metabolites column: %w", err)
	}
	if err := json.Unmarshal([]byte(argvJSON), &run.Argv); err != nil {
		return nil, fmt.Errorf("invalid argv column: %w", err)
	}

	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// HashFile returns the hex SHA-256 of the file at path, used to pin the
// exact sequence description a run was produced from.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
