package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/seismetry/seismetry/internal/errors"
)

// RunRecord is one completed pipeline run in the catalog.
type RunRecord struct {
	RunID              string
	EventsFingerprint  string
	WellsFingerprint   string
	VolumesFingerprint string
	MinMagnitude       float64
	FilterApplied      bool
	EventRows          int64
	WellRows           int64
	VolumeRows         int64
	SummaryRows        int64
	MergedMonths       int64
	ArtifactPrefix     string
	CreatedAt          time.Time
}

// Catalog records completed runs and answers the idempotency question:
// has this exact combination of inputs and threshold been analyzed
// before?
type Catalog interface {
	// RegisterRun adds a completed run to the catalog.
	RegisterRun(ctx context.Context, rec *RunRecord) error

	// FindByInputs returns the most recent run whose three input
	// fingerprints and threshold match, or nil when none exists.
	FindByInputs(ctx context.Context, eventsFP, wellsFP, volumesFP string, minMagnitude float64, filterApplied bool) (*RunRecord, error)

	// GetRun retrieves a single run by ID.
	GetRun(ctx context.Context, runID string) (*RunRecord, error)

	// LatestRun returns the most recently registered run, or nil when
	// the catalog is empty.
	LatestRun(ctx context.Context) (*RunRecord, error)

	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)

	// Close closes the catalog database connection.
	Close() error
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB
	dbPath string

	insertRunStmt *sql.Stmt
}

const runColumns = `run_id, events_fp, wells_fp, volumes_fp,
		min_magnitude, filter_applied,
		event_rows, well_rows, volume_rows, summary_rows, merged_months,
		artifact_prefix, created_at`

// NewCatalog opens (creating if needed) a SQLite-backed runs catalog.
func NewCatalog(dbPath string) (*SQLiteCatalog, error) {
	// Single process, low write rate: one connection is plenty
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	catalog := &SQLiteCatalog{
		db:     db,
		dbPath: dbPath,
	}

	if err := catalog.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize catalog schema: %w", err)
	}

	insertStmt, err := db.Prepare(fmt.Sprintf(`
		INSERT INTO runs (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, runColumns))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to prepare insert statement: %w", err)
	}
	catalog.insertRunStmt = insertStmt

	return catalog, nil
}

// initSchema creates the runs table and its indexes.
func (c *SQLiteCatalog) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id          TEXT PRIMARY KEY,
			events_fp       TEXT NOT NULL,
			wells_fp        TEXT NOT NULL,
			volumes_fp      TEXT NOT NULL,
			min_magnitude   REAL NOT NULL,
			filter_applied  INTEGER NOT NULL,
			event_rows      INTEGER NOT NULL,
			well_rows       INTEGER NOT NULL,
			volume_rows     INTEGER NOT NULL,
			summary_rows    INTEGER NOT NULL,
			merged_months   INTEGER NOT NULL,
			artifact_prefix TEXT NOT NULL,
			created_at      INTEGER NOT NULL
		) WITHOUT ROWID`,
		`CREATE INDEX IF NOT EXISTS idx_runs_inputs
			ON runs(events_fp, wells_fp, volumes_fp, min_magnitude, filter_applied)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// RegisterRun adds a completed run to the catalog.
func (c *SQLiteCatalog) RegisterRun(ctx context.Context, rec *RunRecord) error {
	_, err := c.insertRunStmt.ExecContext(ctx,
		rec.RunID, rec.EventsFingerprint, rec.WellsFingerprint, rec.VolumesFingerprint,
		rec.MinMagnitude, boolToInt(rec.FilterApplied),
		rec.EventRows, rec.WellRows, rec.VolumeRows, rec.SummaryRows, rec.MergedMonths,
		rec.ArtifactPrefix, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return errors.NewCatalogError(errors.CodeWriteConflict,
			fmt.Sprintf("failed to register run %s", rec.RunID), err)
	}
	return nil
}

// FindByInputs returns the most recent run matching the input
// fingerprints and threshold, or nil when no such run exists.
func (c *SQLiteCatalog) FindByInputs(ctx context.Context, eventsFP, wellsFP, volumesFP string, minMagnitude float64, filterApplied bool) (*RunRecord, error) {
	row := c.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM runs
		WHERE events_fp = ? AND wells_fp = ? AND volumes_fp = ?
		  AND min_magnitude = ? AND filter_applied = ?
		ORDER BY created_at DESC LIMIT 1`, runColumns),
		eventsFP, wellsFP, volumesFP, minMagnitude, boolToInt(filterApplied))
	return scanRun(row)
}

// GetRun retrieves a single run by ID.
func (c *SQLiteCatalog) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := c.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM runs WHERE run_id = ?`, runColumns), runID)
	rec, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.New(errors.ErrCategoryCatalog, errors.CodeRunNotFound,
			fmt.Sprintf("run %s not found", runID))
	}
	return rec, nil
}

// LatestRun returns the most recently registered run, or nil.
func (c *SQLiteCatalog) LatestRun(ctx context.Context) (*RunRecord, error) {
	row := c.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM runs ORDER BY created_at DESC, run_id DESC LIMIT 1`, runColumns))
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first.
func (c *SQLiteCatalog) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, runColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("store: failed to list runs: %w", err)
	}
	defer rows.Close()

	var recs []*RunRecord
	for rows.Next() {
		rec, err := scanRunRow(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close closes the catalog database connection.
func (c *SQLiteCatalog) Close() error {
	if c.insertRunStmt != nil {
		c.insertRunStmt.Close()
	}
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row *sql.Row) (*RunRecord, error) {
	rec, err := scanRunRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

func scanRunRow(row rowScanner) (*RunRecord, error) {
	var (
		rec       RunRecord
		applied   int
		createdAt int64
	)
	err := row.Scan(
		&rec.RunID, &rec.EventsFingerprint, &rec.WellsFingerprint, &rec.VolumesFingerprint,
		&rec.MinMagnitude, &applied,
		&rec.EventRows, &rec.WellRows, &rec.VolumeRows, &rec.SummaryRows, &rec.MergedMonths,
		&rec.ArtifactPrefix, &createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("store: failed to scan run: %w", err)
	}
	rec.FilterApplied = applied != 0
	rec.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
