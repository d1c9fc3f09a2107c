package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/seismetry/seismetry/internal/aggregate"
	"github.com/seismetry/seismetry/internal/pipeline"
	"github.com/seismetry/seismetry/pkg/types"
)

// ResultsInfo describes a materialized results database.
type ResultsInfo struct {
	Path      string
	RowCount  int64
	SizeBytes int64
	CreatedAt time.Time
}

// Materializer writes one run's derived tables into a single SQLite
// file so the results can be queried without re-running the pipeline.
type Materializer struct{}

// NewMaterializer creates a results materializer.
func NewMaterializer() *Materializer {
	return &Materializer{}
}

// Table schemas for the results database. Null correlations are stored
// as SQL NULL; every other numeric cell is NOT NULL.
var (
	monthlyCountsSchema = types.Schema{
		Version: 1,
		Columns: []types.ColumnDef{
			{Name: "month", Type: "TEXT", PrimaryKey: true},
			{Name: "events", Type: "INTEGER"},
		},
	}

	fieldwideSchema = types.Schema{
		Version: 1,
		Columns: append([]types.ColumnDef{
			{Name: "month", Type: "TEXT", PrimaryKey: true},
		}, volumeColumnDefs()...),
	}

	wellMonthlySchema = types.Schema{
		Version: 1,
		Columns: []types.ColumnDef{
			{Name: "month", Type: "TEXT", PrimaryKey: true},
			{Name: "w_id", Type: "TEXT", PrimaryKey: true},
			{Name: "total", Type: "REAL"},
		},
		Indexes: []types.IndexDef{
			{Name: "idx_well_monthly_wid", Columns: []string{"w_id"}},
		},
	}

	summariesSchema = types.Schema{
		Version: 1,
		Columns: append(append([]types.ColumnDef{
			{Name: "w_id", Type: "TEXT", PrimaryKey: true},
			{Name: "name", Type: "TEXT"},
			{Name: "type", Type: "TEXT"},
			{Name: "x", Type: "REAL"},
			{Name: "y", Type: "REAL"},
			{Name: "z", Type: "REAL"},
		}, volumeColumnDefs()...),
			types.ColumnDef{Name: "correlation", Type: "REAL", Nullable: true},
		),
		Indexes: []types.IndexDef{
			{Name: "idx_summaries_type", Columns: []string{"type"}},
		},
	}

	matrixSchema = types.Schema{
		Version: 1,
		Columns: []types.ColumnDef{
			{Name: "row_name", Type: "TEXT", PrimaryKey: true},
			{Name: "col_name", Type: "TEXT", PrimaryKey: true},
			{Name: "coefficient", Type: "REAL", Nullable: true},
		},
	}

	runInfoSchema = types.Schema{
		Version: 1,
		Columns: []types.ColumnDef{
			{Name: "key", Type: "TEXT", PrimaryKey: true},
			{Name: "value", Type: "TEXT"},
		},
	}
)

func volumeColumnDefs() []types.ColumnDef {
	names := []string{"oil", "water", "steam_injection", "water_injection", "injected", "produced", "total"}
	defs := make([]types.ColumnDef, len(names))
	for i, n := range names {
		defs[i] = types.ColumnDef{Name: n, Type: "REAL"}
	}
	return defs
}

// Materialize writes the run's tables to a new SQLite file at dbPath.
// An existing file at that path is replaced.
func (m *Materializer) Materialize(ctx context.Context, dbPath, runID string, res *pipeline.Result) (*ResultsInfo, error) {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("store: failed to remove stale results database: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: failed to create results database: %w", err)
	}
	defer db.Close()

	// WAL during the build, DELETE once finalized so the file ships as
	// a single artifact
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("store: failed to set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("store: failed to set synchronous mode: %w", err)
	}

	tables := map[string]types.Schema{
		"monthly_event_counts": monthlyCountsSchema,
		"fieldwide_volumes":    fieldwideSchema,
		"well_monthly_totals":  wellMonthlySchema,
		"well_summaries":       summariesSchema,
		"correlation_matrix":   matrixSchema,
		"seismetry_run":        runInfoSchema,
	}
	for name, schema := range tables {
		for _, stmt := range createTableSQL(name, schema) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return nil, fmt.Errorf("store: failed to create table %s: %w", name, err)
			}
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rowCount, err := insertResultRows(ctx, tx, runID, res)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: failed to commit results: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return nil, fmt.Errorf("store: failed to checkpoint WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=DELETE"); err != nil {
		return nil, fmt.Errorf("store: failed to set journal mode to DELETE: %w", err)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("store: failed to close results database: %w", err)
	}

	fileInfo, err := os.Stat(dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: failed to stat results database: %w", err)
	}

	return &ResultsInfo{
		Path:      dbPath,
		RowCount:  rowCount,
		SizeBytes: fileInfo.Size(),
		CreatedAt: time.Now(),
	}, nil
}

func insertResultRows(ctx context.Context, tx *sql.Tx, runID string, res *pipeline.Result) (int64, error) {
	var total int64

	countStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO monthly_event_counts (month, events) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("store: prepare monthly counts insert: %w", err)
	}
	defer countStmt.Close()
	for _, c := range res.Counts {
		if _, err := countStmt.ExecContext(ctx, c.Month.String(), c.Count); err != nil {
			return 0, fmt.Errorf("store: insert monthly count: %w", err)
		}
		total++
	}

	fieldStmt, err := tx.PrepareContext(ctx, `INSERT INTO fieldwide_volumes
		(month, oil, water, steam_injection, water_injection, injected, produced, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare fieldwide insert: %w", err)
	}
	defer fieldStmt.Close()
	for _, f := range res.Fieldwide {
		if _, err := fieldStmt.ExecContext(ctx, f.Month.String(),
			f.Oil, f.Water, f.SteamInjection, f.WaterInjection,
			f.Injected, f.Produced, f.Total); err != nil {
			return 0, fmt.Errorf("store: insert fieldwide volumes: %w", err)
		}
		total++
	}

	pivotStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO well_monthly_totals (month, w_id, total) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("store: prepare pivot insert: %w", err)
	}
	defer pivotStmt.Close()
	for i, month := range res.Pivot.Months {
		for j, wellID := range res.Pivot.WellIDs {
			if _, err := pivotStmt.ExecContext(ctx, month.String(), wellID, res.Pivot.Values[i][j]); err != nil {
				return 0, fmt.Errorf("store: insert well monthly total: %w", err)
			}
			total++
		}
	}

	summaryStmt, err := tx.PrepareContext(ctx, `INSERT INTO well_summaries
		(w_id, name, type, x, y, z,
		 oil, water, steam_injection, water_injection, injected, produced, total,
		 correlation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("store: prepare summary insert: %w", err)
	}
	defer summaryStmt.Close()
	for _, s := range res.Summaries {
		if _, err := summaryStmt.ExecContext(ctx,
			s.WellID, s.Name, s.Type, s.X, s.Y, s.Z,
			s.Oil, s.Water, s.SteamInjection, s.WaterInjection,
			s.Injected, s.Produced, s.Total,
			nullableFloat(s.Correlation)); err != nil {
			return 0, fmt.Errorf("store: insert well summary: %w", err)
		}
		total++
	}

	matrixStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO correlation_matrix (row_name, col_name, coefficient) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("store: prepare matrix insert: %w", err)
	}
	defer matrixStmt.Close()
	for i, rowName := range res.Matrix.Columns {
		for j, colName := range res.Matrix.Columns {
			if _, err := matrixStmt.ExecContext(ctx, rowName, colName,
				nullableFloat(res.Matrix.Values[i][j])); err != nil {
				return 0, fmt.Errorf("store: insert correlation cell: %w", err)
			}
			total++
		}
	}

	info := map[string]string{
		"run_id":         runID,
		"created_at":     time.Now().UTC().Format(time.RFC3339),
		"merged_months":  fmt.Sprintf("%d", res.Merged.Rows()),
		"events_column":  aggregate.EventsColumn,
		"min_magnitude":  fmt.Sprintf("%g", res.Options.MinMagnitude),
		"filter_applied": fmt.Sprintf("%t", res.Options.ApplyMagnitudeFilter),
	}
	infoStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO seismetry_run (key, value) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("store: prepare run info insert: %w", err)
	}
	defer infoStmt.Close()
	for key, value := range info {
		if _, err := infoStmt.ExecContext(ctx, key, value); err != nil {
			return 0, fmt.Errorf("store: insert run info: %w", err)
		}
		total++
	}

	return total, nil
}

// createTableSQL renders a schema into CREATE TABLE and CREATE INDEX
// statements. Tables with natural primary keys are WITHOUT ROWID.
func createTableSQL(name string, schema types.Schema) []string {
	cols := make([]string, 0, len(schema.Columns))
	for _, col := range schema.Columns {
		def := col.Name + " " + col.Type
		if !col.Nullable && !col.PrimaryKey {
			def += " NOT NULL"
		}
		cols = append(cols, def)
	}
	if keys := schema.PrimaryKeyColumns(); len(keys) > 0 {
		cols = append(cols, "PRIMARY KEY ("+strings.Join(keys, ", ")+")")
	}

	stmts := []string{
		fmt.Sprintf("CREATE TABLE %s (\n\t%s\n) WITHOUT ROWID", name, strings.Join(cols, ",\n\t")),
	}
	for _, idx := range schema.Indexes {
		unique := ""
		if idx.Unique {
			unique = "UNIQUE "
		}
		stmts = append(stmts, fmt.Sprintf("CREATE %sINDEX %s ON %s(%s)",
			unique, idx.Name, name, strings.Join(idx.Columns, ", ")))
	}
	return stmts
}

// nullableFloat maps NaN (the in-memory null) to SQL NULL.
func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
