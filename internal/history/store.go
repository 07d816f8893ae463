package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/websift/websift/internal/model"
)

// DBFileName is the name of the SQLite file created under the data
// directory.
const DBFileName = "websift.db"

// Store provides SQLite-based storage for run history.
// It manages connection pooling and provides methods for recording live
// runs and querying past ones.
//
// Design decision: We keep one database file for all runs rather than one
// file per run. This makes run listings and cross-run record queries a
// single query, and backup is a single file copy.
type Store struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store under the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dataDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dataDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dataDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the location of the database file.
func (s *Store) Path() string {
	return s.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Runs store one row per scrape or search invocation
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mode TEXT NOT NULL,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		finished_at DATETIME,
		targets INTEGER NOT NULL DEFAULT 0,
		done INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		records INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Events store the target lifecycle stream of each run, append-only
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		time DATETIME NOT NULL,
		url TEXT NOT NULL,
		state TEXT NOT NULL,
		detail TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_events_url ON events(url);

	-- Records store extracted records, one row per run and source URL
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		source_url TEXT NOT NULL,
		scrape_type TEXT NOT NULL,
		content_hash TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(run_id, source_url),
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
	CREATE INDEX IF NOT EXISTS idx_records_url ON records(source_url);
	CREATE INDEX IF NOT EXISTS idx_records_hash ON records(content_hash);
	`

	if _, err := s.db.ExecContext(context.Background(), schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// BeginRun inserts a new run row and returns its id. The run stays open
// until FinishRun records its final stats.
func (s *Store) BeginRun(ctx context.Context, mode string, targets int) (int64, error) {
	query := `
	INSERT INTO runs (mode, targets)
	VALUES (?, ?)
	`

	result, err := s.db.ExecContext(ctx, query, mode, targets)
	if err != nil {
		return 0, fmt.Errorf("failed to begin run: %w", err)
	}

	return result.LastInsertId()
}

// FinishRun records the final stats for a run.
func (s *Store) FinishRun(ctx context.Context, runID int64, stats model.Stats) error {
	finished := stats.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}

	query := `
	UPDATE runs SET
		finished_at = ?,
		targets = ?,
		done = ?,
		failed = ?,
		records = ?
	WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		formatTimestamp(finished),
		stats.Targets,
		stats.Done,
		stats.Failed,
		stats.Records,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to finish run: no run with id %d", runID)
	}

	return nil
}

// AppendEvent appends one lifecycle event to a run's stream.
func (s *Store) AppendEvent(ctx context.Context, runID int64, event model.Event) error {
	query := `
	INSERT INTO events (run_id, time, url, state, detail, attempts)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		runID,
		formatTimestamp(event.Time),
		event.URL,
		event.State.String(),
		event.Detail,
		event.Attempts,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

// EventsForRun replays a run's event stream in append order.
func (s *Store) EventsForRun(ctx context.Context, runID int64) ([]model.Event, error) {
	query := `
	SELECT time, url, state, detail, attempts
	FROM events
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var event model.Event
		var timestamp string
		var state string
		var detail sql.NullString

		if err := rows.Scan(&timestamp, &event.URL, &state, &detail, &event.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		event.Time = parseTimestamp(timestamp)
		event.Detail = detail.String

		parsed, err := model.ParseTargetState(state)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.State = parsed

		events = append(events, event)
	}

	return events, rows.Err()
}

// InsertRecord inserts or updates a record row.
// Uses UPSERT to handle duplicates (same run + source URL).
func (s *Store) InsertRecord(ctx context.Context, runID int64, rec *model.Record) (int64, error) {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize fields: %w", err)
	}

	query := `
	INSERT INTO records (run_id, source_url, scrape_type, content_hash, fields)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(run_id, source_url) DO UPDATE SET
		scrape_type = excluded.scrape_type,
		content_hash = excluded.content_hash,
		fields = excluded.fields,
		created_at = CURRENT_TIMESTAMP
	`

	result, err := s.db.ExecContext(ctx, query,
		runID,
		rec.SourceURL,
		rec.Type.String(),
		rec.ContentHash,
		string(fieldsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	return result.LastInsertId()
}

// RecordsForRun retrieves a run's records in insertion order.
func (s *Store) RecordsForRun(ctx context.Context, runID int64) ([]*model.Record, error) {
	query := `
	SELECT source_url, scrape_type, content_hash, fields
	FROM records
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*model.Record
	for rows.Next() {
		var rec model.Record
		var scrapeType string
		var fieldsJSON string

		if err := rows.Scan(&rec.SourceURL, &scrapeType, &rec.ContentHash, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		parsed, err := model.ParseScrapeType(scrapeType)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Type = parsed

		if err := json.Unmarshal([]byte(fieldsJSON), &rec.Fields); err != nil {
			return nil, fmt.Errorf("failed to parse record fields: %w", err)
		}

		records = append(records, &rec)
	}

	return records, rows.Err()
}

// SaveResult persists a finished run: every record plus the final stats.
// Failures are already captured by the event stream, so only records and
// the run row are written here.
func (s *Store) SaveResult(ctx context.Context, runID int64, result *model.CrawlResult) error {
	for _, rec := range result.Records {
		if _, err := s.InsertRecord(ctx, runID, rec); err != nil {
			return err
		}
	}

	return s.FinishRun(ctx, runID, result.Stats)
}

// RunSummary contains the stored stats of one run.
// This is used for displaying run listings without loading events or records.
type RunSummary struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Mode is how the run was started: "scrape" or "search".
	Mode string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed. Zero for runs that never
	// finished (crashed or still live).
	FinishedAt time.Time

	// Targets, Done, Failed, and Records mirror the run's final stats.
	Targets int
	Done    int
	Failed  int
	Records int
}

// ListRuns retrieves run summaries, most recent first. A limit of zero or
// less returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
	SELECT id, mode, started_at, finished_at, targets, done, failed, records
	FROM runs
	ORDER BY id DESC
	`

	args := make([]interface{}, 0)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunSummary
	for rows.Next() {
		summary, err := scanRunSummary(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, summary)
	}

	return results, rows.Err()
}

// GetRun retrieves one run summary by id. Returns nil without error when
// the run does not exist.
func (s *Store) GetRun(ctx context.Context, runID int64) (*RunSummary, error) {
	query := `
	SELECT id, mode, started_at, finished_at, targets, done, failed, records
	FROM runs
	WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, runID)

	summary, err := scanRunSummary(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// SeenRecently reports whether a record with the same source URL and
// content hash was stored within the duration, for callers that want to
// skip pages whose content has not changed since a previous run.
func (s *Store) SeenRecently(ctx context.Context, url, contentHash string, within time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM records
	WHERE source_url = ? AND content_hash = ? AND created_at > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(within.Seconds()))

	var count int
	err := s.db.QueryRowContext(ctx, query, url, contentHash, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent record: %w", err)
	}

	return count > 0, nil
}

// scanner abstracts sql.Row and sql.Rows so run summaries scan the same way
// from both.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRunSummary(row scanner) (RunSummary, error) {
	var summary RunSummary
	var started string
	var finished sql.NullString

	err := row.Scan(
		&summary.ID,
		&summary.Mode,
		&started,
		&finished,
		&summary.Targets,
		&summary.Done,
		&summary.Failed,
		&summary.Records,
	)
	if err == sql.ErrNoRows {
		return RunSummary{}, err
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("failed to scan run: %w", err)
	}

	summary.StartedAt = parseTimestamp(started)
	if finished.Valid {
		summary.FinishedAt = parseTimestamp(finished.String)
	}

	return summary, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}

// formatTimestamp renders a time the way SQLite stores CURRENT_TIMESTAMP,
// with millisecond precision when present. Times are stored in UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05.999")
}
