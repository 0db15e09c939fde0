// Package history keeps a DuckDB record of every completed trace parse.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kylixs/flareon/internal/logging"
	"github.com/kylixs/flareon/internal/models"
	"github.com/labstack/gommon/log"
	"github.com/marcboeker/go-duckdb"
)

// Options tunes the DuckDB connection.
type Options struct {
	Threads     int    // 0 keeps the DuckDB default
	MemoryLimit string // e.g. "256MB"; empty keeps the default
}

// memoryLimitPattern matches DuckDB size literals such as "256MB" or "1.5 GiB".
var memoryLimitPattern = regexp.MustCompile(`(?i)^\d+(\.\d+)?\s*(b|kb|mb|gb|tb|kib|mib|gib|tib)$`)

// ValidateMemoryLimit checks a memory limit before it is placed in a pragma.
// Empty is allowed and keeps the DuckDB default.
func ValidateMemoryLimit(limit string) error {
	if limit == "" || memoryLimitPattern.MatchString(limit) {
		return nil
	}
	return fmt.Errorf("invalid DuckDB memory limit: %q", limit)
}

// Entry is one recorded parse.
type Entry struct {
	ID          string         `json:"id"`
	FileID      string         `json:"fileId"`
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	Size        int64          `json:"size"`
	ParsedAt    time.Time      `json:"parsedAt"`
	StartTime   int64          `json:"startTime"`
	EndTime     int64          `json:"endTime"`
	DurationMs  int64          `json:"durationMs"`
	TotalEvents int            `json:"totalEvents"`
	Error       string         `json:"error,omitempty"`
	EventStats  map[string]int `json:"eventStats"`
}

// DuckStore persists parse history in a DuckDB file.
type DuckStore struct {
	db     *sql.DB
	dbPath string
	logger *log.Logger
}

var schema = []string{`
CREATE TABLE IF NOT EXISTS trace_summaries (
	id           VARCHAR PRIMARY KEY,
	file_id      VARCHAR NOT NULL,
	name         VARCHAR NOT NULL,
	path         VARCHAR NOT NULL,
	size         BIGINT NOT NULL,
	parsed_at    TIMESTAMP NOT NULL,
	start_time   BIGINT NOT NULL,
	end_time     BIGINT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	total_events BIGINT NOT NULL,
	error        VARCHAR
)`, `
CREATE TABLE IF NOT EXISTS trace_event_stats (
	summary_id VARCHAR NOT NULL,
	event_type VARCHAR NOT NULL,
	count      BIGINT NOT NULL
)`,
}

// Open opens or creates the history database at dbPath. An empty path opens
// an in-memory database.
func Open(dbPath string, opts Options) (*DuckStore, error) {
	logger := logging.New("history")

	if err := ValidateMemoryLimit(opts.MemoryLimit); err != nil {
		return nil, err
	}

	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	var pragmas []string
	if opts.Threads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
	}
	if opts.MemoryLimit != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
	}
	pragmas = append(pragmas, "PRAGMA enable_progress_bar=false")

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				logger.Warnf("Pragma %q failed: %v", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	if dbPath == "" {
		logger.Infof("Opened in-memory history database")
	} else {
		logger.Infof("Opened history database at %s", dbPath)
	}
	return &DuckStore{db: db, dbPath: dbPath, logger: logger}, nil
}

// Record stores one completed parse. decodeErr is the failure that cut the
// parse short, if any.
func (s *DuckStore) Record(ctx context.Context, file *models.TraceFile, summary *models.Summary, decodeErr error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id := uuid.New().String()
	var errText sql.NullString
	if decodeErr != nil {
		errText = sql.NullString{String: decodeErr.Error(), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO trace_summaries
			(id, file_id, name, path, size, parsed_at, start_time, end_time, duration_ms, total_events, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, file.ID, file.Name, file.Path, file.Size, time.Now().UTC(),
		summary.StartTime, summary.EndTime, summary.DurationMs, int64(summary.TotalEvents()), errText,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	for _, stat := range summary.Stats() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trace_event_stats (summary_id, event_type, count) VALUES (?, ?, ?)`,
			id, stat.Type, int64(stat.Count),
		); err != nil {
			return fmt.Errorf("failed to insert event stat: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	s.logger.Debugf("Recorded parse of %s (%s)", file.Name, logging.ShortID(id))
	return nil
}

// List returns the most recent entries first. limit <= 0 returns all.
func (s *DuckStore) List(ctx context.Context, limit int) ([]*Entry, error) {
	query := `
		SELECT id, file_id, name, path, size, parsed_at, start_time, end_time, duration_ms, total_events, error
		FROM trace_summaries
		ORDER BY parsed_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

// ForFile returns the entries of one file, most recent first.
func (s *DuckStore) ForFile(ctx context.Context, fileID string) ([]*Entry, error) {
	return s.query(ctx, `
		SELECT id, file_id, name, path, size, parsed_at, start_time, end_time, duration_ms, total_events, error
		FROM trace_summaries
		WHERE file_id = ?
		ORDER BY parsed_at DESC, id`, fileID)
}

func (s *DuckStore) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	byID := make(map[string]*Entry)
	for rows.Next() {
		var e Entry
		var total int64
		var errText sql.NullString
		if err := rows.Scan(&e.ID, &e.FileID, &e.Name, &e.Path, &e.Size, &e.ParsedAt,
			&e.StartTime, &e.EndTime, &e.DurationMs, &total, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.TotalEvents = int(total)
		e.Error = errText.String
		e.EventStats = make(map[string]int)
		entries = append(entries, &e)
		byID[e.ID] = &e
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	if err := s.loadStats(ctx, byID); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *DuckStore) loadStats(ctx context.Context, byID map[string]*Entry) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	placeholders := make([]byte, 0, len(ids)*3)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ", "...)
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT summary_id, event_type, count FROM trace_event_stats WHERE summary_id IN (`+string(placeholders)+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("failed to query event stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, typ string
		var count int64
		if err := rows.Scan(&id, &typ, &count); err != nil {
			return fmt.Errorf("failed to scan event stat: %w", err)
		}
		if e, ok := byID[id]; ok {
			e.EventStats[typ] = int(count)
		}
	}
	return rows.Err()
}

// Count returns the number of recorded parses.
func (s *DuckStore) Count(ctx context.Context) (int, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trace_summaries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return int(n), nil
}

// Path returns the database file path, empty for in-memory stores.
func (s *DuckStore) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *DuckStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
