// Package auditlog keeps an append-only record of API access in a local
// SQLite database, separate from the clinical data in Postgres.
package auditlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dentalcare/dentalcare/internal/platform/middleware"
)

// Fixed width so that text comparison orders timestamps.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is a stored access record.
type Entry struct {
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	RequestID  string    `json:"request_id,omitempty"`
	UserID     string    `json:"user_id"`
	UserRoles  []string  `json:"user_roles"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id,omitempty"`
	Action     string    `json:"action"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent,omitempty"`
	StatusCode int       `json:"status_code"`
	LatencyMS  int64     `json:"latency_ms"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	UserID   string
	Resource string
	Action   string
	Since    time.Time
	Until    time.Time
	Limit    int
	Offset   int
}

// Store is a SQLite-backed audit log. It implements middleware.AuditRecorder.
type Store struct {
	sqlDB *sql.DB
}

var _ middleware.AuditRecorder = (*Store)(nil)

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("audit db path is required")
	}

	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create audit db dir: %w", err)
		}
	}

	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := applyMigrations(context.Background(), sqlDB, migrationFS, "migrations"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordAccess appends one entry.
func (s *Store) RecordAccess(e middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO access_log (occurred_at, request_id, user_id, user_roles, resource, resource_id,
    action, method, path, ip_address, user_agent, status_code, latency_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(timeFormat), e.RequestID, e.UserID, strings.Join(e.UserRoles, ","),
		e.Resource, e.ResourceID, e.Action, e.Method, e.Path, e.IPAddress, e.UserAgent,
		e.StatusCode, e.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert access log: %w", err)
	}
	return nil
}

// List returns matching entries newest first, plus the total match count.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, int, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Resource != "" {
		where = append(where, "resource = ?")
		args = append(args, f.Resource)
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	if !f.Since.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.Since.UTC().Format(timeFormat))
	}
	if !f.Until.IsZero() {
		where = append(where, "occurred_at < ?")
		args = append(args, f.Until.UTC().Format(timeFormat))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM access_log"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count access log: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, occurred_at, request_id, user_id, user_roles, resource, resource_id,
    action, method, path, ip_address, user_agent, status_code, latency_ms
FROM access_log`+clause+` ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query access log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var occurred, roles string
		if err := rows.Scan(&e.ID, &occurred, &e.RequestID, &e.UserID, &roles, &e.Resource, &e.ResourceID,
			&e.Action, &e.Method, &e.Path, &e.IPAddress, &e.UserAgent, &e.StatusCode, &e.LatencyMS); err != nil {
			return nil, 0, fmt.Errorf("scan access log: %w", err)
		}
		e.OccurredAt, err = time.Parse(timeFormat, occurred)
		if err != nil {
			return nil, 0, fmt.Errorf("parse occurred_at %q: %w", occurred, err)
		}
		e.UserRoles = []string{}
		if roles != "" {
			e.UserRoles = strings.Split(roles, ",")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate access log: %w", err)
	}
	return entries, total, nil
}
