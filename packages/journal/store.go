package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS exchanges (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	correlation_id TEXT    NOT NULL DEFAULT '',
	direction      TEXT    NOT NULL,
	method         TEXT    NOT NULL DEFAULT '',
	url            TEXT    NOT NULL DEFAULT '',
	status         INTEGER NOT NULL DEFAULT 0,
	body           TEXT    NOT NULL DEFAULT '',
	logged_at      TIMESTAMP NOT NULL
)`

// Exchange is one journal row.
type Exchange struct {
	ID            int64
	CorrelationID string
	Direction     string
	Method        string
	URL           string
	Status        int
	Body          string
	LoggedAt      time.Time
}

// Store is a SQLite backed exchange journal.
type Store struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// Open opens or creates the journal at connectionString.
// Supported formats:
// - sqlite://path/to/journal.db
// - sqlite:./journal.db
// - ./journal.db
func Open(connectionString string) (*Store, error) {
	path, err := parseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal table: %w", err)
	}

	return &Store{
		db:           db,
		path:         path,
		queryTimeout: 30 * time.Second,
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record appends e. A zero LoggedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Exchange) (int64, error) {
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (correlation_id, direction, method, url, status, body, logged_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CorrelationID, e.Direction, e.Method, e.URL, e.Status, e.Body, e.LoggedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert failed: %w", err)
	}
	return res.LastInsertId()
}

// Exchanges returns the rows recorded for correlationID in insertion order.
// An empty correlationID returns every row.
func (s *Store) Exchanges(ctx context.Context, correlationID string) ([]Exchange, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT id, correlation_id, direction, method, url, status, body, logged_at FROM exchanges`
	var args []any
	if correlationID != "" {
		query += ` WHERE correlation_id = ?`
		args = append(args, correlationID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Exchange
	for rows.Next() {
		var e Exchange
		if err := rows.Scan(&e.ID, &e.CorrelationID, &e.Direction, &e.Method, &e.URL, &e.Status, &e.Body, &e.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return out, nil
}

func parseConnectionString(connStr string) (string, error) {
	connStr = strings.TrimSpace(connStr)

	switch {
	case strings.HasPrefix(connStr, "sqlite://"):
		connStr = strings.TrimPrefix(connStr, "sqlite://")
	case strings.HasPrefix(connStr, "sqlite:"):
		connStr = strings.TrimPrefix(connStr, "sqlite:")
	case strings.Contains(connStr, "://"):
		scheme, _, _ := strings.Cut(connStr, "://")
		return "", fmt.Errorf("unsupported journal scheme: %s", scheme)
	}

	if connStr == "" {
		return "", fmt.Errorf("empty journal path")
	}
	return connStr, nil
}
