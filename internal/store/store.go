package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var ErrDatabaseNotFound = errors.New("amplenote database not found")

// RequiredTables are the cache tables every query depends on.
var RequiredTables = []string{
	"notes",
	"note_references",
	"tasks",
	"task_references",
	"notes_search_index",
	"tasks_search_index",
}

// DB is a read-only handle on the Amplenote cache. It never writes: the
// connection is opened with mode=ro and query_only.
type DB struct {
	db          *sql.DB
	path        string
	lockTimeout time.Duration
}

type OpenOptions struct {
	// BusyTimeout is handed to SQLite as busy_timeout.
	BusyTimeout time.Duration
	// LockTimeout bounds the retry loop around SQLITE_BUSY.
	LockTimeout time.Duration
	MaxOpenConns int
}

func Open(path string, opts OpenOptions) (*DB, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrDatabaseNotFound, path)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(path, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	slog.Debug("sqlite opened", "path", path, "busy_timeout_ms", opts.BusyTimeout.Milliseconds(), "lock_timeout_ms", opts.LockTimeout.Milliseconds())
	return &DB{db: db, path: path, lockTimeout: opts.LockTimeout}, nil
}

func readOnlyDSN(path string, busy time.Duration) string {
	escaped := strings.NewReplacer("?", "%3f", "#", "%23").Replace(path)
	dsn := "file:" + escaped + "?mode=ro&_pragma=query_only(1)"
	if busy > 0 {
		dsn += fmt.Sprintf("&_pragma=busy_timeout(%d)", busy.Milliseconds())
	}
	return dsn
}

func (d *DB) Path() string { return d.path }

func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Verify checks that every required table exists, so a wrong path or an
// unsynced cache fails at startup instead of on the first query.
func (d *DB) Verify(ctx context.Context) error {
	rows, err := d.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	defer rows.Close()

	found := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		found[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	var missing []string
	for _, name := range RequiredTables {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%s is not an Amplenote cache: missing tables %s", d.path, strings.Join(missing, ", "))
	}
	return nil
}
