package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// RowScanner is the single-row result of QueryRowContext.
type RowScanner interface {
	Scan(dest ...any) error
}

type retryRow struct {
	ctx         context.Context
	query       func() *sql.Row
	timeout     time.Duration
	queryText   string
	queryArgs   []any
	queryCaller string
}

func (r retryRow) Scan(dest ...any) error {
	start := time.Now()
	for attempt := 0; ; attempt++ {
		err := r.query().Scan(dest...)
		if err == nil || !isSQLiteBusy(err) {
			slog.Debug("sql query row done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err)
			return err
		}
		slog.Debug("sql query row busy", "query", r.queryText, "args", r.queryArgs, "caller", r.queryCaller, "attempt", attempt+1, "err", err)
		if reason := stopRetry(r.ctx, start, r.timeout, attempt); reason != "" {
			slog.Debug("sql query row done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err, "reason", reason)
			if reason == "context" {
				return r.ctx.Err()
			}
			return err
		}
		time.Sleep(retryDelay(attempt))
	}
}

// QueryRowContext runs a single-row query, retrying once on SQLITE_BUSY
// within the lock timeout.
func (d *DB) QueryRowContext(ctx context.Context, query string, args ...any) RowScanner {
	_, file, line, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		caller = file + ":" + fmt.Sprint(line)
	}
	slog.Debug("sql query", "query", query, "args", args, "caller", caller)
	return retryRow{
		ctx:         ctx,
		query:       func() *sql.Row { return d.db.QueryRowContext(ctx, query, args...) },
		timeout:     d.lockTimeout,
		queryText:   query,
		queryArgs:   args,
		queryCaller: caller,
	}
}

// QueryContext runs a query, retrying once on SQLITE_BUSY within the lock
// timeout. Any other error is returned unchanged.
func (d *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	slog.Debug("sql query", "query", query, "args", args)
	start := time.Now()
	for attempt := 0; ; attempt++ {
		rows, err := d.db.QueryContext(ctx, query, args...)
		if err == nil || !isSQLiteBusy(err) {
			slog.Debug("sql query done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err)
			return rows, err
		}
		if reason := stopRetry(ctx, start, d.lockTimeout, attempt); reason != "" {
			slog.Debug("sql query done", "duration_ms", time.Since(start).Milliseconds(), "attempts", attempt+1, "err", err, "reason", reason)
			if reason == "context" {
				return nil, ctx.Err()
			}
			return nil, err
		}
		time.Sleep(retryDelay(attempt))
	}
}

// stopRetry names the reason to give up after a busy attempt, or "" to
// try again.
func stopRetry(ctx context.Context, start time.Time, timeout time.Duration, attempt int) string {
	switch {
	case attempt >= 1:
		return "max-retries"
	case timeout <= 0:
		return "no-timeout"
	case ctx.Err() != nil:
		return "context"
	case time.Since(start) >= timeout:
		return "timeout"
	}
	return ""
}

func retryDelay(attempt int) time.Duration {
	delay := time.Duration(attempt+1) * 40 * time.Millisecond
	if delay > 300*time.Millisecond {
		delay = 300 * time.Millisecond
	}
	return delay
}

func isSQLiteBusy(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}
