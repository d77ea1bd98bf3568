package cache

import (
	"context"
	"database/sql"
	"fmt"

	"amplecache/internal/query"
	"amplecache/internal/store"
)

// Reader is the read-only storage the engine queries. *store.DB satisfies it.
type Reader interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) store.RowScanner
}

type Options struct {
	DefaultSearchLimit int
	DefaultListLimit   int
	MaxLimit           int
}

func (o Options) withDefaults() Options {
	if o.MaxLimit <= 0 || o.MaxLimit > query.MaxLimit {
		o.MaxLimit = query.MaxLimit
	}
	if o.DefaultSearchLimit <= 0 {
		o.DefaultSearchLimit = 10
	}
	if o.DefaultListLimit <= 0 {
		o.DefaultListLimit = 20
	}
	o.DefaultSearchLimit = min(o.DefaultSearchLimit, o.MaxLimit)
	o.DefaultListLimit = min(o.DefaultListLimit, o.MaxLimit)
	return o
}

// Engine answers note and task queries against the Amplenote cache. It
// holds no mutable state and is safe for concurrent use.
type Engine struct {
	r    Reader
	opts Options
}

func New(r Reader, opts Options) *Engine {
	return &Engine{r: r, opts: opts.withDefaults()}
}

// Options reports the limits in effect after defaults were applied.
func (e *Engine) Options() Options { return e.opts }

func (e *Engine) searchPaging() query.Paging {
	return query.Paging{DefaultLimit: e.opts.DefaultSearchLimit, MaxLimit: e.opts.MaxLimit}
}

func (e *Engine) listPaging() query.Paging {
	return query.Paging{DefaultLimit: e.opts.DefaultListLimit, MaxLimit: e.opts.MaxLimit}
}

func (e *Engine) runTasks(ctx context.Context, stmt query.Statement) (Page[Task], error) {
	rows, err := e.r.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return Page[Task]{}, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	items := make([]Task, 0, stmt.Limit)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return Page[Task]{}, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return Page[Task]{}, fmt.Errorf("query tasks: %w", err)
	}
	items, more := query.HasMore(items, stmt.Limit)
	return Page[Task]{Items: items, HasMore: more}, nil
}

func (e *Engine) runNotes(ctx context.Context, stmt query.Statement) ([]NoteSearchResult, bool, error) {
	rows, err := e.r.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, false, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	items := make([]NoteSearchResult, 0, stmt.Limit)
	for rows.Next() {
		n, snippet, err := scanNote(rows)
		if err != nil {
			return nil, false, err
		}
		items = append(items, NoteSearchResult{Note: n, Snippet: snippet})
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("query notes: %w", err)
	}
	items, more := query.HasMore(items, stmt.Limit)
	return items, more, nil
}

func notesOnly(results []NoteSearchResult) []Note {
	out := make([]Note, len(results))
	for i, r := range results {
		out[i] = r.Note
	}
	return out
}
