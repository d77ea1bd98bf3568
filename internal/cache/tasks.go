package cache

import (
	"context"
	"strings"

	"amplecache/internal/query"
)

// SearchTasks runs a full-text query over task content.
func (e *Engine) SearchTasks(ctx context.Context, text string, limit int, includeDeleted bool) (Page[Task], error) {
	if strings.TrimSpace(text) == "" {
		return Page[Task]{}, &query.UsageError{Field: "query", Reason: "must not be empty"}
	}
	return e.queryTasks(ctx, query.TaskFilter{Text: text, Limit: limit, IncludeDeleted: includeDeleted}, e.searchPaging())
}

// ListTasks pages through tasks with the default list limit.
func (e *Engine) ListTasks(ctx context.Context, f query.TaskFilter) (Page[Task], error) {
	return e.queryTasks(ctx, f, e.listPaging())
}

// RecentTasks lists tasks by attribute creation time, newest first. Tasks
// without a creation time come last.
func (e *Engine) RecentTasks(ctx context.Context, limit int, includeDeleted bool) (Page[Task], error) {
	return e.queryTasks(ctx, query.TaskFilter{
		SortBy:         query.SortCreated,
		Limit:          limit,
		IncludeDeleted: includeDeleted,
	}, e.listPaging())
}

// TasksByNote lists tasks that reference the note, either through their
// attribute references or a task_references edge, under any of the note's
// identities.
func (e *Engine) TasksByNote(ctx context.Context, noteUUID string, includeDeleted bool) (Page[Task], error) {
	if noteUUID == "" {
		return Page[Task]{}, &query.UsageError{Field: "note_uuid", Reason: "must not be empty"}
	}
	return e.queryTasks(ctx, query.TaskFilter{
		ReferencesNote: noteUUID,
		IncludeDeleted: includeDeleted,
		Limit:          e.opts.MaxLimit,
	}, e.listPaging())
}

// QueryTasks applies a complete structured filter.
func (e *Engine) QueryTasks(ctx context.Context, f query.TaskFilter) (Page[Task], error) {
	return e.queryTasks(ctx, f, e.listPaging())
}

func (e *Engine) queryTasks(ctx context.Context, f query.TaskFilter, p query.Paging) (Page[Task], error) {
	stmt, err := query.BuildTaskQuery(f, p)
	if err != nil {
		return Page[Task]{}, err
	}
	return e.runTasks(ctx, stmt)
}
