package mcpserver

import (
	"context"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"amplecache/internal/cache"
	"amplecache/internal/markdown"
	"amplecache/internal/query"
)

func limitParam(def, maxLimit int) mcp.ToolOption {
	return mcp.WithNumber("limit", mcp.Description(limitDescription(def, maxLimit)))
}

func limitDescription(def, maxLimit int) string {
	return "Maximum number of results (1-" + strconv.Itoa(maxLimit) + ", default " + strconv.Itoa(def) + ")"
}

func offsetParam() mcp.ToolOption {
	return mcp.WithNumber("offset", mcp.Description("Number of results to skip (default 0)"))
}

func includeDeletedParam() mcp.ToolOption {
	return mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted tasks"))
}

func (s *Server) registerNoteTools() {
	limits := s.engine.Options()
	s.add(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search over note names and bodies. Returns matching notes with a highlighted snippet."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Required(), mcp.Description("Full-text query (supports the index's MATCH syntax)")),
		limitParam(limits.DefaultSearchLimit, limits.MaxLimit),
	), s.searchNotes)

	s.add(mcp.NewTool("get_note_by_uuid",
		mcp.WithDescription("Get a note by its remote or local UUID, including its references in both directions."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("Remote or local note UUID")),
		mcp.WithString("format", mcp.Enum("markdown", "html"), mcp.Description("Body format (default markdown)")),
	), s.getNoteByUUID)

	s.add(mcp.NewTool("get_note_by_name",
		mcp.WithDescription("Find notes whose name contains the given text, case-insensitively."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("name", mcp.Required(), mcp.Description("Part of the note name")),
		limitParam(limits.DefaultSearchLimit, limits.MaxLimit),
	), s.getNoteByName)

	s.add(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes alphabetically with pagination."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("name_contains", mcp.Description("Only notes whose name contains this text")),
		mcp.WithString("query", mcp.Description("Only notes matching this full-text query")),
		limitParam(limits.DefaultListLimit, limits.MaxLimit),
		offsetParam(),
		mcp.WithString("sort_by", mcp.Enum(query.SortName, query.SortUpdated), mcp.Description("Sort key (default name)")),
		mcp.WithBoolean("sort_descending", mcp.Description("Sort descending; defaults to ascending for name and descending for updated")),
	), s.listNotes)

	s.add(mcp.NewTool("get_recently_modified_notes",
		mcp.WithDescription("List the most recently modified notes, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		limitParam(limits.DefaultListLimit, limits.MaxLimit),
	), s.recentNotes)

	s.add(mcp.NewTool("get_note_references",
		mcp.WithDescription("List notes that reference the given note and notes it references."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("uuid", mcp.Required(), mcp.Description("Remote or local note UUID")),
	), s.noteReferences)
}

func (s *Server) registerTaskTools() {
	limits := s.engine.Options()
	s.add(mcp.NewTool("search_tasks",
		mcp.WithDescription("Full-text search over task content."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query", mcp.Required(), mcp.Description("Full-text query")),
		limitParam(limits.DefaultSearchLimit, limits.MaxLimit),
		includeDeletedParam(),
	), s.searchTasks)

	s.add(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks by priority then due date, with simple filters."),
		mcp.WithReadOnlyHintAnnotation(true),
		includeDeletedParam(),
		mcp.WithBoolean("done", mcp.Description("Only completed (true) or open (false) tasks")),
		mcp.WithNumber("priority", mcp.Description("Exact priority level")),
		mcp.WithBoolean("has_due_date", mcp.Description("Only tasks with (true) or without (false) a due date")),
		limitParam(limits.DefaultListLimit, limits.MaxLimit),
		offsetParam(),
	), s.listTasks)

	s.add(mcp.NewTool("get_recently_created_tasks",
		mcp.WithDescription("List tasks by creation time, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		limitParam(limits.DefaultListLimit, limits.MaxLimit),
		includeDeletedParam(),
	), s.recentTasks)

	s.add(mcp.NewTool("get_tasks_by_note",
		mcp.WithDescription("List tasks referencing a note, through task attributes or task reference edges."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("note_uuid", mcp.Required(), mcp.Description("Note UUID")),
		includeDeletedParam(),
	), s.tasksByNote)

	opts := []mcp.ToolOption{
		mcp.WithDescription("Query tasks with a structured filter. All constraints are combined with AND."),
		mcp.WithReadOnlyHintAnnotation(true),
	}
	opts = append(opts, taskFilterParams(limits)...)
	s.add(mcp.NewTool("query_tasks", opts...), s.queryTasks)
}

func taskFilterParams(limits cache.Options) []mcp.ToolOption {
	str := func(name, desc string, extra ...mcp.PropertyOption) mcp.ToolOption {
		return mcp.WithString(name, append([]mcp.PropertyOption{mcp.Description(desc)}, extra...)...)
	}
	num := func(name, desc string) mcp.ToolOption { return mcp.WithNumber(name, mcp.Description(desc)) }
	flag := func(name, desc string) mcp.ToolOption { return mcp.WithBoolean(name, mcp.Description(desc)) }

	return []mcp.ToolOption{
		str("content_search", "Full-text query over task content"),
		flag("include_deleted", "Include soft-deleted tasks"),
		flag("done", "Completed (true) or open (false)"),
		num("priority", "Exact priority level"),
		str("parent_uuid", "Parent task UUID"),
		flag("has_due_date", "Has a due date"),
		num("due_after", "Due at or after (Unix seconds)"),
		num("due_before", "Due at or before (Unix seconds)"),
		num("min_points", "Points at least"),
		num("max_points", "Points at most"),
		num("min_victory_value", "Victory value at least"),
		num("max_victory_value", "Victory value at most"),
		num("min_streak_count", "Streak count at least"),
		num("max_streak_count", "Streak count at most"),
		num("created_after", "Created at or after (Unix seconds)"),
		num("created_before", "Created at or before (Unix seconds)"),
		num("completed_after", "Completed at or after (Unix seconds)"),
		num("completed_before", "Completed at or before (Unix seconds)"),
		num("start_after", "Starts at or after (Unix seconds)"),
		num("start_before", "Starts at or before (Unix seconds)"),
		str("flags_filter", "Flag mode; cannot be combined with has_flags", mcp.Enum("urgent", "important", "both", "none", "any")),
		str("has_flags", "Flag letters that must all be present, e.g. IU"),
		flag("has_duration", "Has a duration"),
		str("duration_equals", "Exact ISO-8601 duration, e.g. PT30M (PT60M and PT1H differ)"),
		flag("is_recurring", "Has a repeat rule"),
		flag("has_references", "Has an attribute references list"),
		str("references_uuid", "References this UUID in attributes or task reference edges"),
		str("sort_by", "Sort key", mcp.Enum(query.SortDue, query.SortPriority, query.SortPoints, query.SortCreated,
			query.SortCompleted, query.SortVictoryValue, query.SortStreakCount)),
		flag("sort_descending", "Sort direction (default descending)"),
		num("limit", limitDescription(limits.DefaultListLimit, limits.MaxLimit)),
		num("offset", "Number of results to skip"),
	}
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	text, limit, err := textAndLimit(args, "query")
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.SearchNotes(ctx, text, limit))
}

type noteView struct {
	*cache.Note
	HTML string `json:"html,omitempty"`
}

func (s *Server) getNoteByUUID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	if err := args.CheckKeys("uuid", "format"); err != nil {
		return result(nil, err)
	}
	id, err := requiredString(args, "uuid")
	if err != nil {
		return result(nil, err)
	}
	format, _, err := args.String("format")
	if err != nil {
		return result(nil, err)
	}
	format = strings.ToLower(format)
	if format != "" && format != "markdown" && format != "html" {
		return result(nil, &query.UsageError{Field: "format", Reason: "must be markdown or html"})
	}

	note, err := s.engine.GetNote(ctx, id)
	if err != nil || note == nil {
		return result(note, err)
	}
	view := noteView{Note: note}
	if format == "html" {
		view.HTML, err = markdown.Render(note.Text)
		if err != nil {
			return nil, err
		}
	}
	return result(view, nil)
}

func (s *Server) getNoteByName(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	name, limit, err := textAndLimit(args, "name")
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.FindNotesByName(ctx, name, limit))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f, err := query.ParseNoteFilter(query.Args(req.GetArguments()))
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.ListNotes(ctx, f))
}

func (s *Server) recentNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	limit, err := onlyLimit(args)
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.RecentNotes(ctx, limit))
}

func (s *Server) noteReferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	if err := args.CheckKeys("uuid"); err != nil {
		return result(nil, err)
	}
	id, err := requiredString(args, "uuid")
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.NoteReferences(ctx, id))
}

func (s *Server) searchTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	if err := args.CheckKeys("query", "limit", "include_deleted"); err != nil {
		return result(nil, err)
	}
	text, err := requiredString(args, "query")
	if err != nil {
		return result(nil, err)
	}
	limit, err := optionalLimit(args)
	if err != nil {
		return result(nil, err)
	}
	includeDeleted, _, err := args.Bool("include_deleted")
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.SearchTasks(ctx, text, limit, includeDeleted))
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	if err := args.CheckKeys("include_deleted", "done", "priority", "has_due_date", "limit", "offset"); err != nil {
		return result(nil, err)
	}
	f, err := query.ParseTaskFilter(args)
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.ListTasks(ctx, f))
}

func (s *Server) recentTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	if err := args.CheckKeys("limit", "include_deleted"); err != nil {
		return result(nil, err)
	}
	limit, err := optionalLimit(args)
	if err != nil {
		return result(nil, err)
	}
	includeDeleted, _, err := args.Bool("include_deleted")
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.RecentTasks(ctx, limit, includeDeleted))
}

func (s *Server) tasksByNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	if err := args.CheckKeys("note_uuid", "include_deleted"); err != nil {
		return result(nil, err)
	}
	id, err := requiredString(args, "note_uuid")
	if err != nil {
		return result(nil, err)
	}
	includeDeleted, _, err := args.Bool("include_deleted")
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.TasksByNote(ctx, id, includeDeleted))
}

func (s *Server) queryTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := query.Args(req.GetArguments())
	// Older clients wrap the filter in a single "query" object.
	if nested, ok := args["query"].(map[string]any); ok && len(args) == 1 {
		args = query.Args(nested)
	}
	f, err := query.ParseTaskFilter(args)
	if err != nil {
		return result(nil, err)
	}
	return result(s.engine.QueryTasks(ctx, f))
}

func requiredString(args query.Args, key string) (string, error) {
	v, ok, err := args.String(key)
	if err != nil {
		return "", err
	}
	if !ok || strings.TrimSpace(v) == "" {
		return "", &query.UsageError{Field: key, Reason: "is required"}
	}
	return v, nil
}

func optionalLimit(args query.Args) (int, error) {
	v, ok, err := args.Int("limit")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if v < 1 || v > query.MaxLimit {
		return 0, &query.UsageError{Field: "limit", Reason: "must be between 1 and " + strconv.Itoa(query.MaxLimit)}
	}
	return int(v), nil
}

func onlyLimit(args query.Args) (int, error) {
	if err := args.CheckKeys("limit"); err != nil {
		return 0, err
	}
	return optionalLimit(args)
}

func textAndLimit(args query.Args, key string) (string, int, error) {
	if err := args.CheckKeys(key, "limit"); err != nil {
		return "", 0, err
	}
	text, err := requiredString(args, key)
	if err != nil {
		return "", 0, err
	}
	limit, err := optionalLimit(args)
	return text, limit, err
}
