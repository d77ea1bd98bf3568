package query

import (
	"strings"
)

// Statement is one compiled, parameterized SELECT. Limit is the page size
// the caller asked for; the SQL fetches one extra row so the caller can tell
// whether more results exist.
type Statement struct {
	SQL   string
	Args  []any
	Limit int
}

// HasMore trims rows to the page size and reports whether a further page
// exists.
func HasMore[T any](rows []T, limit int) ([]T, bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

const (
	taskFrom     = "FROM tasks AS t"
	taskFTSJoin  = " JOIN tasks_search_index ON tasks_search_index.docid = t.id"
	taskFTSMatch = "tasks_search_index MATCH ?"

	noteFrom     = "FROM notes AS n"
	noteFTSJoin  = " JOIN notes_search_index ON notes_search_index.docid = n.rowid"
	noteFTSMatch = "notes_search_index MATCH ?"
	noteSnippet  = "snippet(notes_search_index, '[', ']', '...', -1, 32)"
)

// BuildTaskQuery compiles f into a single statement over tasks.
func BuildTaskQuery(f TaskFilter, p Paging) (Statement, error) {
	limit, err := p.resolve(f.Limit, f.Offset)
	if err != nil {
		return Statement{}, err
	}
	frags, err := f.compile()
	if err != nil {
		return Statement{}, err
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(TaskColumns)
	b.WriteString(" ")
	b.WriteString(taskFrom)
	if text := strings.TrimSpace(f.Text); text != "" {
		b.WriteString(taskFTSJoin)
		frags = append([]Fragment{{SQL: taskFTSMatch, Args: []any{text}}}, frags...)
	}
	where, args := joinFragments(frags)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if f.SortBy == "" {
		b.WriteString(defaultTaskOrder)
	} else {
		b.WriteString(orderBy(f.SortBy, f.SortDescending, taskSortKeys, opTaskID))
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit+1, f.Offset)

	return Statement{SQL: b.String(), Args: args, Limit: limit}, nil
}

// BuildNoteQuery compiles f into a single statement over notes. The last
// projected column is the match snippet, or NULL without a text query.
func BuildNoteQuery(f NoteFilter, p Paging) (Statement, error) {
	limit, err := p.resolve(f.Limit, f.Offset)
	if err != nil {
		return Statement{}, err
	}
	if err := f.validate(); err != nil {
		return Statement{}, err
	}

	var frags []Fragment
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(NoteColumns)
	text := strings.TrimSpace(f.Text)
	if text != "" {
		b.WriteString(", " + noteSnippet + " ")
		b.WriteString(noteFrom)
		b.WriteString(noteFTSJoin)
		frags = append(frags, Fragment{SQL: noteFTSMatch, Args: []any{text}})
	} else {
		b.WriteString(", NULL ")
		b.WriteString(noteFrom)
	}
	if f.NameContains != "" {
		frags = append(frags, Fragment{
			SQL:  "n.name LIKE ? ESCAPE '\\'",
			Args: []any{"%" + EscapeLike(f.NameContains) + "%"},
		})
	}
	where, args := joinFragments(frags)
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	b.WriteString(orderBy(f.SortBy, f.SortDescending, noteSortKeys, opNoteRowID))
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit+1, f.Offset)

	return Statement{SQL: b.String(), Args: args, Limit: limit}, nil
}

// defaultTaskOrder lists the most pressing work first: highest priority,
// then earliest due date.
var defaultTaskOrder = " ORDER BY (" + opPriority.SQL() + ") IS NULL, " + opPriority.SQL() + " DESC, (" +
	opDue.SQL() + ") IS NULL, " + opDue.SQL() + " ASC, " + opTaskID.SQL() + " ASC"

// orderBy renders the sort clause. NULL keys sort last in either direction
// and the identity tie-break is always ascending.
func orderBy(key string, descending *bool, keys map[string]sortKey, identity Operand) string {
	sk, ok := keys[key]
	if !ok {
		return " ORDER BY " + identity.SQL() + " ASC"
	}
	desc := sk.descending
	if descending != nil {
		desc = *descending
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	expr := sk.operand.SQL()
	return " ORDER BY (" + expr + ") IS NULL, " + expr + " " + dir + ", " + identity.SQL() + " ASC"
}

// EscapeLike escapes LIKE wildcards so s matches literally.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
