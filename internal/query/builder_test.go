package query

import (
	"errors"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"amplecache/internal/attrs"
)

var testPaging = Paging{DefaultLimit: 20, MaxLimit: 1000}

func ptr[T any](v T) *T { return &v }

func TestBuildTaskQueryDefaults(t *testing.T) {
	stmt, err := BuildTaskQuery(TaskFilter{}, testPaging)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(stmt.SQL, "WHERE COALESCE(t.deleted, 0) = ?") {
		t.Fatalf("expected visibility filter, got %s", stmt.SQL)
	}
	if !strings.HasSuffix(stmt.SQL, "t.priority DESC, (t.due) IS NULL, t.due ASC, t.id ASC LIMIT ? OFFSET ?") {
		t.Fatalf("expected priority/due order and paging, got %s", stmt.SQL)
	}
	if stmt.Limit != 20 {
		t.Fatalf("expected default limit 20, got %d", stmt.Limit)
	}
	n := len(stmt.Args)
	if stmt.Args[n-2] != 21 || stmt.Args[n-1] != 0 {
		t.Fatalf("expected limit+1 and offset args, got %v", stmt.Args)
	}
}

func TestBuildTaskQueryIncludeDeletedDropsVisibility(t *testing.T) {
	stmt, err := BuildTaskQuery(TaskFilter{IncludeDeleted: true}, testPaging)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Contains(stmt.SQL, "WHERE") {
		t.Fatalf("expected no WHERE clause, got %s", stmt.SQL)
	}
}

func TestBuildTaskQuerySortKeys(t *testing.T) {
	stmt, err := BuildTaskQuery(TaskFilter{SortBy: SortCreated}, testPaging)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	created := opCreatedAt.SQL()
	want := "ORDER BY (" + created + ") IS NULL, " + created + " DESC, t.id ASC"
	if !strings.Contains(stmt.SQL, want) {
		t.Fatalf("expected %q in %s", want, stmt.SQL)
	}

	stmt, err = BuildTaskQuery(TaskFilter{SortBy: SortCreated, SortDescending: ptr(false)}, testPaging)
	if err != nil {
		t.Fatalf("build ascending: %v", err)
	}
	if !strings.Contains(stmt.SQL, created+" ASC, t.id ASC") {
		t.Fatalf("expected ascending sort, got %s", stmt.SQL)
	}
}

func TestBuildTaskQueryTextJoinsIndex(t *testing.T) {
	stmt, err := BuildTaskQuery(TaskFilter{Text: "groceries"}, testPaging)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(stmt.SQL, "JOIN tasks_search_index ON tasks_search_index.docid = t.id") {
		t.Fatalf("expected FTS join, got %s", stmt.SQL)
	}
	if strings.Contains(stmt.SQL, "LIKE") {
		t.Fatalf("text search must not use LIKE: %s", stmt.SQL)
	}
	if stmt.Args[0] != "groceries" {
		t.Fatalf("expected match argument first, got %v", stmt.Args)
	}
}

func TestBuildNoteQuery(t *testing.T) {
	stmt, err := BuildNoteQuery(NoteFilter{NameContains: "50%_off", SortBy: SortName}, Paging{DefaultLimit: 10})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(stmt.SQL, "n.name LIKE ? ESCAPE") {
		t.Fatalf("expected LIKE on name, got %s", stmt.SQL)
	}
	if stmt.Args[0] != `%50\%\_off%` {
		t.Fatalf("expected escaped pattern, got %v", stmt.Args[0])
	}
	if !strings.Contains(stmt.SQL, "n.name COLLATE NOCASE ASC, n.rowid ASC") {
		t.Fatalf("expected name ascending with rowid tie-break, got %s", stmt.SQL)
	}

	stmt, err = BuildNoteQuery(NoteFilter{Text: "meeting"}, Paging{DefaultLimit: 10})
	if err != nil {
		t.Fatalf("build search: %v", err)
	}
	if !strings.Contains(stmt.SQL, "snippet(notes_search_index") || !strings.Contains(stmt.SQL, "notes_search_index MATCH ?") {
		t.Fatalf("expected FTS snippet and match, got %s", stmt.SQL)
	}
}

func TestBuildRejectsInvalidFilters(t *testing.T) {
	cases := []struct {
		name   string
		filter TaskFilter
		field  string
	}{
		{"conflicting flags", TaskFilter{FlagsFilter: attrs.FlagModeUrgent, HasFlags: "I"}, "flags_filter"},
		{"unknown mode", TaskFilter{FlagsFilter: "sometimes"}, "flags_filter"},
		{"lower-case letters", TaskFilter{HasFlags: "iu"}, "has_flags"},
		{"sort key", TaskFilter{SortBy: "title"}, "sort_by"},
		{"limit high", TaskFilter{Limit: 1001}, "limit"},
		{"limit negative", TaskFilter{Limit: -1}, "limit"},
		{"offset", TaskFilter{Offset: -5}, "offset"},
		{"uuid", TaskFilter{ReferencesUUID: "not-a-uuid"}, "references_uuid"},
		{"parent uuid", TaskFilter{ParentUUID: "xyz"}, "parent_uuid"},
		{"rrule duration", TaskFilter{DurationEquals: ptr("RRULE:FREQ=DAILY")}, "duration_equals"},
		{"malformed duration", TaskFilter{DurationEquals: ptr("30 minutes")}, "duration_equals"},
		{"duration without duration", TaskFilter{DurationEquals: ptr("PT30M"), HasDuration: ptr(false)}, "duration_equals"},
		{"inverted points", TaskFilter{MinPoints: ptr(5.0), MaxPoints: ptr(1.0)}, "points"},
		{"inverted created", TaskFilter{CreatedAfter: ptr(int64(300)), CreatedBefore: ptr(int64(100))}, "created"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildTaskQuery(tc.filter, testPaging)
			if !errors.Is(err, ErrUsage) {
				t.Fatalf("expected usage error, got %v", err)
			}
			var ue *UsageError
			if !errors.As(err, &ue) || ue.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}

	if _, err := BuildNoteQuery(NoteFilter{SortBy: "due"}, testPaging); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error for note sort key, got %v", err)
	}
}

func TestPagingResolveBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(-10, 1500).Draw(rt, "limit")
		offset := rapid.IntRange(-3, 100).Draw(rt, "offset")
		got, err := testPaging.resolve(limit, offset)

		valid := (limit == 0 || (limit >= 1 && limit <= MaxLimit)) && offset >= 0
		if valid != (err == nil) {
			rt.Fatalf("limit=%d offset=%d: err=%v", limit, offset, err)
		}
		if err == nil && (got < 1 || got > MaxLimit) {
			rt.Fatalf("resolved limit %d out of bounds", got)
		}
	})
}

func TestHasMoreTrims(t *testing.T) {
	rows, more := HasMore([]int{1, 2, 3}, 2)
	if !more || len(rows) != 2 {
		t.Fatalf("expected 2 rows and more, got %v %v", rows, more)
	}
	rows, more = HasMore([]int{1, 2}, 2)
	if more || len(rows) != 2 {
		t.Fatalf("expected 2 rows and no more, got %v %v", rows, more)
	}
}

func TestReferencesPredicateUnionsSources(t *testing.T) {
	frag := referencesPredicate("7b1f8c1e-6d3a-4a55-9b1b-0e2f3a4b5c6d")
	if !strings.Contains(frag.SQL, " OR ") || len(frag.Args) != 2 {
		t.Fatalf("expected OR of both sources, got %s %v", frag.SQL, frag.Args)
	}
}

func TestNoteReferencePredicateExpandsIdentities(t *testing.T) {
	id := "7b1f8c1e-6d3a-4a55-9b1b-0e2f3a4b5c6d"
	stmt, err := BuildTaskQuery(TaskFilter{ReferencesNote: id}, Paging{DefaultLimit: 20, MaxLimit: MaxLimit})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if strings.Count(stmt.SQL, NoteIdentitySet) != 2 {
		t.Fatalf("expected identity expansion on both reference sources: %s", stmt.SQL)
	}
	// visibility, six identity args, limit, offset
	if len(stmt.Args) != 9 {
		t.Fatalf("unexpected args %v", stmt.Args)
	}
	if _, err := BuildTaskQuery(TaskFilter{ReferencesNote: "nope"}, Paging{DefaultLimit: 20, MaxLimit: MaxLimit}); !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}
