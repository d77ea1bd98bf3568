package query

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"amplecache/internal/attrs"
)

// TaskFilter is the structured task request. Nil pointers and empty strings
// mean "no constraint"; a zero TaskFilter matches every non-deleted task.
type TaskFilter struct {
	Text           string
	IncludeDeleted bool
	Done           *bool
	Priority       *int64
	ParentUUID     string

	HasDueDate *bool
	DueAfter   *int64
	DueBefore  *int64

	MinPoints       *float64
	MaxPoints       *float64
	MinVictoryValue *float64
	MaxVictoryValue *float64
	MinStreakCount  *int64
	MaxStreakCount  *int64

	CreatedAfter    *int64
	CreatedBefore   *int64
	CompletedAfter  *int64
	CompletedBefore *int64
	StartAfter      *int64
	StartBefore     *int64

	FlagsFilter attrs.FlagMode
	HasFlags    string

	HasDuration    *bool
	DurationEquals *string
	IsRecurring    *bool

	HasReferences  *bool
	ReferencesUUID string
	// ReferencesNote is like ReferencesUUID but also matches references to
	// the note's other identity (remote or local).
	ReferencesNote string

	SortBy         string
	SortDescending *bool
	// Limit 0 selects the operation default.
	Limit  int
	Offset int
}

// NoteFilter is the structured note request.
type NoteFilter struct {
	Text           string
	NameContains   string
	SortBy         string
	SortDescending *bool
	Limit          int
	Offset         int
}

// Paging bounds every statement.
type Paging struct {
	DefaultLimit int
	MaxLimit     int
}

const MaxLimit = 1000

func (p Paging) resolve(limit, offset int) (int, error) {
	max := p.MaxLimit
	if max <= 0 || max > MaxLimit {
		max = MaxLimit
	}
	if limit == 0 {
		limit = p.DefaultLimit
	}
	if limit < 1 || limit > max {
		return 0, usagef("limit", "must be between 1 and %d, got %d", max, limit)
	}
	if offset < 0 {
		return 0, usagef("offset", "must be >= 0, got %d", offset)
	}
	return limit, nil
}

// compile validates the filter and returns its AND-combined fragments. The
// full-text constraint is handled by the builder as a join.
func (f TaskFilter) compile() ([]Fragment, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	var frags []Fragment
	if !f.IncludeDeleted {
		frags = append(frags, cmp(opDeleted, "=", 0))
	}
	if f.Done != nil {
		frags = append(frags, cmp(opDone, "=", boolInt(*f.Done)))
	}
	if f.Priority != nil {
		frags = append(frags, cmp(opPriority, "=", *f.Priority))
	}
	if f.ParentUUID != "" {
		frags = append(frags, cmp(opParent, "=", f.ParentUUID))
	}

	if f.HasDueDate != nil {
		frags = append(frags, exists(opDue, *f.HasDueDate))
	}
	frags = append(frags, between(opDue, f.DueAfter, f.DueBefore)...)

	frags = append(frags, between(opPoints, f.MinPoints, f.MaxPoints)...)
	frags = append(frags, between(opVictoryValue, f.MinVictoryValue, f.MaxVictoryValue)...)
	frags = append(frags, between(opStreakCount, f.MinStreakCount, f.MaxStreakCount)...)

	frags = append(frags, between(opCreatedAt, f.CreatedAfter, f.CreatedBefore)...)
	frags = append(frags, between(opCompletedAt, f.CompletedAfter, f.CompletedBefore)...)
	frags = append(frags, between(opStartAt, f.StartAfter, f.StartBefore)...)

	if f.FlagsFilter != "" {
		frag, err := flagModePredicate(f.FlagsFilter)
		if err != nil {
			return nil, err
		}
		frags = append(frags, frag)
	}
	if f.HasFlags != "" {
		frags = append(frags, requiredFlagsPredicate(f.HasFlags))
	}

	if f.HasDuration != nil {
		frags = append(frags, exists(opDuration, *f.HasDuration))
	}
	if f.DurationEquals != nil {
		frags = append(frags, cmp(opDuration, "=", *f.DurationEquals))
	}
	if f.IsRecurring != nil {
		op := "="
		if *f.IsRecurring {
			op = "<>"
		}
		frags = append(frags, Fragment{SQL: "COALESCE(" + opRepeat.SQL() + ", '') " + op + " ''"})
	}

	if f.HasReferences != nil {
		frags = append(frags, exists(opReferenceArray, *f.HasReferences))
	}
	if f.ReferencesUUID != "" {
		frags = append(frags, referencesPredicate(f.ReferencesUUID))
	}
	if f.ReferencesNote != "" {
		frags = append(frags, referencesNotePredicate(f.ReferencesNote))
	}
	return frags, nil
}

// referencesPredicate is true when id appears in the attribute references
// array or as a target of a task_references edge. The sources are unioned.
func referencesPredicate(id string) Fragment {
	return Fragment{
		SQL: "(EXISTS (SELECT 1 FROM json_each(" + opReferenceArray.SQL() + ") AS refs WHERE refs.value = ?)" +
			" OR EXISTS (SELECT 1 FROM task_references AS tr WHERE tr.source_uuid = t.uuid AND tr.target_uuid = ?))",
		Args: []any{id, id},
	}
}

// NoteIdentitySet expands one note UUID to every identity of that note, so
// a reference recorded against the local UUID is found through the remote
// one. Bind it with NoteIdentityArgs.
const NoteIdentitySet = "(SELECT ? UNION SELECT local_uuid FROM notes WHERE remote_uuid = ? AND local_uuid IS NOT NULL" +
	" UNION SELECT remote_uuid FROM notes WHERE local_uuid = ? AND remote_uuid IS NOT NULL)"

func NoteIdentityArgs(id string) []any {
	return []any{id, id, id}
}

func referencesNotePredicate(id string) Fragment {
	args := append(NoteIdentityArgs(id), NoteIdentityArgs(id)...)
	return Fragment{
		SQL: "(EXISTS (SELECT 1 FROM json_each(" + opReferenceArray.SQL() + ") AS refs WHERE refs.value IN " + NoteIdentitySet + ")" +
			" OR EXISTS (SELECT 1 FROM task_references AS tr WHERE tr.source_uuid = t.uuid AND tr.target_uuid IN " + NoteIdentitySet + "))",
		Args: args,
	}
}

func (f TaskFilter) validate() error {
	if f.FlagsFilter != "" && f.HasFlags != "" {
		return usagef("flags_filter", "cannot be combined with has_flags")
	}
	if f.FlagsFilter != "" {
		if _, err := attrs.ParseFlagMode(string(f.FlagsFilter)); err != nil {
			return usagef("flags_filter", "unknown mode %q", f.FlagsFilter)
		}
	}
	if f.HasFlags != "" && !validFlagLetters(f.HasFlags) {
		return usagef("has_flags", "must be upper-case flag letters, got %q", f.HasFlags)
	}
	if f.DurationEquals != nil {
		d := *f.DurationEquals
		if looksLikeRRule(d) {
			return usagef("duration_equals", "recurrence rules cannot be matched as a duration: %q", d)
		}
		if !validDuration(d) {
			return usagef("duration_equals", "not an ISO-8601 duration: %q", d)
		}
		if f.HasDuration != nil && !*f.HasDuration {
			return usagef("duration_equals", "cannot be combined with has_duration=false")
		}
	}
	if f.HasDueDate != nil && !*f.HasDueDate && (f.DueAfter != nil || f.DueBefore != nil) {
		return usagef("has_due_date", "cannot be false together with a due range")
	}
	if f.ReferencesUUID != "" {
		if err := ValidateUUID("references_uuid", f.ReferencesUUID); err != nil {
			return err
		}
	}
	if f.ReferencesNote != "" {
		if err := ValidateUUID("note_uuid", f.ReferencesNote); err != nil {
			return err
		}
	}
	if f.ParentUUID != "" {
		if err := ValidateUUID("parent_uuid", f.ParentUUID); err != nil {
			return err
		}
	}
	if err := checkRange("points", f.MinPoints, f.MaxPoints); err != nil {
		return err
	}
	if err := checkRange("victory_value", f.MinVictoryValue, f.MaxVictoryValue); err != nil {
		return err
	}
	if err := checkRange("streak_count", f.MinStreakCount, f.MaxStreakCount); err != nil {
		return err
	}
	for _, r := range []struct {
		name   string
		lo, hi *int64
	}{
		{"due", f.DueAfter, f.DueBefore},
		{"created", f.CreatedAfter, f.CreatedBefore},
		{"completed", f.CompletedAfter, f.CompletedBefore},
		{"start", f.StartAfter, f.StartBefore},
	} {
		if err := checkRange(r.name, r.lo, r.hi); err != nil {
			return err
		}
	}
	if f.SortBy != "" {
		if _, ok := taskSortKeys[f.SortBy]; !ok {
			return usagef("sort_by", "unsupported key %q (want one of %s)", f.SortBy, sortKeyList(taskSortKeys))
		}
	}
	return nil
}

func (f NoteFilter) validate() error {
	if f.SortBy != "" {
		if _, ok := noteSortKeys[f.SortBy]; !ok {
			return usagef("sort_by", "unsupported key %q (want one of %s)", f.SortBy, sortKeyList(noteSortKeys))
		}
	}
	return nil
}

// ValidateUUID rejects identifiers that are not UUIDs.
func ValidateUUID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return usagef(field, "malformed UUID %q", id)
	}
	return nil
}

func checkRange[T int64 | float64](name string, lo, hi *T) error {
	if lo != nil && hi != nil && *lo > *hi {
		return usagef(name, "lower bound %v is greater than upper bound %v", *lo, *hi)
	}
	return nil
}

func sortKeyList(keys map[string]sortKey) string {
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
