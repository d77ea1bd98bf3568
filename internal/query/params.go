package query

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"amplecache/internal/attrs"
)

// Args is a loosely typed argument map as delivered by a tool call. The
// accessors never coerce across types: a string where a number is expected
// is a usage error.
type Args map[string]any

// NormalizeKey folds snake_case and camelCase spellings onto one key.
func NormalizeKey(k string) string {
	return strings.ToLower(strings.ReplaceAll(k, "_", ""))
}

func (a Args) lookup(key string) (any, bool) {
	want := NormalizeKey(key)
	for k, v := range a {
		if NormalizeKey(k) == want && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the named string argument.
func (a Args) String(key string) (string, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, usagef(key, "must be a string, got %T", v)
	}
	return s, true, nil
}

// Int returns the named integer argument. Floats are accepted only when
// they carry no fractional part, since JSON numbers decode as float64.
func (a Args) Int(key string) (int64, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int:
		return int64(n), true, nil
	case int64:
		return n, true, nil
	case int32:
		return int64(n), true, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false, usagef(key, "must be an integer, got %v", n)
		}
		return int64(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false, usagef(key, "must be an integer, got %s", n)
		}
		return i, true, nil
	}
	return 0, false, usagef(key, "must be an integer, got %T", v)
}

// Float returns the named numeric argument.
func (a Args) Float(key string) (float64, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false, usagef(key, "must be a number, got %s", n)
		}
		return f, true, nil
	}
	return 0, false, usagef(key, "must be a number, got %T", v)
}

// Bool returns the named boolean argument.
func (a Args) Bool(key string) (bool, bool, error) {
	v, ok := a.lookup(key)
	if !ok {
		return false, false, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, false, usagef(key, "must be a boolean, got %T", v)
	}
	return b, true, nil
}

// CheckKeys rejects any argument whose normalized name is not in allowed,
// and any name given under more than one spelling (min_points and
// minPoints together).
func (a Args) CheckKeys(allowed ...string) error {
	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[NormalizeKey(k)] = true
	}
	var unknown []string
	spellings := make(map[string][]string, len(a))
	for k := range a {
		norm := NormalizeKey(k)
		if !known[norm] {
			unknown = append(unknown, k)
		}
		spellings[norm] = append(spellings[norm], k)
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return usagef(unknown[0], "unknown filter key (unknown: %s)", strings.Join(unknown, ", "))
	}
	var dups []string
	for _, keys := range spellings {
		if len(keys) > 1 {
			sort.Strings(keys)
			dups = append(dups, strings.Join(keys, " and "))
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return usagef(strings.SplitN(dups[0], " ", 2)[0], "given more than once: %s", strings.Join(dups, "; "))
	}
	return nil
}

type argReader struct {
	args Args
	err  error
}

func (r *argReader) str(key string, dst *string) {
	if r.err != nil {
		return
	}
	v, ok, err := r.args.String(key)
	if err != nil {
		r.err = err
		return
	}
	if ok {
		*dst = v
	}
}

func (r *argReader) strPtr(key string, dst **string) {
	var s string
	var set bool
	r.str(key, &s)
	if r.err == nil {
		_, set = r.args.lookup(key)
	}
	if set {
		*dst = &s
	}
}

func (r *argReader) int(key string, dst **int64) {
	if r.err != nil {
		return
	}
	v, ok, err := r.args.Int(key)
	if err != nil {
		r.err = err
		return
	}
	if ok {
		*dst = &v
	}
}

func (r *argReader) count(key string, dst *int) {
	var v *int64
	r.int(key, &v)
	if v != nil {
		*dst = int(*v)
	}
}

func (r *argReader) float(key string, dst **float64) {
	if r.err != nil {
		return
	}
	v, ok, err := r.args.Float(key)
	if err != nil {
		r.err = err
		return
	}
	if ok {
		*dst = &v
	}
}

func (r *argReader) boolean(key string, dst **bool) {
	if r.err != nil {
		return
	}
	v, ok, err := r.args.Bool(key)
	if err != nil {
		r.err = err
		return
	}
	if ok {
		*dst = &v
	}
}

// TaskFilterKeys lists every recognised task filter key in snake_case.
var TaskFilterKeys = []string{
	"content_search", "text", "include_deleted", "done", "priority", "parent_uuid",
	"has_due_date", "due_after", "due_before",
	"min_points", "max_points", "min_victory_value", "max_victory_value",
	"min_streak_count", "max_streak_count",
	"created_after", "created_before", "completed_after", "completed_before",
	"start_after", "start_before",
	"flags_filter", "has_flags", "has_duration", "duration_equals", "is_recurring",
	"has_references", "references_uuid",
	"sort_by", "sort_descending", "limit", "offset",
}

// ParseTaskFilter converts a tool-call argument map into a TaskFilter.
// Unknown keys and wrongly typed values are usage errors.
func ParseTaskFilter(a Args) (TaskFilter, error) {
	var f TaskFilter
	if err := a.CheckKeys(TaskFilterKeys...); err != nil {
		return f, err
	}
	if _, ok := a.lookup("content_search"); ok {
		if _, ok := a.lookup("text"); ok {
			return f, usagef("text", "cannot be combined with content_search")
		}
	}
	r := &argReader{args: a}

	r.str("content_search", &f.Text)
	if f.Text == "" {
		r.str("text", &f.Text)
	}
	var includeDeleted *bool
	r.boolean("include_deleted", &includeDeleted)
	if includeDeleted != nil {
		f.IncludeDeleted = *includeDeleted
	}
	r.boolean("done", &f.Done)
	r.int("priority", &f.Priority)
	r.str("parent_uuid", &f.ParentUUID)

	r.boolean("has_due_date", &f.HasDueDate)
	r.int("due_after", &f.DueAfter)
	r.int("due_before", &f.DueBefore)

	r.float("min_points", &f.MinPoints)
	r.float("max_points", &f.MaxPoints)
	r.float("min_victory_value", &f.MinVictoryValue)
	r.float("max_victory_value", &f.MaxVictoryValue)
	r.int("min_streak_count", &f.MinStreakCount)
	r.int("max_streak_count", &f.MaxStreakCount)

	r.int("created_after", &f.CreatedAfter)
	r.int("created_before", &f.CreatedBefore)
	r.int("completed_after", &f.CompletedAfter)
	r.int("completed_before", &f.CompletedBefore)
	r.int("start_after", &f.StartAfter)
	r.int("start_before", &f.StartBefore)

	var mode string
	r.str("flags_filter", &mode)
	r.str("has_flags", &f.HasFlags)
	r.boolean("has_duration", &f.HasDuration)
	r.strPtr("duration_equals", &f.DurationEquals)
	r.boolean("is_recurring", &f.IsRecurring)
	r.boolean("has_references", &f.HasReferences)
	r.str("references_uuid", &f.ReferencesUUID)

	r.str("sort_by", &f.SortBy)
	r.boolean("sort_descending", &f.SortDescending)
	r.count("limit", &f.Limit)
	r.count("offset", &f.Offset)
	if r.err != nil {
		return f, r.err
	}
	if _, ok := a.lookup("limit"); ok && f.Limit == 0 {
		return f, usagef("limit", "must be between 1 and %d, got 0", MaxLimit)
	}

	if mode != "" {
		m, err := attrs.ParseFlagMode(mode)
		if err != nil {
			return f, usagef("flags_filter", "unknown mode %q (want one of urgent, important, both, none, any)", mode)
		}
		f.FlagsFilter = m
	}
	return f, f.validate()
}

// NoteFilterKeys lists every recognised note filter key.
var NoteFilterKeys = []string{"query", "name_contains", "sort_by", "sort_descending", "limit", "offset"}

// ParseNoteFilter converts a tool-call argument map into a NoteFilter.
func ParseNoteFilter(a Args) (NoteFilter, error) {
	var f NoteFilter
	if err := a.CheckKeys(NoteFilterKeys...); err != nil {
		return f, err
	}
	r := &argReader{args: a}
	r.str("query", &f.Text)
	r.str("name_contains", &f.NameContains)
	r.str("sort_by", &f.SortBy)
	r.boolean("sort_descending", &f.SortDescending)
	r.count("limit", &f.Limit)
	r.count("offset", &f.Offset)
	if r.err != nil {
		return f, r.err
	}
	if _, ok := a.lookup("limit"); ok && f.Limit == 0 {
		return f, usagef("limit", "must be between 1 and %d, got 0", MaxLimit)
	}
	return f, f.validate()
}
