package query

import "strings"

// Coercion is the SQL type a JSON-extracted value is converted to before it
// is compared. SQLite JSON values carry no fixed column affinity, so an
// uncoerced comparison of 1700000000 against "999" silently turns into a
// string comparison.
type Coercion int

const (
	AsIs Coercion = iota
	AsInteger
	AsReal
	AsText
	AsArray
)

// Operand is the left-hand side of a compiled predicate: either a plain
// column or a key inside the JSON attribute document of a column.
type Operand struct {
	column string
	key    string
	coerce Coercion
}

// Column references a plain column, e.g. "t.due".
func Column(name string) Operand {
	return Operand{column: name}
}

// JSONPath references a top-level key of the JSON document held in column.
// key must be a compile-time constant; it is embedded in the statement.
func JSONPath(column, key string, coerce Coercion) Operand {
	return Operand{column: column, key: key, coerce: coerce}
}

func (o Operand) IsJSON() bool { return o.key != "" }

// doc guards extraction so a malformed document reads as "all keys absent"
// instead of aborting the whole statement with a JSON error.
func (o Operand) doc() string {
	return "(CASE WHEN json_valid(" + o.column + ") THEN " + o.column + " END)"
}

func (o Operand) path() string {
	return "'$." + o.key + "'"
}

// SQL renders the operand. JSON operands yield NULL unless the stored value
// has the JSON type matching the coercion, which keeps SQL predicates in
// agreement with attrs.Decode.
func (o Operand) SQL() string {
	if !o.IsJSON() {
		return o.column
	}
	doc, path := o.doc(), o.path()
	extract := "json_extract(" + doc + ", " + path + ")"
	jsonType := "json_type(" + doc + ", " + path + ")"
	switch o.coerce {
	case AsInteger:
		return "(CASE WHEN " + jsonType + " IN ('integer', 'real') THEN CAST(" + extract + " AS INTEGER) END)"
	case AsReal:
		return "(CASE WHEN " + jsonType + " IN ('integer', 'real') THEN CAST(" + extract + " AS REAL) END)"
	case AsText:
		return "(CASE WHEN " + jsonType + " = 'text' THEN " + extract + " END)"
	case AsArray:
		return "(CASE WHEN " + jsonType + " = 'array' THEN " + extract + " END)"
	}
	return extract
}

// Fragment is one compiled condition with its bound parameters.
type Fragment struct {
	SQL  string
	Args []any
}

func cmp(o Operand, op string, v any) Fragment {
	return Fragment{SQL: o.SQL() + " " + op + " ?", Args: []any{v}}
}

func exists(o Operand, want bool) Fragment {
	if want {
		return Fragment{SQL: o.SQL() + " IS NOT NULL"}
	}
	return Fragment{SQL: o.SQL() + " IS NULL"}
}

// between compiles an inclusive range; a nil bound imposes no constraint.
func between[T int64 | float64](o Operand, lo, hi *T) []Fragment {
	var out []Fragment
	if lo != nil {
		out = append(out, cmp(o, ">=", *lo))
	}
	if hi != nil {
		out = append(out, cmp(o, "<=", *hi))
	}
	return out
}

func joinFragments(frags []Fragment) (string, []any) {
	if len(frags) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(frags))
	var args []any
	for _, f := range frags {
		parts = append(parts, f.SQL)
		args = append(args, f.Args...)
	}
	return strings.Join(parts, " AND "), args
}
