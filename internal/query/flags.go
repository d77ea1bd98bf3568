package query

import (
	"fmt"
	"strings"

	"amplecache/internal/attrs"
)

// flagsText is the packed flags string with an absent key read as "".
func flagsText() string {
	return "COALESCE(" + opFlags.SQL() + ", '')"
}

func hasFlag(flag rune) string {
	return fmt.Sprintf("instr(%s, '%c') > 0", flagsText(), flag)
}

func lacksFlag(flag rune) string {
	return fmt.Sprintf("instr(%s, '%c') = 0", flagsText(), flag)
}

// flagModePredicate mirrors attrs.Flags.Match in SQL.
func flagModePredicate(mode attrs.FlagMode) (Fragment, error) {
	var sql string
	switch mode {
	case attrs.FlagModeUrgent:
		sql = hasFlag(attrs.FlagUrgent) + " AND " + lacksFlag(attrs.FlagImportant)
	case attrs.FlagModeImportant:
		sql = hasFlag(attrs.FlagImportant) + " AND " + lacksFlag(attrs.FlagUrgent)
	case attrs.FlagModeBoth:
		sql = hasFlag(attrs.FlagImportant) + " AND " + hasFlag(attrs.FlagUrgent)
	case attrs.FlagModeNone:
		sql = lacksFlag(attrs.FlagImportant) + " AND " + lacksFlag(attrs.FlagUrgent)
	case attrs.FlagModeAny:
		sql = fmt.Sprintf("instr(%s, '%c') + instr(%s, '%c') > 0", flagsText(), attrs.FlagImportant, flagsText(), attrs.FlagUrgent)
	default:
		return Fragment{}, usagef("flags_filter", "unknown mode %q", mode)
	}
	return Fragment{SQL: "(" + sql + ")"}, nil
}

// requiredFlagsPredicate matches when the stored flags are a superset of
// required. Letters are bound as parameters.
func requiredFlagsPredicate(required string) Fragment {
	letters := uniqueLetters(required)
	parts := make([]string, 0, len(letters))
	args := make([]any, 0, len(letters))
	for _, r := range letters {
		parts = append(parts, "instr("+flagsText()+", ?) > 0")
		args = append(args, string(r))
	}
	return Fragment{SQL: "(" + strings.Join(parts, " AND ") + ")", Args: args}
}

func uniqueLetters(s string) []rune {
	seen := make(map[rune]bool, len(s))
	var out []rune
	for _, r := range s {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func validFlagLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
