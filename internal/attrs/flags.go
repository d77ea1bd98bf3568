package attrs

import (
	"fmt"
	"strings"
)

// Flag letters used by Amplenote.
const (
	FlagImportant = 'I'
	FlagUrgent    = 'U'
	FlagDelegated = 'D'
)

// Flags is a packed, order-independent set of single-letter flags.
type Flags string

func (f Flags) Has(flag rune) bool {
	return strings.ContainsRune(string(f), flag)
}

// ContainsAll reports whether every letter of required is present in f.
// The empty required set is contained in every flag string.
func (f Flags) ContainsAll(required string) bool {
	for _, r := range required {
		if !f.Has(r) {
			return false
		}
	}
	return true
}

func (f Flags) Urgent() bool    { return f.Has(FlagUrgent) }
func (f Flags) Important() bool { return f.Has(FlagImportant) }

type FlagMode string

const (
	FlagModeUrgent    FlagMode = "urgent"
	FlagModeImportant FlagMode = "important"
	FlagModeBoth      FlagMode = "both"
	FlagModeNone      FlagMode = "none"
	FlagModeAny       FlagMode = "any"
)

var FlagModes = []FlagMode{FlagModeUrgent, FlagModeImportant, FlagModeBoth, FlagModeNone, FlagModeAny}

func ParseFlagMode(raw string) (FlagMode, error) {
	mode := FlagMode(strings.ToLower(strings.TrimSpace(raw)))
	for _, m := range FlagModes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown flag mode %q", raw)
}

// Match evaluates a flag mode against f.
func (f Flags) Match(mode FlagMode) bool {
	i, u := f.Important(), f.Urgent()
	switch mode {
	case FlagModeUrgent:
		return u && !i
	case FlagModeImportant:
		return i && !u
	case FlagModeBoth:
		return i && u
	case FlagModeNone:
		return !i && !u
	case FlagModeAny:
		return i || u
	}
	return false
}
