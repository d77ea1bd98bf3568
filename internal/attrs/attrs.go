// Package attrs decodes the JSON attribute document stored next to every
// task row in the Amplenote cache.
//
// Every field is optional. A nil pointer means the key was absent from the
// document; a non-nil pointer to a zero value means the key was present with
// a zero value. Callers must keep that distinction.
package attrs

import (
	"bytes"
	"encoding/json"
	"math"
)

// Keys of the attribute document.
const (
	KeyCreatedAt       = "createdAt"
	KeyCompletedAt     = "completedAt"
	KeyCrossedOutAt    = "crossedOutAt"
	KeyStartAt         = "startAt"
	KeyPointsUpdatedAt = "pointsUpdatedAt"
	KeyNotify          = "notify"
	KeyDuration        = "duration"
	KeyRepeat          = "repeat"
	KeyStartRule       = "startRule"
	KeyDueDayPart      = "dueDayPart"
	KeyFlags           = "flags"
	KeyPoints          = "points"
	KeyVictoryValue    = "victoryValue"
	KeyStreakCount     = "streakCount"
	KeyReferences      = "references"
)

type Attrs struct {
	CreatedAt       *int64
	CompletedAt     *int64
	CrossedOutAt    *int64
	StartAt         *int64
	PointsUpdatedAt *int64
	Notify          *string
	Duration        *string
	Repeat          *string
	StartRule       *string
	DueDayPart      *string
	Flags           *string
	Points          *float64
	VictoryValue    *float64
	StreakCount     *int64
	// References is nil when absent and non-nil (possibly empty) when present.
	References []string
}

// Decode parses an attribute document. It never fails: a missing, empty or
// malformed document yields an empty Attrs and ok=false. A key holding a
// value of the wrong JSON type is treated as absent.
func Decode(raw []byte) (Attrs, bool) {
	var out Attrs
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return out, false
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return Attrs{}, false
	}

	out.CreatedAt = intField(doc, KeyCreatedAt)
	out.CompletedAt = intField(doc, KeyCompletedAt)
	out.CrossedOutAt = intField(doc, KeyCrossedOutAt)
	out.StartAt = intField(doc, KeyStartAt)
	out.PointsUpdatedAt = intField(doc, KeyPointsUpdatedAt)
	out.Notify = stringField(doc, KeyNotify)
	out.Duration = stringField(doc, KeyDuration)
	out.Repeat = stringField(doc, KeyRepeat)
	out.StartRule = stringField(doc, KeyStartRule)
	out.DueDayPart = stringField(doc, KeyDueDayPart)
	out.Flags = stringField(doc, KeyFlags)
	out.Points = floatField(doc, KeyPoints)
	out.VictoryValue = floatField(doc, KeyVictoryValue)
	out.StreakCount = intField(doc, KeyStreakCount)
	out.References = stringsField(doc, KeyReferences)
	return out, true
}

// Encode writes the present fields back into a JSON document. Absent fields
// are omitted; present zero values are kept.
func (a Attrs) Encode() ([]byte, error) {
	doc := make(map[string]any, 15)
	putPtr(doc, KeyCreatedAt, a.CreatedAt)
	putPtr(doc, KeyCompletedAt, a.CompletedAt)
	putPtr(doc, KeyCrossedOutAt, a.CrossedOutAt)
	putPtr(doc, KeyStartAt, a.StartAt)
	putPtr(doc, KeyPointsUpdatedAt, a.PointsUpdatedAt)
	putPtr(doc, KeyNotify, a.Notify)
	putPtr(doc, KeyDuration, a.Duration)
	putPtr(doc, KeyRepeat, a.Repeat)
	putPtr(doc, KeyStartRule, a.StartRule)
	putPtr(doc, KeyDueDayPart, a.DueDayPart)
	putPtr(doc, KeyFlags, a.Flags)
	putPtr(doc, KeyPoints, a.Points)
	putPtr(doc, KeyVictoryValue, a.VictoryValue)
	putPtr(doc, KeyStreakCount, a.StreakCount)
	if a.References != nil {
		doc[KeyReferences] = a.References
	}
	return json.Marshal(doc)
}

func (a Attrs) MarshalJSON() ([]byte, error) {
	return a.Encode()
}

func (a *Attrs) UnmarshalJSON(data []byte) error {
	decoded, _ := Decode(data)
	*a = decoded
	return nil
}

// FlagSet returns the packed flags, treating an absent key as the empty set.
func (a Attrs) FlagSet() Flags {
	if a.Flags == nil {
		return ""
	}
	return Flags(*a.Flags)
}

// IsRecurring reports whether a non-empty repeat rule is present.
func (a Attrs) IsRecurring() bool {
	return a.Repeat != nil && *a.Repeat != ""
}

func putPtr[T any](doc map[string]any, key string, v *T) {
	if v != nil {
		doc[key] = *v
	}
}

func present(doc map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := doc[key]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func stringField(doc map[string]json.RawMessage, key string) *string {
	raw, ok := present(doc, key)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func floatField(doc map[string]json.RawMessage, key string) *float64 {
	raw, ok := present(doc, key)
	if !ok {
		return nil
	}
	n, ok := number(raw)
	if !ok {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

func intField(doc map[string]json.RawMessage, key string) *int64 {
	raw, ok := present(doc, key)
	if !ok {
		return nil
	}
	n, ok := number(raw)
	if !ok {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		return &i
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil
	}
	i := int64(f)
	return &i
}

// number accepts bare JSON numbers only; a quoted "5" is not a number.
func number(raw json.RawMessage) (json.Number, bool) {
	if len(raw) == 0 || raw[0] == '"' {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n, true
}

func stringsField(doc map[string]json.RawMessage, key string) []string {
	raw, ok := present(doc, key)
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		// null unmarshals into *string as nil; json_each skips it the same way.
		var s *string
		if err := json.Unmarshal(item, &s); err != nil || s == nil {
			continue
		}
		out = append(out, *s)
	}
	return out
}
