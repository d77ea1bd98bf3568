package query

import (
	"regexp"
	"strings"
)

var isoDurationRe = regexp.MustCompile(`^P(\d+([.,]\d+)?Y)?(\d+([.,]\d+)?M)?(\d+([.,]\d+)?W)?(\d+([.,]\d+)?D)?(T(\d+([.,]\d+)?H)?(\d+([.,]\d+)?M)?(\d+([.,]\d+)?S)?)?$`)

// validDuration accepts ISO-8601 durations such as PT30M or P1DT2H. The
// value is matched verbatim later, so PT60M and PT1H stay distinct.
func validDuration(s string) bool {
	if s == "P" || strings.HasSuffix(s, "T") {
		return false
	}
	return isoDurationRe.MatchString(s)
}

// looksLikeRRule detects the iCalendar recurrence syntax, the other format
// Amplenote stores in repeat.
func looksLikeRRule(s string) bool {
	upper := strings.ToUpper(s)
	return strings.Contains(upper, "RRULE") || strings.Contains(upper, "FREQ=") || strings.Contains(upper, "DTSTART")
}
