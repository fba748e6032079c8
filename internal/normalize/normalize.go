// Package normalize re-flows raw extracted text and standardizes heading markers.
package normalize

import (
	"regexp"
	"strings"
)

// Normalize discards blank lines, trims each remaining line, and joins them with
// single spaces. This removes mid-sentence line wraps introduced by page layout.
// Normalize is total: empty input yields "", and Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}

// markerRe matches a delimited heading marker with a case-insensitive keyword and
// arbitrary inner spacing, e.g. "===article  II :Membership===".
var markerRe = regexp.MustCompile(`(?i)===\s*(article|section)\s*([^=]+?)\s*===`)

var colonRe = regexp.MustCompile(`\s*:\s*`)

// FormatMarkers rewrites every heading marker into the canonical form
// "=== Article <numeral>: <title> ===" on a line of its own, and trims the
// text between markers. Text that does not match the marker pattern is left as is.
func FormatMarkers(text string) string {
	formatted := markerRe.ReplaceAllStringFunc(text, func(m string) string {
		sub := markerRe.FindStringSubmatch(m)
		keyword := strings.ToUpper(sub[1][:1]) + strings.ToLower(sub[1][1:])
		body := strings.Join(strings.Fields(sub[2]), " ")
		body = strings.TrimSpace(colonRe.ReplaceAllString(body, ": "))
		return "\n=== " + keyword + " " + body + " ===\n"
	})
	lines := strings.Split(formatted, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
