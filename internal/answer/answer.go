// Package answer implements the results format the chatbot replies with:
//
//	Here are the results:
//	- Montreal: 950.00, - Vancouver: 400.10
package answer

import (
	"regexp"
	"strings"
)

// Header opens every results answer.
const Header = "Here are the results:"

// Line is one "- label: value" entry.
type Line struct {
	Label string
	Value string
}

func (l Line) String() string {
	return "- " + l.Label + ": " + l.Value
}

// Format renders lines in the canonical form. No lines yields just the header.
func Format(lines []Line) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.String()
	}
	if len(parts) == 0 {
		return Header
	}
	return Header + "\n" + strings.Join(parts, ", ")
}

var (
	// Entries are separated by ", - " or by line breaks followed by "- ".
	itemSep   = regexp.MustCompile(`\s*,?\s*\n\s*[-*•]\s+|,\s*[-*•]\s+`)
	fence     = regexp.MustCompile("(?m)^```[a-zA-Z]*\\s*$")
	canonical = regexp.MustCompile(`^Here are the results:\n- (?:[^:\n]|:[^ \n])+: [^\n]*?(, - (?:[^:\n]|:[^ \n])+: [^\n]*?)*$`)
)

// Parse extracts the lines of a results answer. ok is false when text has no
// results header or no well-formed entries.
func Parse(text string) (lines []Line, ok bool) {
	text = clean(text)
	idx := strings.Index(strings.ToLower(text), strings.ToLower(Header))
	if idx < 0 {
		return nil, false
	}
	body := strings.TrimSpace(text[idx+len(Header):])
	body = strings.TrimLeft(body, "-*• \t")
	if body == "" {
		return nil, false
	}

	for _, item := range itemSep.Split(body, -1) {
		item = strings.TrimSpace(item)
		item = strings.TrimRight(item, ",")
		if item == "" {
			continue
		}
		line, ok := splitItem(item)
		if !ok {
			return nil, false
		}
		lines = append(lines, line)
	}
	return lines, len(lines) > 0
}

// splitItem separates "label: value". Values are scalars, so the last ": "
// is the separator and labels such as "10:00" or "Note: x" stay whole. Items
// with no ": " fall back to the first colon.
func splitItem(item string) (Line, bool) {
	// Anything after a line break is commentary, not part of the value.
	if i := strings.IndexByte(item, '\n'); i >= 0 {
		item = item[:i]
	}
	item = strings.TrimSpace(item)

	var label, value string
	if i := strings.LastIndex(item, ": "); i >= 0 {
		label, value = item[:i], item[i+2:]
	} else if strings.HasSuffix(item, ":") {
		label = strings.TrimSuffix(item, ":")
	} else {
		var found bool
		if label, value, found = strings.Cut(item, ":"); !found {
			return Line{}, false
		}
	}

	label = strings.TrimSpace(label)
	if label == "" {
		return Line{}, false
	}
	return Line{Label: label, Value: strings.TrimSpace(value)}, true
}

// Normalize rewrites a results answer into canonical form. Text that is not a
// results answer, such as an explanation that a column does not exist, is
// returned trimmed but otherwise unchanged.
func Normalize(text string) string {
	lines, ok := Parse(text)
	if !ok {
		return strings.TrimSpace(text)
	}
	return Format(lines)
}

// IsCanonical reports whether text is exactly in the results format.
func IsCanonical(text string) bool {
	return canonical.MatchString(text)
}

// clean strips markdown the model sometimes adds despite instructions.
func clean(text string) string {
	text = fence.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimSpace(text)
}
