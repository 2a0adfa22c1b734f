// Package markdown provides the line-oriented scanning helpers shared
// by the flag parser, the section extractor, and the response writer.
// It deliberately does not build an AST: every consumer works on raw
// line slices so positional rewrites stay byte-faithful.
package markdown

import (
	"regexp"
	"strings"
)

var (
	listItemRe = regexp.MustCompile(`^[-*]\s|^\d+\.\s`)
	headerRe   = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	sectionRe  = regexp.MustCompile(`^##\s+(.+)$`)
)

// Split breaks content into lines on "\n" without dropping empties.
func Split(content string) []string {
	return strings.Split(content, "\n")
}

// IsListItem reports whether the trimmed line starts a list item
// ("- ", "* ", or "N. ").
func IsListItem(line string) bool {
	return listItemRe.MatchString(strings.TrimSpace(line))
}

// Header returns the header level (1-6) and text of a line, or (0, "")
// when the line is not a markdown header.
func Header(line string) (int, string) {
	m := headerRe.FindStringSubmatch(line)
	if m == nil {
		return 0, ""
	}
	return len(m[1]), strings.TrimSpace(m[2])
}

// SectionHeader returns the text of a level-2 header, or ("", false).
func SectionHeader(line string) (string, bool) {
	m := sectionRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// NextNonEmpty returns the index of the first non-empty line at or
// after i, or len(lines) when the rest is blank.
func NextNonEmpty(lines []string, i int) int {
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	return i
}

// ItemStart walks backward from line i to the start of the enclosing
// list item: the nearest preceding list marker, or the line after the
// nearest empty line when the item has no marker.
func ItemStart(lines []string, i int) int {
	start := i
	for j := i - 1; j >= 0; j-- {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			break
		}
		if listItemRe.MatchString(line) {
			return j
		}
		start = j
	}
	return start
}

// ItemEnd walks forward from line i to the end of the enclosing list
// item. The boundary is an empty line whose next non-empty line starts
// a new list item, or a line that itself starts a new list item; the
// boundary line is included in the range.
func ItemEnd(lines []string, i int) int {
	end := i
	for j := i + 1; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		if line == "" {
			next := NextNonEmpty(lines, j+1)
			if next < len(lines) && listItemRe.MatchString(strings.TrimSpace(lines[next])) {
				return j
			}
		}
		if listItemRe.MatchString(line) {
			return j
		}
		end = j
	}
	return end
}

// SectionStart walks backward from line i to the nearest level-2
// header, returning 0 when the line is above the first section.
func SectionStart(lines []string, i int) int {
	for j := i; j >= 0; j-- {
		if _, ok := SectionHeader(lines[j]); ok {
			return j
		}
	}
	return 0
}
