// Package parser detects and extracts @ai flags from markdown documents.
//
// Supported flag forms:
//   - @ai            auto-route
//   - @ai:claude     explicit model
//   - @ai:claude,cursor  multiple models, in preference order
package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clyqra/anthra/internal/markdown"
)

var flagRe = regexp.MustCompile(`(?i)@ai(?::([a-z,]+))?`)

// DefaultSection is assigned to flags that appear above the first
// level-2 header.
const DefaultSection = "Introduction"

// AIFlag is one detected @ai marker with its enclosing list item.
type AIFlag struct {
	LineNumber         int           `json:"line_number"` // 1-indexed
	Section            string        `json:"section"`
	ItemText           string        `json:"item_text"`
	ModelOverride      ModelOverride `json:"model_override,omitempty"`
	SurroundingContext string        `json:"surrounding_context,omitempty"`
}

// ModelOverride is the optional model list attached to a flag. It
// marshals as a bare string when it holds exactly one model, matching
// the wire shape consumers expect.
type ModelOverride []string

// MarshalJSON emits a string for a single model and an array otherwise.
func (m ModelOverride) MarshalJSON() ([]byte, error) {
	if len(m) == 1 {
		return json.Marshal(m[0])
	}
	return json.Marshal([]string(m))
}

// UnmarshalJSON accepts both a bare string and an array of strings.
func (m *ModelOverride) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = ModelOverride{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*m = list
	return nil
}

// ParseAIFlags scans content line by line and returns one AIFlag per
// @ai occurrence. Duplicate markers produce duplicate flags; item
// ranges of neighbouring flags may overlap and are never merged.
func ParseAIFlags(content string) []AIFlag {
	lines := markdown.Split(content)
	var flags []AIFlag

	for i, line := range lines {
		for _, m := range flagRe.FindAllStringSubmatch(line, -1) {
			var override ModelOverride
			if m[1] != "" {
				for _, name := range strings.Split(m[1], ",") {
					override = append(override, strings.ToLower(strings.TrimSpace(name)))
				}
			}

			start := markdown.ItemStart(lines, i)
			end := markdown.ItemEnd(lines, i)
			item := strings.TrimSpace(strings.Join(lines[start:end+1], "\n"))

			flags = append(flags, AIFlag{
				LineNumber:         i + 1,
				Section:            sectionFor(lines, i),
				ItemText:           item,
				ModelOverride:      override,
				SurroundingContext: surroundingContext(lines, start, markdown.SectionStart(lines, i)),
			})
		}
	}

	return flags
}

// sectionFor walks backward for the nearest level-2 header text.
func sectionFor(lines []string, i int) string {
	for j := i; j >= 0; j-- {
		if name, ok := markdown.SectionHeader(lines[j]); ok {
			return name
		}
	}
	return DefaultSection
}

// surroundingContext collects up to 3 preceding sibling list items in
// the same section, oldest first, joined by blank lines.
func surroundingContext(lines []string, itemStart, sectionStart int) string {
	var items []string

	cur := itemStart - 1
	for cur >= sectionStart && len(items) < 3 {
		line := strings.TrimSpace(lines[cur])
		if line == "" {
			cur--
			continue
		}

		if markdown.IsListItem(line) {
			end := cur
			for i := cur + 1; i < itemStart; i++ {
				next := strings.TrimSpace(lines[i])
				if next == "" || markdown.IsListItem(next) {
					end = i - 1
					break
				}
				end = i
			}
			item := strings.TrimSpace(strings.Join(lines[cur:end+1], "\n"))
			items = append([]string{item}, items...)
		}

		cur--
	}

	return strings.Join(items, "\n\n")
}

// RemoveAIFlags strips every @ai marker in place, trimming trailing
// whitespace per line. Line count and all other content are preserved.
// This is a lossy display transform with no inverse.
func RemoveAIFlags(content string) string {
	lines := markdown.Split(content)
	for i, line := range lines {
		lines[i] = strings.TrimRight(flagRe.ReplaceAllString(line, ""), " \t")
	}
	return strings.Join(lines, "\n")
}

// Frontmatter is the parsed YAML header of a markdown document.
type Frontmatter map[string]any

// ParseFrontmatter separates YAML frontmatter (between leading ---
// delimiters) from the markdown body. Content without frontmatter, or
// with invalid YAML, is returned whole as body with a nil map.
func ParseFrontmatter(content string) (Frontmatter, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(content, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return nil, content
	}

	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, content
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(rest[:idx]), &fm); err != nil {
		return nil, content
	}

	body := strings.TrimLeft(rest[idx+1+len(delim):], "\n\r")
	return fm, body
}
