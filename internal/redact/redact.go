// Package redact scrubs PII-shaped substrings before content leaves
// the machine: email addresses by regex and Swedish full names by
// fixed-list lookup. Redaction is reversible through the returned
// placeholder map.
package redact

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	wordRe     = regexp.MustCompile(`\S+`)
	trailingRe = regexp.MustCompile(`[.,!?;:]$`)
)

// EnvToggle gates cursor-model redaction.
const EnvToggle = "REDACTION_ENABLED"

// Map relates placeholder tokens ({{user_email_N}}, {{user_name_N}})
// to the original substrings they replaced.
type Map map[string]string

// Options disables individual redaction passes. Both default to on.
type Options struct {
	SkipEmails bool
	SkipNames  bool
}

// Names holds the first/last name lists used for pair matching. Like
// the routing lexicon, the lists are data: extend them without
// touching the matcher.
type Names struct {
	First []string `yaml:"first"`
	Last  []string `yaml:"last"`
}

// DefaultNames returns the built-in Swedish name lists.
func DefaultNames() Names {
	return Names{
		First: []string{
			"anders", "anna", "björn", "carolina", "daniel", "elin",
			"emma", "erik", "fredrik", "gustav", "hanna", "henrik",
			"johan", "karl", "lars", "linda", "magnus", "maria", "mikael",
			"niklas", "olof", "per", "peter", "sara", "sofia", "stefan",
			"thomas", "tobias", "ulf", "viktor", "åsa", "östen",
		},
		Last: []string{
			"andersson", "berg", "björk", "dahl", "eriksson", "forsberg",
			"gustafsson", "hansson", "johansson", "karlsson", "larsson",
			"lindberg", "lindqvist", "lindström", "nilsson", "olsson",
			"persson", "sandberg", "sjöberg", "svensson", "wallin",
			"wikström",
		},
	}
}

// LoadNames reads name lists from a YAML file. Missing lists fall back
// to the defaults so a partial file only overrides what it names.
func LoadNames(path string) (Names, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Names{}, fmt.Errorf("redact: read names %s: %w", path, err)
	}

	var loaded Names
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Names{}, fmt.Errorf("redact: parse names %s: %w", path, err)
	}

	names := DefaultNames()
	if len(loaded.First) > 0 {
		names.First = loaded.First
	}
	if len(loaded.Last) > 0 {
		names.Last = loaded.Last
	}
	return names, nil
}

// Redactor applies the two redaction passes with a fixed name list.
type Redactor struct {
	first map[string]struct{}
	last  map[string]struct{}
}

// New creates a Redactor from the given name lists.
func New(names Names) *Redactor {
	r := &Redactor{
		first: make(map[string]struct{}, len(names.First)),
		last:  make(map[string]struct{}, len(names.Last)),
	}
	for _, n := range names.First {
		r.first[strings.ToLower(n)] = struct{}{}
	}
	for _, n := range names.Last {
		r.last[strings.ToLower(n)] = struct{}{}
	}
	return r
}

// RedactPII replaces emails and name pairs with placeholder tokens and
// returns the redacted content plus the reverse map. Emails are
// replaced first, then names; each category numbers its placeholders
// from 1 across the whole document.
func (r *Redactor) RedactPII(content string, opts Options) (string, Map) {
	m := make(Map)
	out := content
	if !opts.SkipEmails {
		out = r.redactEmails(out, m)
	}
	if !opts.SkipNames {
		out = r.redactNames(out, m)
	}
	return out, m
}

func (r *Redactor) redactEmails(content string, m Map) string {
	counter := 0
	return emailRe.ReplaceAllStringFunc(content, func(email string) string {
		counter++
		placeholder := fmt.Sprintf("{{user_email_%d}}", counter)
		m[placeholder] = email
		return placeholder
	})
}

// redactNames scans adjacent word pairs. A pair whose first word (after
// lowering and stripping one trailing punctuation mark) is in the first
// name list and whose second word is in the last name list is replaced
// as a unit; scanning resumes after the pair. Inter-word whitespace
// outside replaced spans is preserved so redaction stays invertible.
func (r *Redactor) redactNames(content string, m Map) string {
	spans := wordRe.FindAllStringIndex(content, -1)

	var b strings.Builder
	counter := 0
	pos := 0
	for i := 0; i < len(spans); i++ {
		word := content[spans[i][0]:spans[i][1]]
		if i+1 < len(spans) && r.isFirstName(word) {
			next := content[spans[i+1][0]:spans[i+1][1]]
			if r.isLastName(next) {
				counter++
				placeholder := fmt.Sprintf("{{user_name_%d}}", counter)
				m[placeholder] = content[spans[i][0]:spans[i+1][1]]

				b.WriteString(content[pos:spans[i][0]])
				b.WriteString(placeholder)
				pos = spans[i+1][1]
				i++ // skip the last name
			}
		}
	}
	b.WriteString(content[pos:])
	return b.String()
}

func (r *Redactor) isFirstName(word string) bool {
	_, ok := r.first[normalize(word)]
	return ok
}

func (r *Redactor) isLastName(word string) bool {
	_, ok := r.last[normalize(word)]
	return ok
}

func normalize(word string) string {
	return trailingRe.ReplaceAllString(strings.ToLower(word), "")
}

// Deredact restores original values by replacing each placeholder
// literally. Exact inverse of RedactPII for content that does not
// itself contain placeholder-shaped substrings; unknown placeholders
// are left untouched.
func Deredact(content string, m Map) string {
	out := content
	for placeholder, original := range m {
		out = strings.ReplaceAll(out, placeholder, original)
	}
	return out
}

// ForModel reports whether content must be redacted before reaching
// the given model: claude always, local never, cursor only when the
// REDACTION_ENABLED env toggle is "true". Unknown models redact by
// default.
func ForModel(model string) bool {
	switch model {
	case "claude":
		return true
	case "local":
		return false
	case "cursor":
		return os.Getenv(EnvToggle) == "true"
	default:
		return true
	}
}
