package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the three keyword lists the scoring formula runs over.
// The lists are data, not logic: they can be replaced from a YAML file
// without touching the scoring algorithm.
type Lexicon struct {
	Code     []string `yaml:"code"`
	Business []string `yaml:"business"`
	Privacy  []string `yaml:"privacy"`
}

// DefaultLexicon returns the built-in keyword lists.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Code: []string{
			"bug", "error", "fails", "webpack", "typescript", "javascript",
			"python", "function", "class", "import", "export", "api",
			"endpoint", "database", "sql", "migration", "deploy", "docker",
			"npm", "package.json", "tsconfig", "prisma", "schema",
			"component", "hook", "route", "middleware", "stack trace",
			"exception", "debug", "test", "spec", "implementation",
			"refactor", "optimize", "performance",
		},
		Business: []string{
			"pricing", "market", "strategy", "vat", "swedish", "customer",
			"positioning", "competitor", "revenue", "profit", "cost",
			"budget", "sales", "marketing", "brand", "value proposition",
			"target audience", "go-to-market", "business model",
			"partnership", "investment", "funding", "roi", "metrics", "kpi",
		},
		Privacy: []string{
			"authentication", "password", "user data", "personal", "gdpr",
			"sensitive", "privacy", "consent", "data protection", "pii",
			"encryption", "security", "access control", "permissions",
			"authorization",
		},
	}
}

// LoadLexicon reads keyword lists from a YAML file. Missing lists fall
// back to the defaults so a partial file only overrides what it names.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("routing: read lexicon %s: %w", path, err)
	}

	var loaded Lexicon
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Lexicon{}, fmt.Errorf("routing: parse lexicon %s: %w", path, err)
	}

	lex := DefaultLexicon()
	if len(loaded.Code) > 0 {
		lex.Code = loaded.Code
	}
	if len(loaded.Business) > 0 {
		lex.Business = loaded.Business
	}
	if len(loaded.Privacy) > 0 {
		lex.Privacy = loaded.Privacy
	}
	return lex, nil
}
