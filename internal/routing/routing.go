// Package routing picks which AI model should handle a piece of text:
// code context goes to Cursor, business/strategy to Claude, and
// privacy-sensitive content is forced to the local model. The choice
// is a keyword-density heuristic over a configurable lexicon, not a
// classifier.
package routing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/clyqra/anthra/internal/models"
)

// Known model names.
const (
	ModelCursor = "cursor"
	ModelClaude = "claude"
	ModelLocal  = "local"
)

// Decision is the outcome of routing one query. Identical inputs
// always produce identical decisions.
type Decision struct {
	Model         string   `json:"model"`
	Confidence    float64  `json:"confidence"`
	Reason        string   `json:"reason"`
	ShouldAskUser bool     `json:"should_ask_user"`
	Alternatives  []string `json:"alternatives,omitempty"`
}

// PatternStore persists routing patterns for offline learning. Routing
// itself never reads from it.
type PatternStore interface {
	CreateRoutingPattern(p models.RoutingPattern) error
	RecentRoutingPatterns(limit int) ([]models.RoutingPattern, error)
}

// Engine scores queries against the lexicon. The lexicon may be
// swapped at runtime (hot reload), so reads go through a lock.
type Engine struct {
	mu       sync.RWMutex
	lex      Lexicon
	patterns PatternStore // optional
}

// NewEngine creates an engine with the given lexicon. patterns may be
// nil, in which case LogPattern and LearnFromHistory are unavailable.
func NewEngine(lex Lexicon, patterns PatternStore) *Engine {
	return &Engine{lex: lex, patterns: patterns}
}

// Reload replaces the lexicon.
func (e *Engine) Reload(lex Lexicon) {
	e.mu.Lock()
	e.lex = lex
	e.mu.Unlock()
}

// Route analyzes content (plus optional inherited context) and returns
// a model decision. Privacy keywords short-circuit all other scoring:
// content that trips the privacy threshold always stays local.
func (e *Engine) Route(content, inheritedContext string) Decision {
	e.mu.RLock()
	lex := e.lex
	e.mu.RUnlock()

	fullText := strings.ToLower(content + "\n" + inheritedContext)

	codeMatches := countMatches(fullText, lex.Code)
	businessMatches := countMatches(fullText, lex.Business)
	privacyMatches := countMatches(fullText, lex.Privacy)

	codeScore := float64(codeMatches) / float64(len(lex.Code))
	businessScore := float64(businessMatches) / float64(len(lex.Business))
	privacyScore := float64(privacyMatches) / float64(len(lex.Privacy))

	if privacyScore > 0.1 {
		return Decision{
			Model:         ModelLocal,
			Confidence:    0.9,
			Reason:        "Content contains privacy-sensitive keywords. Using local model to ensure data stays on your machine.",
			ShouldAskUser: false,
		}
	}

	maxScore := codeScore
	if businessScore > maxScore {
		maxScore = businessScore
	}
	confidence := maxScore * 2
	if confidence > 0.95 {
		confidence = 0.95
	}

	// Strict > on both comparisons: an exact tie falls through to the
	// ambiguous default, never to the code or business branch.
	if codeScore > businessScore && codeScore > 0.1 {
		return Decision{
			Model:         ModelCursor,
			Confidence:    confidence,
			Reason:        fmt.Sprintf("Detected %d code-related keywords. Cursor has direct repository integration and is best for technical debugging.", codeMatches),
			ShouldAskUser: confidence < 0.6,
			Alternatives:  alternativesBelow(confidence, ModelClaude, ModelLocal),
		}
	}

	if businessScore > codeScore && businessScore > 0.1 {
		return Decision{
			Model:         ModelClaude,
			Confidence:    confidence,
			Reason:        fmt.Sprintf("Detected %d business-related keywords. Claude has longer context window and better reasoning for strategic questions.", businessMatches),
			ShouldAskUser: confidence < 0.6,
			Alternatives:  alternativesBelow(confidence, ModelCursor, ModelLocal),
		}
	}

	return Decision{
		Model:         ModelClaude,
		Confidence:    0.5,
		Reason:        "Context is ambiguous. Claude is a good default for general queries.",
		ShouldAskUser: true,
		Alternatives:  []string{ModelCursor, ModelLocal},
	}
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

func alternativesBelow(confidence float64, alts ...string) []string {
	if confidence < 0.85 {
		return alts
	}
	return nil
}

// LogPattern records a routing decision (and the user's correction, if
// any) for offline analysis. The content is truncated to its first 10
// words longer than 4 characters. Write-only: Route never consults the
// log.
func (e *Engine) LogPattern(content, suggestedModel, correctedModel string, confidence float64) error {
	if e.patterns == nil {
		return fmt.Errorf("routing: no pattern store configured")
	}
	return e.patterns.CreateRoutingPattern(models.RoutingPattern{
		ContentPattern:  PatternKey(content),
		SuggestedModel:  suggestedModel,
		CorrectedModel:  correctedModel,
		ConfidenceScore: confidence,
	})
}

// PatternKey reduces content to the truncated keyword form used to
// group logged patterns.
func PatternKey(content string) string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(content)) {
		if len(w) > 4 {
			words = append(words, w)
			if len(words) == 10 {
				break
			}
		}
	}
	return strings.Join(words, " ")
}
