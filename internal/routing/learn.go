package routing

import (
	"fmt"
	"strings"
)

// LearnFromHistory aggregates logged routing patterns and returns a
// learned pattern-key → model mapping. A mapping is emitted for a key
// when users overrode the suggestion more than 3 times and one
// corrected model accounts for over 60% of those overrides.
//
// The result is analysis output only: Route never consults it. Feeding
// it back into routing is a deliberate caller decision.
func (e *Engine) LearnFromHistory() (map[string]string, error) {
	if e.patterns == nil {
		return nil, fmt.Errorf("routing: no pattern store configured")
	}

	patterns, err := e.patterns.RecentRoutingPatterns(1000)
	if err != nil {
		return nil, err
	}

	// Group overrides by the (already truncated) content pattern.
	overrides := make(map[string][]string)
	for _, p := range patterns {
		if p.CorrectedModel == "" {
			continue
		}
		key := strings.ToLower(p.ContentPattern)
		overrides[key] = append(overrides[key], p.CorrectedModel)
	}

	learned := make(map[string]string)
	for key, corrected := range overrides {
		if len(corrected) <= 3 {
			continue
		}

		counts := make(map[string]int)
		for _, model := range corrected {
			counts[model]++
		}
		for model, count := range counts {
			if float64(count)/float64(len(corrected)) > 0.6 {
				learned[key] = model
				break
			}
		}
	}

	return learned, nil
}
