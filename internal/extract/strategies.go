// internal/extract/strategies.go
package extract

import (
	"encoding/json"
	"fmt"
	"os"
)

// SelectorStrategy is one externally configurable way to locate listing
// cards on a rendered search page. Strategies are tried in order and the
// first that yields any match wins.
//
// The target site's class names churn frequently, so these live as data
// rather than code: callers can replace the whole list from configuration
// without touching the pipeline.
type SelectorStrategy struct {
	// Name identifies the strategy in logs.
	Name string `json:"name"`
	// Container is the CSS selector for a whole listing card.
	Container string `json:"container"`
}

// DefaultStrategies is the fallback chain used when the structural
// heuristic finds nothing. The first entries track the markup observed at
// the time of writing; the later ones are progressively looser.
func DefaultStrategies() []SelectorStrategy {
	return []SelectorStrategy{
		{
			Name:      "collection-item",
			Container: `div[data-testid="marketplace_feed_item"]`,
		},
		{
			Name:      "search-result-anchor",
			Container: `div[role="main"] a[href*="/marketplace/item/"]`,
		},
		{
			Name:      "any-item-anchor",
			Container: `a[href*="/marketplace/item/"]`,
		},
	}
}

// StrategyConfig is the on-disk override for the selector chain, so the
// selectors can track site markup churn without a rebuild. Empty fields
// fall back to the defaults.
type StrategyConfig struct {
	Strategies        []SelectorStrategy `json:"strategies"`
	JustListedPhrases []string           `json:"just_listed_phrases"`
}

// NewFromConfigFile builds a Pipeline from a JSON strategy file.
func NewFromConfigFile(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy config: %w", err)
	}
	var cfg StrategyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse strategy config: %w", err)
	}
	strategies := cfg.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	phrases := cfg.JustListedPhrases
	if len(phrases) == 0 {
		phrases = DefaultJustListedPhrases()
	}
	return NewWithStrategies(strategies, phrases), nil
}

// DefaultJustListedPhrases are the exact (lowercased) pill texts that mark
// a listing as freshly posted.
func DefaultJustListedPhrases() []string {
	return []string{
		"just listed",
		"listed just now",
	}
}

// uiBoilerplate holds short texts that look like titles but never are.
var uiBoilerplate = map[string]bool{
	"just listed":     true,
	"listed just now": true,
	"see more":        true,
	"sponsored":       true,
	"free":            true,
	"pending":         true,
	"sold":            true,
}
