// Package classification provides rule-based merchant category hints used
// to group subscriptions for duplicate-service detection.
package classification

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Pattern maps merchant text to a coarse service category.
type Pattern struct {
	Category   string
	Regex      string
	Priority   int     // Higher priority patterns are checked first
	Confidence float64 // Base confidence when pattern matches (0.0-1.0)
}

// CompiledPattern holds a compiled regex pattern with metadata.
type CompiledPattern struct {
	compiledRegex *regexp.Regexp
	Pattern
}

// CategoryDetector assigns rule-based category hints to merchant keys.
type CategoryDetector struct {
	patterns []CompiledPattern
	mu       sync.RWMutex
}

// NewCategoryDetector creates a detector with the given patterns.
func NewCategoryDetector(patterns []Pattern) (*CategoryDetector, error) {
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return nil, err
	}
	return &CategoryDetector{patterns: compiled}, nil
}

// Match represents a category hint for a merchant.
type Match struct {
	Category   string
	Confidence float64
}

// Categorize returns the best category hint for a merchant key, or nil
// when no pattern matches.
func (cd *CategoryDetector) Categorize(merchantKey string) *Match {
	cd.mu.RLock()
	defer cd.mu.RUnlock()

	searchText := strings.ToUpper(merchantKey)

	for _, pattern := range cd.patterns {
		if pattern.compiledRegex.MatchString(searchText) {
			return &Match{
				Category:   pattern.Category,
				Confidence: pattern.Confidence,
			}
		}
	}

	return nil
}

// UpdatePatterns replaces the detector's pattern set.
func (cd *CategoryDetector) UpdatePatterns(patterns []Pattern) error {
	compiled, err := compilePatterns(patterns)
	if err != nil {
		return err
	}

	cd.mu.Lock()
	cd.patterns = compiled
	cd.mu.Unlock()

	return nil
}

// PatternCount returns the number of loaded patterns.
func (cd *CategoryDetector) PatternCount() int {
	cd.mu.RLock()
	defer cd.mu.RUnlock()
	return len(cd.patterns)
}

func compilePatterns(patterns []Pattern) ([]CompiledPattern, error) {
	compiled := make([]CompiledPattern, 0, len(patterns))

	for _, p := range patterns {
		regexStr := p.Regex
		if !strings.HasPrefix(regexStr, "(?i)") {
			regexStr = "(?i)" + regexStr // Case-insensitive by default
		}

		regex, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p.Category, err)
		}

		compiled = append(compiled, CompiledPattern{
			Pattern:       p,
			compiledRegex: regex,
		})
	}

	// Sort by priority (highest first)
	for i := 0; i < len(compiled)-1; i++ {
		for j := i + 1; j < len(compiled); j++ {
			if compiled[j].Priority > compiled[i].Priority {
				compiled[i], compiled[j] = compiled[j], compiled[i]
			}
		}
	}

	return compiled, nil
}
