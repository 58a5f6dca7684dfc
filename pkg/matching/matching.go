// Package matching evaluates single filter criteria against document
// snapshots: shell-style globs and content-pattern algorithms.
package matching

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/docflow/docflow/pkg/models"
)

var (
	// ErrUnknownAlgorithm is returned for a matching algorithm the engine
	// does not recognize. This is a configuration error, not a non-match.
	ErrUnknownAlgorithm = errors.New("unknown matching algorithm")

	// ErrEmptyPattern is returned when a content algorithm is configured
	// without a pattern.
	ErrEmptyPattern = errors.New("empty match pattern")
)

// Glob reports whether value matches pattern with fnmatch semantics:
// `*` crosses path separators, so `*/scratch/*` matches
// `/tmp/scratch/x/simple.pdf`. Matching is case-insensitive, the way
// filename filters are conventionally applied to scanned documents.
func Glob(pattern, value string) bool {
	if pattern == "" {
		return true
	}

	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return false
	}

	return g.Match(strings.ToLower(value))
}

// ContainsAll reports whether the document's tag set is a superset of the
// filter set.
func ContainsAll(documentTags, filterTags []string) bool {
	if len(filterTags) == 0 {
		return true
	}

	tagSet := make(map[string]struct{}, len(documentTags))
	for _, id := range documentTags {
		tagSet[id] = struct{}{}
	}

	for _, id := range filterTags {
		if _, ok := tagSet[id]; !ok {
			return false
		}
	}

	return true
}

// Content evaluates a content pattern against text. A failed compile of a
// user-supplied regex is returned as an error so the caller can log it;
// callers treat it as a non-match per the engine's error taxonomy.
func Content(algorithm models.MatchingAlgorithm, pattern string, insensitive bool, text string) (bool, error) {
	if algorithm == models.MatchNone || algorithm == "" {
		return true, nil
	}

	if strings.TrimSpace(pattern) == "" {
		return false, ErrEmptyPattern
	}

	switch algorithm {
	case models.MatchAny:
		for _, word := range strings.Fields(pattern) {
			if wordMatch(word, text, insensitive) {
				return true, nil
			}
		}

		return false, nil
	case models.MatchAll:
		for _, word := range strings.Fields(pattern) {
			if !wordMatch(word, text, insensitive) {
				return false, nil
			}
		}

		return true, nil
	case models.MatchLiteral:
		// Whole-phrase containment with word boundaries; the log line for
		// a hit reads "contains this string".
		return wordMatch(pattern, text, insensitive), nil
	case models.MatchRegex:
		expr := pattern
		if insensitive {
			expr = "(?i)" + expr
		}

		re, err := regexp.Compile(expr)
		if err != nil {
			return false, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}

		return re.MatchString(text), nil
	case models.MatchFuzzy:
		if insensitive {
			return fuzzy.MatchNormalizedFold(pattern, text), nil
		}

		return fuzzy.MatchNormalized(pattern, text), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// wordMatch reports whether phrase occurs in text on word boundaries.
func wordMatch(phrase, text string, insensitive bool) bool {
	expr := `\b` + regexp.QuoteMeta(strings.TrimSpace(phrase)) + `\b`
	if insensitive {
		expr = "(?i)" + expr
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}

	return re.MatchString(text)
}
