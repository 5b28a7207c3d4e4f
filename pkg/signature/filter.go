package signature

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/praetorian-inc/aobscan/pkg/types"
)

// FilterConfig selects signatures by ID.
type FilterConfig struct {
	Include []string // regexes; when set, only matching IDs are kept
	Exclude []string // regexes; matching IDs are dropped
}

// ParsePatterns splits a comma-separated flag value.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include then exclude patterns to sigs.
func Filter(sigs []*types.Signature, config FilterConfig) ([]*types.Signature, error) {
	if len(sigs) == 0 {
		return sigs, nil
	}

	include, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	result := make([]*types.Signature, 0, len(sigs))
	for _, sig := range sigs {
		if len(include) > 0 && !matchesAny(sig.ID, include) {
			continue
		}
		if matchesAny(sig.ID, exclude) {
			continue
		}
		result = append(result, sig)
	}
	return result, nil
}

// ByCategory keeps signatures tagged with any of the given categories.
func ByCategory(sigs []*types.Signature, categories ...string) []*types.Signature {
	if len(categories) == 0 {
		return sigs
	}
	want := make(map[string]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	var result []*types.Signature
	for _, sig := range sigs {
		for _, c := range sig.Categories {
			if want[c] {
				result = append(result, sig)
				break
			}
		}
	}
	return result
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	regexes := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", p, err)
		}
		regexes = append(regexes, re)
	}
	return regexes, nil
}

func matchesAny(id string, regexes []*regexp.Regexp) bool {
	for _, re := range regexes {
		if re.MatchString(id) {
			return true
		}
	}
	return false
}
