package engine

import (
	"path"
	"strings"

	"fetchall/internal/config"
	"fetchall/internal/fetch"
)

func FilterItems(items []fetch.WorkItem, cfg *config.Config) []fetch.WorkItem {
	if cfg == nil {
		panic("engine.FilterItems: cfg must not be nil")
	}

	includePatterns := cfg.Targeting.Include
	excludePatterns := cfg.Targeting.Exclude

	var filtered []fetch.WorkItem
	for _, it := range items {
		// If Include is set, must match at least one
		if len(includePatterns) > 0 && !matchesAnyPattern(includePatterns, it.Name) {
			continue
		}

		// If Exclude is set, must not match any
		if len(excludePatterns) > 0 && matchesAnyPattern(excludePatterns, it.Name) {
			continue
		}

		filtered = append(filtered, it)
	}

	if cfg.Targeting.MaxRepos > 0 && len(filtered) > cfg.Targeting.MaxRepos {
		filtered = filtered[:cfg.Targeting.MaxRepos]
	}

	return filtered
}

func matchesAnyPattern(patterns []string, name string) bool {
	for _, p := range patterns {
		if matchPattern(p, name) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, name string) bool {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return false
	}
	// Patterns with a '/' match the whole relative name; otherwise only the
	// directory name, so "*-service" also matches "team/api-service".
	if strings.Contains(pattern, "/") {
		matched, _ := path.Match(pattern, name)
		return matched
	}
	matched, _ := path.Match(pattern, path.Base(name))
	return matched
}
