/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cache.go
Description: Shared regular expression cache for the Akaylee Profiler. Compiled expressions
(matcher patterns, header hints and generated enumeration alternations) are computed at most
once per key and then shared read-only by every analysis in the process. Concurrent misses
on the same key are collapsed with singleflight.
*/

package semantic

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// RegexCache is a compute-if-absent cache of compiled expressions
// Safe for concurrent use
type RegexCache struct {
	mu      sync.RWMutex
	entries map[string]*regexp.Regexp
	flight  singleflight.Group
}

// NewRegexCache creates an empty cache
func NewRegexCache() *RegexCache {
	return &RegexCache{entries: make(map[string]*regexp.Regexp)}
}

// Compile returns the compiled form of pattern, compiling it on first use
func (c *RegexCache) Compile(pattern string) (*regexp.Regexp, error) {
	c.mu.RLock()
	re, ok := c.entries[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	v, err, _ := c.flight.Do(pattern, func() (interface{}, error) {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %q: %w", pattern, err)
		}
		c.mu.Lock()
		c.entries[pattern] = compiled
		c.mu.Unlock()
		return compiled, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*regexp.Regexp), nil
}

// CompileAnchored compiles pattern so it must match the whole value
func (c *RegexCache) CompileAnchored(pattern string) (*regexp.Regexp, error) {
	return c.Compile(Anchor(pattern))
}

// Enum returns the alternation pattern for a set of values and its anchored compiled form
// Values are sorted so the same set always produces the same pattern
func (c *RegexCache) Enum(values []string) (string, *regexp.Regexp, error) {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, v := range sorted {
		quoted[i] = regexp.QuoteMeta(v)
	}
	pattern := "(?:" + strings.Join(quoted, "|") + ")"
	re, err := c.CompileAnchored(pattern)
	if err != nil {
		return "", nil, err
	}
	return pattern, re, nil
}

// Len returns the number of cached expressions
func (c *RegexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Anchor wraps a pattern so it must match an entire value
func Anchor(pattern string) string {
	return "^(?:" + pattern + ")$"
}
