/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: registry.go
Description: Matcher registry for the Akaylee Profiler. Maps definition kinds and validator
keys to constructor functions and turns a list of definitions into a ready set of matchers,
ordered by priority. The registry itself is safe for concurrent use; the matcher sets it
builds belong to a single analysis.
*/

package semantic

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a matcher from its definition
type Constructor func(def Definition, cache *RegexCache) (Matcher, error)

// Registry maps keys to matcher constructors
type Registry struct {
	mu          sync.RWMutex
	validators  map[string]Constructor
	definitions []Definition
	cache       *RegexCache
}

// NewRegistry creates a registry with the built-in validators and definitions
func NewRegistry(cache *RegexCache) *Registry {
	if cache == nil {
		cache = NewRegexCache()
	}
	r := &Registry{
		validators: make(map[string]Constructor),
		cache:      cache,
	}
	r.Register("EMAIL", NewInfinite(EmailValidator))
	r.Register("IPV4", NewInfinite(IPv4Validator))
	r.Register("GUID", NewInfinite(GUIDValidator))
	r.Register("URL", NewInfinite(URLValidator))
	r.definitions = BuiltinDefinitions()
	return r
}

// Register adds or replaces the constructor for an infinite matcher key
func (r *Registry) Register(key string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[key] = ctor
}

// Keys returns the registered validator keys
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.validators))
	for k := range r.validators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cache returns the shared regex cache
func (r *Registry) Cache() *RegexCache {
	return r.cache
}

// AddDefinitions appends plugin definitions, replacing built-ins with the same semantic type
func (r *Registry) AddDefinitions(defs []Definition) error {
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		replaced := false
		for i := range r.definitions {
			if r.definitions[i].SemanticType == d.SemanticType {
				r.definitions[i] = d
				replaced = true
				break
			}
		}
		if !replaced {
			r.definitions = append(r.definitions, d)
		}
	}
	return nil
}

// Definitions returns a copy of the known definitions
func (r *Registry) Definitions() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Definition(nil), r.definitions...)
}

// Build constructs one matcher per definition
func (r *Registry) Build(defs []Definition) ([]Matcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matchers := make([]Matcher, 0, len(defs))
	for _, d := range defs {
		kind, err := ParseKind(d.Kind)
		if err != nil {
			return nil, fmt.Errorf("definition %s: %w", d.SemanticType, err)
		}
		var ctor Constructor
		switch kind {
		case Finite:
			ctor = NewFinite
		case RegexMatch:
			ctor = NewRegex
		case Infinite:
			key := d.Validator
			if key == "" {
				key = d.SemanticType
			}
			var ok bool
			if ctor, ok = r.validators[key]; !ok {
				return nil, fmt.Errorf("definition %s: no validator registered for %q", d.SemanticType, key)
			}
		}
		m, err := ctor(d, r.cache)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}
	sort.SliceStable(matchers, func(i, j int) bool {
		return matchers[i].Priority() < matchers[j].Priority()
	})
	return matchers, nil
}

// BuildAll constructs matchers for every known definition
func (r *Registry) BuildAll() ([]Matcher, error) {
	return r.Build(r.Definitions())
}
