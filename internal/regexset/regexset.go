// Package regexset wraps dlclark/regexp2 into the compiled-alternative
// sets a condition matches a resolved macro value against, plus a
// process-wide registry of named expression sets referenced by conditions
// whose pattern begins with "@".
package regexset

import (
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds a single match call against catastrophic
// backtracking in user-supplied patterns.
const matchTimeout = 2 * time.Second

// CompiledSet is one-or-more compiled regular expression alternatives. A
// condition matches if any alternative matches.
type CompiledSet struct {
	alternatives []*regexp2.Regexp
}

// Compile builds a single-element CompiledSet from a literal pattern
// source, already macro-interpolated by the caller.
func Compile(pattern string) (*CompiledSet, error) {
	re, err := regexp2.Compile(pattern, regexp2.RE2)
	if err != nil {
		re, err = regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("regexset: compiling pattern %q: %w", pattern, err)
		}
	}
	re.MatchTimeout = matchTimeout
	return &CompiledSet{alternatives: []*regexp2.Regexp{re}}, nil
}

// MatchResult is the three-way outcome of matching a value against a
// CompiledSet.
type MatchResult int

const (
	NotMatched MatchResult = iota
	Matched
	MatchError
)

// Match reports whether value matches any alternative in the set.
func (s *CompiledSet) Match(value string) MatchResult {
	for _, re := range s.alternatives {
		m, err := re.FindStringMatch(value)
		if err != nil {
			return MatchError
		}
		if m != nil {
			return Matched
		}
	}
	return NotMatched
}

// Registry holds named expression sets, keyed by name without the
// leading "@" sigil, looked up by the filter loader when a condition's
// pattern references one.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]*CompiledSet
}

// NewRegistry creates an empty named-expression registry.
func NewRegistry() *Registry {
	return &Registry{sets: make(map[string]*CompiledSet)}
}

// Put registers (or replaces) a named expression set from its raw pattern
// alternatives.
func (r *Registry) Put(name string, patterns []string) error {
	if len(patterns) == 0 {
		return fmt.Errorf("regexset: named expression %q has no patterns", name)
	}
	alts := make([]*regexp2.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp2.Compile(p, regexp2.RE2)
		if err != nil {
			re, err = regexp2.Compile(p, regexp2.None)
			if err != nil {
				return fmt.Errorf("regexset: compiling named expression %q alternative %q: %w", name, p, err)
			}
		}
		re.MatchTimeout = matchTimeout
		alts = append(alts, re)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sets[name] = &CompiledSet{alternatives: alts}
	return nil
}

// Get returns the named expression set, or nil if the registry has no
// entry for name.
func (r *Registry) Get(name string) *CompiledSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sets[name]
}

// Remove drops a named expression set from the registry.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets, name)
}
