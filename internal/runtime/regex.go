// Package runtime provides the regular expression support behind the
// match operators.
package runtime

import (
	"fmt"
	"sync"

	"github.com/coregx/coregex"
)

// dotallPrefix makes dot match newlines, so a subject is matched as one text.
const dotallPrefix = "(?s)"

// RegexConfig controls regex behavior.
type RegexConfig struct {
	// POSIX enables leftmost-longest matching (POSIX ERE semantics).
	// When false, uses leftmost-first matching (faster, Perl-like).
	POSIX bool
}

// DefaultConfig returns the default configuration: leftmost-first matching.
func DefaultConfig() RegexConfig {
	return RegexConfig{}
}

// PatternError reports a pattern that does not compile.
type PatternError struct {
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying compile error.
func (e *PatternError) Unwrap() error {
	return e.Err
}

// Regex wraps a compiled coregex pattern.
type Regex struct {
	pattern string
	re      *coregex.Regexp
	posix   bool
}

// Compile creates a new Regex with the given configuration.
func Compile(pattern string, config RegexConfig) (*Regex, error) {
	re, err := coregex.Compile(dotallPrefix + pattern)
	if err != nil {
		return nil, &PatternError{Pattern: pattern, Err: err}
	}
	if config.POSIX {
		re.Longest()
	}
	return &Regex{pattern: pattern, re: re, posix: config.POSIX}, nil
}

// Pattern returns the original pattern string.
func (r *Regex) Pattern() string {
	return r.pattern
}

// IsPOSIX returns true if this regex uses leftmost-longest matching.
func (r *Regex) IsPOSIX() bool {
	return r.posix
}

// MatchString reports whether s contains any match.
func (r *Regex) MatchString(s string) bool {
	return r.re.MatchString(s)
}

// FindStringIndex returns the start and end of the first match, or nil.
func (r *Regex) FindStringIndex(s string) []int {
	return r.re.FindStringIndex(s)
}

// RegexCache is a concurrency-safe cache of compiled patterns with FIFO
// eviction. Scripts tend to match against a handful of literal patterns
// inside loops, so hits dominate.
type RegexCache struct {
	mu      sync.RWMutex
	entries map[string]*Regex
	order   []string // insertion order, oldest first
	maxSize int
	config  RegexConfig
}

// NewRegexCache creates a cache holding at most maxSize patterns
// (100 when maxSize <= 0).
func NewRegexCache(maxSize int, config RegexConfig) *RegexCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &RegexCache{
		entries: make(map[string]*Regex, maxSize),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		config:  config,
	}
}

// Get returns the compiled pattern, compiling and caching it on a miss.
// Patterns that fail to compile are not cached.
func (c *RegexCache) Get(pattern string) (*Regex, error) {
	c.mu.RLock()
	re, ok := c.entries[pattern]
	c.mu.RUnlock()
	if ok {
		return re, nil
	}

	re, err := Compile(pattern, c.config)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[pattern]; ok {
		return existing, nil
	}
	c.entries[pattern] = re
	c.order = append(c.order, pattern)
	for len(c.order) > c.maxSize {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	return re, nil
}

// Match reports whether subject contains a match of pattern.
func (c *RegexCache) Match(pattern, subject string) (bool, error) {
	re, err := c.Get(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(subject), nil
}

// Len returns the number of cached patterns.
func (c *RegexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Config returns the cache's regex configuration.
func (c *RegexCache) Config() RegexConfig {
	return c.config
}
