// Package filter decides which messages enter extraction, using regex
// allow-lists or block-lists on the raw header and body.
package filter

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var ErrFilterModeConflict = errors.New("include and exclude filters are mutually exclusive")

// Options captures the filtering configuration.
type Options struct {
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// Active reports whether any pattern is configured.
func (o Options) Active() bool {
	return len(o.IncludeHeader)+len(o.IncludeBody)+len(o.ExcludeHeader)+len(o.ExcludeBody) > 0
}

// Stats reports how often each pattern matched.
type Stats struct {
	IncludeHeaderPatterns []string
	IncludeHeaderHits     map[string]int
	IncludeBodyPatterns   []string
	IncludeBodyHits       map[string]int
	ExcludeHeaderPatterns []string
	ExcludeHeaderHits     map[string]int
	ExcludeBodyPatterns   []string
	ExcludeBodyHits       map[string]int
}

// Filter holds compiled regex patterns and their hit counters. It is safe
// for concurrent use.
type Filter struct {
	includeHeader *patternSet
	includeBody   *patternSet
	excludeHeader *patternSet
	excludeBody   *patternSet

	mu sync.Mutex
}

type patternSet struct {
	sources []string
	res     []*regexp.Regexp
	hits    []int
}

// New creates a new Filter from the provided options.
func New(opts Options) (*Filter, error) {
	includeHeader, err := compilePatterns(opts.IncludeHeader)
	if err != nil {
		return nil, fmt.Errorf("compile include-header pattern: %w", err)
	}
	includeBody, err := compilePatterns(opts.IncludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile include-body pattern: %w", err)
	}
	excludeHeader, err := compilePatterns(opts.ExcludeHeader)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-header pattern: %w", err)
	}
	excludeBody, err := compilePatterns(opts.ExcludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile exclude-body pattern: %w", err)
	}

	if (includeHeader.size()+includeBody.size() > 0) && (excludeHeader.size()+excludeBody.size() > 0) {
		return nil, ErrFilterModeConflict
	}

	return &Filter{
		includeHeader: includeHeader,
		includeBody:   includeBody,
		excludeHeader: excludeHeader,
		excludeBody:   excludeBody,
	}, nil
}

// Allows returns true if the message passes the filter criteria. Every
// matching pattern is counted, not only the first.
func (f *Filter) Allows(header, body []byte) bool {
	includeMode := f.includeHeader.size()+f.includeBody.size() > 0
	excludeMode := f.excludeHeader.size()+f.excludeBody.size() > 0
	if !includeMode && !excludeMode {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if includeMode {
		h := f.includeHeader.count(header)
		b := f.includeBody.count(body)
		return h || b
	}

	h := f.excludeHeader.count(header)
	b := f.excludeBody.count(body)
	return !h && !b
}

// AllowsRaw splits raw into header and body and applies Allows.
func (f *Filter) AllowsRaw(raw []byte) bool {
	header, body := SplitRawMessage(raw)
	return f.Allows(header, body)
}

// GetStats returns a copy of the per-pattern hit counters.
func (f *Filter) GetStats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		IncludeHeaderPatterns: f.includeHeader.patterns(),
		IncludeHeaderHits:     f.includeHeader.snapshot(),
		IncludeBodyPatterns:   f.includeBody.patterns(),
		IncludeBodyHits:       f.includeBody.snapshot(),
		ExcludeHeaderPatterns: f.excludeHeader.patterns(),
		ExcludeHeaderHits:     f.excludeHeader.snapshot(),
		ExcludeBodyPatterns:   f.excludeBody.patterns(),
		ExcludeBodyHits:       f.excludeBody.snapshot(),
	}
}

// SplitRawMessage splits a raw email message into header and body parts.
func SplitRawMessage(raw []byte) (header, body []byte) {
	if len(raw) == 0 {
		return nil, nil
	}

	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}

	return raw, nil
}

func compilePatterns(sources []string) (*patternSet, error) {
	set := &patternSet{}
	for _, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", src, err)
		}
		set.sources = append(set.sources, src)
		set.res = append(set.res, re)
	}
	set.hits = make([]int, len(set.res))
	return set, nil
}

func (s *patternSet) size() int {
	return len(s.res)
}

func (s *patternSet) count(text []byte) bool {
	matched := false
	for i, re := range s.res {
		if re.Match(text) {
			s.hits[i]++
			matched = true
		}
	}
	return matched
}

func (s *patternSet) patterns() []string {
	return append([]string(nil), s.sources...)
}

func (s *patternSet) snapshot() map[string]int {
	hits := make(map[string]int, len(s.sources))
	for i, src := range s.sources {
		hits[src] = s.hits[i]
	}
	return hits
}
