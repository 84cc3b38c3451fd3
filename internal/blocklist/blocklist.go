// Package blocklist decides whether time on a URL may be attributed.
package blocklist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/runnerr0/dwell/internal/urlnorm"
)

const wildcardPrefix = "*."

// ErrInvalidEntry is returned for input that cannot be normalized.
var ErrInvalidEntry = errors.New("invalid blocklist entry")

// Store persists the blocklist patterns.
type Store interface {
	Blocklist(ctx context.Context) ([]string, error)
	SetBlocklist(ctx context.Context, patterns []string) error
}

// Filter is a cached view of the stored blocklist. Exact hostnames are kept
// in a set; "*.example.com" entries are compiled to globs and also match the
// apex "example.com".
type Filter struct {
	store Store

	mu       sync.RWMutex
	patterns []string
	exact    map[string]struct{}
	globs    []glob.Glob
}

// New creates a Filter. Call Reload before the first lookup.
func New(store Store) *Filter {
	return &Filter{store: store, exact: map[string]struct{}{}}
}

// Reload refreshes the cache from the store.
func (f *Filter) Reload(ctx context.Context) error {
	patterns, err := f.stored(ctx)
	if err != nil {
		return err
	}
	return f.setCache(patterns)
}

// Watch reloads the cache every interval until ctx is cancelled, so edits
// written by another process sharing the database are picked up. Reload
// failures are passed to onErr and the previous cache is kept. A
// non-positive interval disables watching.
func (f *Filter) Watch(ctx context.Context, interval time.Duration, onErr func(error)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Reload(ctx); err != nil && ctx.Err() == nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

func (f *Filter) stored(ctx context.Context) ([]string, error) {
	patterns, err := f.store.Blocklist(ctx)
	if err != nil {
		return nil, fmt.Errorf("load blocklist: %w", err)
	}
	return patterns, nil
}

func (f *Filter) setCache(patterns []string) error {
	exact := make(map[string]struct{}, len(patterns))
	var globs []glob.Glob
	for _, p := range patterns {
		if strings.HasPrefix(p, wildcardPrefix) {
			g, err := glob.Compile(p)
			if err != nil {
				return fmt.Errorf("compile pattern %q: %w", p, err)
			}
			globs = append(globs, g)
			exact[strings.TrimPrefix(p, wildcardPrefix)] = struct{}{}
			continue
		}
		exact[p] = struct{}{}
	}

	f.mu.Lock()
	f.patterns = append([]string(nil), patterns...)
	f.exact = exact
	f.globs = globs
	f.mu.Unlock()
	return nil
}

// List returns the cached patterns in stored order.
func (f *Filter) List() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string{}, f.patterns...)
}

// IsHostnameBlocked reports whether a normalized hostname is blocked.
func (f *Filter) IsHostnameBlocked(hostname string) bool {
	if hostname == "" {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.exact[hostname]; ok {
		return true
	}
	for _, g := range f.globs {
		if g.Match(hostname) {
			return true
		}
	}
	return false
}

// IsURLBlocked reports whether raw's hostname is blocked.
func (f *Filter) IsURLBlocked(raw string) bool {
	return f.IsHostnameBlocked(urlnorm.Hostname(raw))
}

// Add normalizes input and appends it unless already present. The stored
// list is read afresh so edits from other processes are not overwritten.
func (f *Filter) Add(ctx context.Context, input string) (string, error) {
	entry, err := NormalizeInput(input)
	if err != nil {
		return "", err
	}
	list, err := f.stored(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range list {
		if p == entry {
			return entry, f.setCache(list)
		}
	}
	return entry, f.Set(ctx, append(list, entry))
}

// Remove deletes input from the list. It reports whether anything changed.
func (f *Filter) Remove(ctx context.Context, input string) (bool, error) {
	entry, err := NormalizeInput(input)
	if err != nil {
		return false, err
	}
	list, err := f.stored(ctx)
	if err != nil {
		return false, err
	}
	kept := make([]string, 0, len(list))
	for _, p := range list {
		if p != entry {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(list) {
		return false, f.setCache(list)
	}
	return true, f.Set(ctx, kept)
}

// Set replaces the whole list. Entries are normalized and deduplicated;
// invalid entries are dropped.
func (f *Filter) Set(ctx context.Context, inputs []string) error {
	seen := make(map[string]struct{}, len(inputs))
	patterns := make([]string, 0, len(inputs))
	for _, in := range inputs {
		entry, err := NormalizeInput(in)
		if err != nil {
			continue
		}
		if _, dup := seen[entry]; dup {
			continue
		}
		seen[entry] = struct{}{}
		patterns = append(patterns, entry)
	}

	if err := f.store.SetBlocklist(ctx, patterns); err != nil {
		return fmt.Errorf("save blocklist: %w", err)
	}
	return f.setCache(patterns)
}

// NormalizeInput turns user input (a bare host, a URL, or a "*." pattern)
// into a stored entry: lowercased, no scheme, path, port or "www.".
func NormalizeInput(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	wildcard := strings.HasPrefix(s, wildcardPrefix)
	s = strings.TrimPrefix(s, wildcardPrefix)

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.Trim(s, ".")

	if s == "" || strings.ContainsAny(s, " *[]{}\\") {
		return "", fmt.Errorf("%w %q", ErrInvalidEntry, input)
	}
	if wildcard {
		return wildcardPrefix + s, nil
	}
	return s, nil
}

// Sorted returns a sorted copy of patterns, for display.
func Sorted(patterns []string) []string {
	out := append([]string(nil), patterns...)
	sort.Strings(out)
	return out
}
