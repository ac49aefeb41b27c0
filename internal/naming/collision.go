package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// CollisionResolver tracks output paths claimed by inputs during a run and
// numbers duplicates. All methods are goroutine-safe.
type CollisionResolver struct {
	mu       sync.Mutex
	owners   map[string]string // output path → input that owns it
	counters map[string]int    // requested output → next number to try
}

// NewCollisionResolver returns an empty resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the output path for input. An unclaimed requested path
// (or one already owned by input) is returned as-is; otherwise the stem
// gets a number before the _av1 suffix, starting at 2.
func (cr *CollisionResolver) Resolve(input, requested string) string {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	owner, exists := cr.owners[requested]
	if !exists || owner == input {
		cr.owners[requested] = input
		return requested
	}

	dir := filepath.Dir(requested)
	base := filepath.Base(requested)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(strings.TrimSuffix(base, ext), Suffix)

	n := cr.counters[requested]
	if n == 0 {
		n = 2
	}
	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s%s", stem, n, Suffix, ext))
		if o, ok := cr.owners[candidate]; !ok || o == input {
			cr.counters[requested] = n + 1
			cr.owners[candidate] = input
			return candidate
		}
		n++
	}
}
