package engine

import (
	"slices"
	"sort"
	"sync"
)

// FolderRegistry is the append-only list of custom folder names consumers
// build one UI element per name from.
//
// It is populated exactly once, by the first successful cycle that observes
// at least one custom folder, and never shrinks afterwards.
type FolderRegistry struct {
	mu        sync.RWMutex
	names     []string
	populated bool
}

// Populate records names if the registry is still empty and names is
// non-empty. It reports whether this call populated the registry. Names are
// stored sorted so the list is stable regardless of map iteration order.
func (r *FolderRegistry) Populate(names []string) bool {
	if len(names) == 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.populated {
		return false
	}

	r.names = slices.Clone(names)
	sort.Strings(r.names)
	r.populated = true
	return true
}

// Populated reports whether the registry has been filled.
func (r *FolderRegistry) Populated() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.populated
}

// Names returns a copy of the registered names.
func (r *FolderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}
