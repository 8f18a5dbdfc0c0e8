package routing

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Priya8975/chatlog-relay/internal/domain"
)

// Table maps a source channel to its routing entry.
//
// Readers load an immutable snapshot and never block. Writers copy the
// current snapshot, apply the change and swap it in, so a concurrent
// Lookup observes either the previous entry or the new one as a whole.
type Table struct {
	mu      sync.Mutex // serializes writers
	entries atomic.Pointer[map[string]domain.RoutingEntry]
}

// NewTable returns an empty routing table.
func NewTable() *Table {
	t := &Table{}
	empty := make(map[string]domain.RoutingEntry)
	t.entries.Store(&empty)
	return t
}

// Lookup returns the entry registered for sourceChannelID.
func (t *Table) Lookup(sourceChannelID string) (domain.RoutingEntry, bool) {
	entry, ok := (*t.entries.Load())[sourceChannelID]
	return entry, ok
}

// Upsert registers entry under its source channel, replacing any previous
// entry for that channel.
func (t *Table) Upsert(entry domain.RoutingEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := *t.entries.Load()
	next := make(map[string]domain.RoutingEntry, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	next[entry.SourceChannelID] = entry
	t.entries.Store(&next)
}

// List returns a snapshot of all entries ordered by source channel.
func (t *Table) List() []domain.RoutingEntry {
	current := *t.entries.Load()
	entries := make([]domain.RoutingEntry, 0, len(current))
	for _, e := range current {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SourceChannelID < entries[j].SourceChannelID
	})
	return entries
}

// Len returns the number of registered source channels.
func (t *Table) Len() int {
	return len(*t.entries.Load())
}
