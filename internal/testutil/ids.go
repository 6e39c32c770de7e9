package testutil

import (
	"fmt"
	"sync"
)

// FixedIDs returns predetermined ids in order.
//
// Panics once exhausted; fail-fast catches a test committing more events
// than the scenario declared.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// SeqIDs generates "<prefix>-1", "<prefix>-2", ... Convenient when a test
// does not care about the exact ids, only their stability.
type SeqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSeqIDs(prefix string) *SeqIDs {
	return &SeqIDs{prefix: prefix}
}

func (g *SeqIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
