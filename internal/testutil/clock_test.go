package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWallClock(t *testing.T) {
	start := time.UnixMilli(1700000000000)
	c := NewWallClock(start)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start, c.Now(), "repeated reads must not advance")

	c.Advance(125 * time.Second)
	assert.Equal(t, int64(1700000125000), c.Now().UnixMilli())
}

func TestFixedIDs(t *testing.T) {
	g := NewFixedIDs("a", "b")
	assert.Equal(t, "a", g.Generate())
	assert.Equal(t, "b", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestSeqIDs(t *testing.T) {
	g := NewSeqIDs("ev")
	assert.Equal(t, "ev-1", g.Generate())
	assert.Equal(t, "ev-2", g.Generate())
}
