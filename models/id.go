package models

import (
	"sort"
	"sync"
)

// SequentialIDGenerator generates element ids starting at 1. Released ids are
// handed out again, lowest first, so ids stay dense across scene edits.
type SequentialIDGenerator struct {
	mutex    sync.Mutex
	last     uint32
	released []uint32
}

// New returns the lowest released id, or the next unused one.
func (g *SequentialIDGenerator) New() uint32 {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if len(g.released) != 0 {
		id := g.released[0]
		g.released = g.released[1:]
		return id
	}

	g.last++
	return g.last
}

// Reuse releases id so that New can return it again.
func (g *SequentialIDGenerator) Reuse(id uint32) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	i := sort.Search(len(g.released), func(i int) bool {
		return g.released[i] >= id
	})
	if i < len(g.released) && g.released[i] == id {
		return
	}

	g.released = append(g.released, 0)
	copy(g.released[i+1:], g.released[i:])
	g.released[i] = id
}
