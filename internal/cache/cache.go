package cache

import (
	"sync"

	"github.com/OCAP2/spacecombat/pkg/core"
)

// StackCache holds the combatants registered for the current battle so
// state records can be checked without a db read.
type StackCache struct {
	m          sync.Mutex
	Combatants map[int]core.Combatant
}

func NewStackCache() *StackCache {
	return &StackCache{
		m:          sync.Mutex{},
		Combatants: make(map[int]core.Combatant),
	}
}

func (c *StackCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Combatants = make(map[int]core.Combatant)
}

func (c *StackCache) Lock() {
	c.m.Lock()
}

func (c *StackCache) Unlock() {
	c.m.Unlock()
}

func (c *StackCache) Get(stackID int) (core.Combatant, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if s, ok := c.Combatants[stackID]; ok {
		return s, true
	}
	return core.Combatant{}, false
}

func (c *StackCache) Add(s core.Combatant) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Combatants[s.StackID] = s
}

// Has reports whether the stack was registered.
func (c *StackCache) Has(stackID int) bool {
	c.m.Lock()
	defer c.m.Unlock()
	_, ok := c.Combatants[stackID]
	return ok
}

func (c *StackCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Combatants)
}

// Owners returns the distinct owners of the registered stacks.
func (c *StackCache) Owners() map[string]int {
	c.m.Lock()
	defer c.m.Unlock()
	owners := make(map[string]int)
	for _, s := range c.Combatants {
		owners[s.Owner] += s.Units
	}
	return owners
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}
