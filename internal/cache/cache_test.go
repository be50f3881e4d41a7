package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/spacecombat/pkg/core"
)

func TestStackCache_NewStackCache(t *testing.T) {
	cache := NewStackCache()

	require.NotNil(t, cache)
	assert.NotNil(t, cache.Combatants)
	assert.Equal(t, 0, cache.Len())
}

func TestStackCache_AddAndGet(t *testing.T) {
	cache := NewStackCache()

	cache.Add(core.Combatant{StackID: 42, Name: "Falcon", Owner: "Alkari"})

	got, ok := cache.Get(42)
	require.True(t, ok, "expected to find stack with ID 42")
	assert.Equal(t, 42, got.StackID)
	assert.Equal(t, "Falcon", got.Name)
	assert.True(t, cache.Has(42))
}

func TestStackCache_Get_NotFound(t *testing.T) {
	cache := NewStackCache()

	_, ok := cache.Get(999)
	assert.False(t, ok, "expected not to find stack with ID 999")
	assert.False(t, cache.Has(999))
}

func TestStackCache_Reset(t *testing.T) {
	cache := NewStackCache()
	cache.Add(core.Combatant{StackID: 1})
	cache.Add(core.Combatant{StackID: 2})
	require.Equal(t, 2, cache.Len())

	cache.Reset()

	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get(1)
	assert.False(t, ok)
}

func TestStackCache_Owners(t *testing.T) {
	cache := NewStackCache()
	cache.Add(core.Combatant{StackID: 1, Owner: "Alkari", Units: 6})
	cache.Add(core.Combatant{StackID: 2, Owner: "Alkari", Units: 2})
	cache.Add(core.Combatant{StackID: 3, Owner: "Bulrathi", Units: 1})

	assert.Equal(t, map[string]int{"Alkari": 8, "Bulrathi": 1}, cache.Owners())
}

func TestStackCache_LockUnlock(t *testing.T) {
	cache := NewStackCache()

	cache.Lock()
	cache.Combatants[7] = core.Combatant{StackID: 7}
	cache.Unlock()

	_, ok := cache.Get(7)
	assert.True(t, ok)
}

func TestStackCache_Concurrent(t *testing.T) {
	cache := NewStackCache()
	var wg sync.WaitGroup

	for i := range 100 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			cache.Add(core.Combatant{StackID: id})
			cache.Get(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, cache.Len())
}

func TestSafeCounter_InitialValue(t *testing.T) {
	var c SafeCounter
	assert.Equal(t, 0, c.Value())
}

func TestSafeCounter_Set(t *testing.T) {
	var c SafeCounter
	c.Set(42)
	assert.Equal(t, 42, c.Value())
	c.Set(0)
	assert.Equal(t, 0, c.Value())
}

func TestSafeCounter_Inc(t *testing.T) {
	var c SafeCounter
	c.Inc()
	c.Inc()
	assert.Equal(t, 2, c.Value())
}

func TestSafeCounter_Concurrent(t *testing.T) {
	var c SafeCounter
	var wg sync.WaitGroup

	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.Value())
}
