package session

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/spacecombat/pkg/core"
)

// Context holds the battle currently being recorded
type Context struct {
	mu     sync.RWMutex
	battle core.Battle
	round  int
	active bool
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		battle: core.Battle{Name: "No battle loaded"},
	}
}

// GetBattle returns a copy of the current battle
func (c *Context) GetBattle() core.Battle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.battle
}

// Active reports whether a battle is between start and end
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Round returns the highest round seen for the current battle
func (c *Context) Round() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.round
}

// StartBattle makes b the current battle
func (c *Context) StartBattle(b core.Battle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.battle = b
	c.round = 0
	c.active = true
}

// EndBattle stores the final record; the battle stays readable until the next start
func (c *Context) EndBattle(b core.Battle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.battle = b
	c.active = false
}

// ObserveRound advances the round; older rounds arriving late are ignored
func (c *Context) ObserveRound(round int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if round > c.round {
		c.round = round
	}
}

// LogAttrs returns the battle attributes added to every log record.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.active {
		return nil
	}
	return []slog.Attr{
		slog.String("battle", c.battle.Name),
		slog.Int("round", c.round),
	}
}
