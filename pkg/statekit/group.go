package statekit

import (
	"fmt"
	"sync"
)

// Member is the view a Group keeps of a cell or derived view it owns.
type Member interface {
	ID() string
	Dispose()
	Disposed() bool
}

// Group owns a named collection of cells and disposes them together.
// It is safe for concurrent use.
type Group struct {
	mu      sync.RWMutex
	members map[string]Member
	order   []string
}

// NewGroup creates an empty group.
func NewGroup() *Group {
	return &Group{
		members: make(map[string]Member),
	}
}

// Register adds a member under a name. Registering a duplicate name is
// an error.
func (g *Group) Register(name string, m Member) error {
	if name == "" {
		return fmt.Errorf("member name is required")
	}
	if m == nil {
		return fmt.Errorf("member is required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.members[name]; exists {
		return fmt.Errorf("member %q already registered", name)
	}
	g.members[name] = m
	g.order = append(g.order, name)
	return nil
}

// Get returns the member for a name and whether it exists.
func (g *Group) Get(name string) (Member, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.members[name]
	return m, ok
}

// Has returns true if the name is registered.
func (g *Group) Has(name string) bool {
	_, ok := g.Get(name)
	return ok
}

// Names returns the registered names in registration order.
func (g *Group) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Len returns the number of registered members.
func (g *Group) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// Dispose disposes and removes a single member. It reports whether the
// name was registered.
func (g *Group) Dispose(name string) bool {
	g.mu.Lock()
	m, ok := g.members[name]
	if ok {
		delete(g.members, name)
		for i, n := range g.order {
			if n == name {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}
	}
	g.mu.Unlock()
	if ok {
		m.Dispose()
	}
	return ok
}

// DisposeAll disposes every member in reverse registration order and
// empties the group.
func (g *Group) DisposeAll() {
	g.mu.Lock()
	members := make([]Member, 0, len(g.order))
	for i := len(g.order) - 1; i >= 0; i-- {
		members = append(members, g.members[g.order[i]])
	}
	g.members = make(map[string]Member)
	g.order = nil
	g.mu.Unlock()

	for _, m := range members {
		m.Dispose()
	}
}
