package statekit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statekit/statekit/pkg/statekit"
)

func TestGroup_Register(t *testing.T) {
	sched := statekit.NewScheduler()
	g := statekit.NewGroup()

	require.NoError(t, g.Register("counter", statekit.New(sched, 0)))
	assert.True(t, g.Has("counter"))
	assert.Equal(t, 1, g.Len())

	m, ok := g.Get("counter")
	require.True(t, ok)
	assert.False(t, m.Disposed())
}

func TestGroup_Register_Errors(t *testing.T) {
	sched := statekit.NewScheduler()
	g := statekit.NewGroup()
	cell := statekit.New(sched, 0)

	require.NoError(t, g.Register("c", cell))

	t.Run("duplicate name", func(t *testing.T) {
		err := g.Register("c", statekit.New(sched, 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})

	t.Run("empty name", func(t *testing.T) {
		assert.Error(t, g.Register("", cell))
	})

	t.Run("nil member", func(t *testing.T) {
		assert.Error(t, g.Register("other", nil))
	})
}

func TestGroup_Names_RegistrationOrder(t *testing.T) {
	sched := statekit.NewScheduler()
	g := statekit.NewGroup()

	require.NoError(t, g.Register("b", statekit.New(sched, 0)))
	require.NoError(t, g.Register("a", statekit.New(sched, 0)))
	require.NoError(t, g.Register("c", statekit.New(sched, 0)))

	assert.Equal(t, []string{"b", "a", "c"}, g.Names())
}

func TestGroup_Dispose(t *testing.T) {
	sched := statekit.NewScheduler()
	g := statekit.NewGroup()
	cell := statekit.New(sched, 0)

	require.NoError(t, g.Register("c", cell))

	assert.True(t, g.Dispose("c"))
	assert.True(t, cell.Disposed())
	assert.False(t, g.Has("c"))

	assert.False(t, g.Dispose("c"), "second dispose reports missing")
	assert.False(t, g.Dispose("unknown"))
}

func TestGroup_DisposeAll(t *testing.T) {
	sched := statekit.NewScheduler()
	g := statekit.NewGroup()

	a := statekit.New(sched, 0)
	b := statekit.New(sched, "x")
	d, err := statekit.Derive(a, func(v int) int { return v + 1 })
	require.NoError(t, err)

	require.NoError(t, g.Register("a", a))
	require.NoError(t, g.Register("b", b))
	require.NoError(t, g.Register("d", d))

	g.DisposeAll()

	assert.True(t, a.Disposed())
	assert.True(t, b.Disposed())
	assert.True(t, d.Disposed())
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Names())
}
