package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopTool(name string) Tool {
	return NewFunctionTool(name, "noop "+name, map[string]any{"type": "object"}, nil)
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(noopTool("alpha")))
	require.NoError(t, r.Register(noopTool("beta")))

	got, err := r.Resolve("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name())

	_, ok := r.Get("beta")
	assert.True(t, ok)

	assert.Equal(t, 2, r.Len())
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(noopTool("alpha")))

	err := r.Register(noopTool("alpha"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_NilAndEmptyNameRejected(t *testing.T) {
	r := NewRegistry()

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(noopTool("")))
}

func TestRegistry_ResolveUnknown(t *testing.T) {
	r := NewRegistry()

	_, err := r.Resolve("missing")
	require.Error(t, err)
	assert.Equal(t, "tool not found: missing", err.Error())
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(noopTool("zeta"), noopTool("alpha"), noopTool("mid"))

	names := r.Names()
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)

	tools := r.List()
	require.Len(t, tools, 3)
	assert.Equal(t, "alpha", tools[0].Name())

	schemas := r.Schemas()
	require.Len(t, schemas, 3)
	assert.Equal(t, "alpha", schemas[0].Name)
}

func TestRegistry_Deregister(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(noopTool("alpha"))

	r.Deregister("alpha")
	_, ok := r.Get("alpha")
	assert.False(t, ok)

	// Unknown name is a no-op.
	r.Deregister("missing")
}
