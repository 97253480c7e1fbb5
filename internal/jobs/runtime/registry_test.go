package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedHandler string

func (h namedHandler) Type() string        { return string(h) }
func (h namedHandler) Run(*Context) error { return nil }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(namedHandler("epr_recompute"), namedHandler("epr_batch_recalculation")))
	assert.Equal(t, []string{"epr_batch_recalculation", "epr_recompute"}, r.Types())

	h, ok := r.Get("epr_recompute")
	require.True(t, ok)
	assert.Equal(t, "epr_recompute", h.Type())
	_, ok = r.Get("unknown")
	assert.False(t, ok)

	assert.ErrorContains(t, r.Register(namedHandler("epr_recompute")), "already taken")
	assert.ErrorContains(t, r.Register(namedHandler("")), "empty job type")
	assert.ErrorContains(t, r.Register(nil), "nil handler")
}
