package task_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/csams/jack/task"
)

func nop(*task.Context) (any, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	r := task.NewRegistry()
	require.NoError(t, r.Register("ops.b", nop))
	require.NoError(t, r.Register("ops.a", nop))

	require.ErrorIs(t, r.Register("ops.a", nop), task.ErrDuplicate)
	require.ErrorIs(t, r.Register("", nop), task.ErrEmptyName)

	_, ok := r.Get("ops.a")
	require.True(t, ok)
	_, ok = r.Get("ops.c")
	require.False(t, ok)

	require.Equal(t, []string{"ops.a", "ops.b"}, r.Names())
}
