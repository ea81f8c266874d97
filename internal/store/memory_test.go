package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPath(t *testing.T, segments ...string) Path {
	t.Helper()
	p, err := NewPath(segments...)
	require.NoError(t, err)
	return p
}

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := mustPath(t, "users", "alice")

	_, err := m.Get(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, m.Set(ctx, p, []byte(`{"id":"alice"}`)))

	value, err := m.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"alice"}`, string(value))
}

func TestMemoryTransactCommit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := mustPath(t, "counter")

	committed, final, err := m.Transact(ctx, p, func(current []byte) ([]byte, error) {
		assert.Nil(t, current)
		return []byte("1"), nil
	})
	require.NoError(t, err)
	assert.True(t, committed)
	assert.Equal(t, "1", string(final))

	value, err := m.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "1", string(value))
}

func TestMemoryTransactAbortLeavesNoWrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := mustPath(t, "counter")
	require.NoError(t, m.Set(ctx, p, []byte("5")))

	committed, _, err := m.Transact(ctx, p, func(current []byte) ([]byte, error) {
		return nil, ErrAbort
	})
	require.NoError(t, err)
	assert.False(t, committed)

	value, err := m.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "5", string(value))
}

func TestMemoryTransactPropagatesError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := mustPath(t, "counter")

	failure := errors.New("bad record")
	committed, _, err := m.Transact(ctx, p, func(current []byte) ([]byte, error) {
		return nil, failure
	})
	assert.False(t, committed)
	assert.ErrorIs(t, err, failure)

	_, err = m.Get(ctx, p)
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestMemoryTransactConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	p := mustPath(t, "counter")
	require.NoError(t, m.Set(ctx, p, []byte("0")))

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := m.Transact(ctx, p, func(current []byte) ([]byte, error) {
				n, err := strconv.Atoi(string(current))
				if err != nil {
					return nil, err
				}
				return []byte(strconv.Itoa(n + 1)), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	value, err := m.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(writers), string(value))
}

func TestMemoryChildrenImmediateOnly(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, mustPath(t, "users", "alice", "messages", "bob", "log", "1"), []byte("one")))
	require.NoError(t, m.Set(ctx, mustPath(t, "users", "alice", "messages", "bob", "log", "2"), []byte("two")))
	require.NoError(t, m.Set(ctx, mustPath(t, "users", "alice", "messages", "bob", "log", "-1"), []byte("placeholder")))
	require.NoError(t, m.Set(ctx, mustPath(t, "users", "alice", "messages", "carol", "log", "1"), []byte("other")))

	children, err := m.Children(ctx, mustPath(t, "users", "alice", "messages", "bob", "log"))
	require.NoError(t, err)
	assert.Len(t, children, 3)
	assert.Equal(t, "one", string(children["1"]))
	assert.Equal(t, "two", string(children["2"]))
	assert.Equal(t, "placeholder", string(children["-1"]))

	// A node's value is not a child of itself.
	children, err = m.Children(ctx, mustPath(t, "users", "alice", "messages"))
	require.NoError(t, err)
	assert.Empty(t, children)
}
