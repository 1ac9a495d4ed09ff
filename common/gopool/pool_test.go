package gopool

import (
	"sync/atomic"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolWait(t *testing.T) {
	pool, err := NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	var done atomic.Int32
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(func() { done.Add(1) }))
	}
	pool.Wait()
	assert.Equal(t, int32(4), done.Load())
	assert.Equal(t, 4, pool.Cap())
}

func TestPoolOverload(t *testing.T) {
	pool, err := NewPool(1)
	require.NoError(t, err)
	defer pool.Release()

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-release
	}))
	<-started
	assert.Equal(t, 1, pool.Running())
	assert.Equal(t, 0, pool.Free())

	err = pool.Submit(func() {})
	assert.ErrorIs(t, err, ants.ErrPoolOverload)

	close(release)
	pool.Wait()
}
