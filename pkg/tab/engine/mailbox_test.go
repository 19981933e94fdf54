package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailbox_FifoOrdering(t *testing.T) {
	m := newMailbox()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.push(i))
	}
	assert.Equal(t, 10, m.len())

	for i := 0; i < 10; i++ {
		item, ok := m.pop()
		require.True(t, ok)
		assert.Equal(t, i, item)
	}

	_, ok := m.pop()
	assert.False(t, ok)
}

func TestMailbox_Close(t *testing.T) {
	m := newMailbox()

	require.NoError(t, m.push("a"))
	require.NoError(t, m.push("b"))

	remaining := m.close()
	assert.Equal(t, []interface{}{"a", "b"}, remaining)

	assert.Equal(t, ErrEngineStopped, m.push("c"))
	_, ok := m.pop()
	assert.False(t, ok)
}

func TestMailbox_SignalWakesConsumer(t *testing.T) {
	m := newMailbox()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-m.signal
	}()

	require.NoError(t, m.push("a"))
	wg.Wait()
}
