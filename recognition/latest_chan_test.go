package recognition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestChanKeepsFreshest(t *testing.T) {
	var dropped []int
	q := newLatestChan[int](1, func(v int) { dropped = append(dropped, v) })

	q.send(1)
	q.send(2)
	q.send(3)

	got, ok := q.recv(10 * time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 3, got)
	assert.Equal(t, []int{1, 2}, dropped)
}

func TestLatestChanRecvTimeout(t *testing.T) {
	q := newLatestChan[int](1, nil)
	_, ok := q.recv(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestLatestChanDrain(t *testing.T) {
	var dropped []string
	q := newLatestChan[string](2, func(v string) { dropped = append(dropped, v) })

	q.send("a")
	q.send("b")
	q.drain()

	assert.Equal(t, []string{"a", "b"}, dropped)
	_, ok := q.recv(5 * time.Millisecond)
	assert.False(t, ok)
}
