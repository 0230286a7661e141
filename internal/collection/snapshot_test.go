package collection

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot(t *testing.T) {
	snapshot := NewSnapshot[string, int]()
	_, ok := snapshot.Lookup("one")
	assert.False(t, ok)
	assert.Equal(t, 0, snapshot.Len())

	key := func(v int) string { return strconv.Itoa(v) }
	snapshot.Replace([]int{3, 1, 2}, key)
	assert.Equal(t, 3, snapshot.Len())
	assert.Equal(t, []int{3, 1, 2}, snapshot.Values())
	v, ok := snapshot.Lookup("2")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	// a replace removes entries that are no longer present
	snapshot.Replace([]int{5}, key)
	_, ok = snapshot.Lookup("2")
	assert.False(t, ok)
	assert.Equal(t, []int{5}, snapshot.Values())

	// mutating a returned copy does not affect the snapshot
	values := snapshot.Values()
	values[0] = 99
	assert.Equal(t, []int{5}, snapshot.Values())
}

func TestSnapshot_Concurrent(t *testing.T) {
	snapshot := NewSnapshot[string, int]()
	key := func(v int) string { return strconv.Itoa(v) }
	var waitGroup sync.WaitGroup
	for i := 0; i < 8; i++ {
		waitGroup.Add(1)
		go func(n int) {
			defer waitGroup.Done()
			for j := 0; j < 100; j++ {
				snapshot.Replace([]int{n, n + 1}, key)
				assert.Equal(t, 2, snapshot.Len())
				_ = snapshot.Values()
			}
		}(i)
	}
	waitGroup.Wait()
}
