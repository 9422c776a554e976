package sync

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutexSameKeySerializes(t *testing.T) {
	m := NewShardedMutex()
	counter := 0
	var wg sync.WaitGroup

	for range 100 {
		wg.Go(func() {
			m.Lock("device-1")
			defer m.Unlock("device-1")
			counter++
		})
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestShardedMutexDo(t *testing.T) {
	m := NewShardedMutex()
	counters := map[string]*int{"a": new(int), "b": new(int), "c": new(int), "d": new(int)}
	var wg sync.WaitGroup

	for i := range 200 {
		key := []string{"a", "b", "c", "d"}[i%4]
		wg.Go(func() {
			_ = m.Do(key, func() error {
				*counters[key]++
				return nil
			})
		})
	}
	wg.Wait()

	for key, n := range counters {
		assert.Equal(t, 50, *n, key)
	}

	boom := errors.New("boom")
	assert.ErrorIs(t, m.Do("a", func() error { return boom }), boom)
}

func TestShardForIsStable(t *testing.T) {
	assert.Equal(t, 0, shardFor(""))
	assert.Equal(t, shardFor("device-1"), shardFor("device-1"))
	assert.Less(t, shardFor("device-2"), shardCount)
}
