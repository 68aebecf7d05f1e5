package sync

import (
	"fmt"
	base "sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripedLock_HappyPath(t *testing.T) {
	workerCount := 64
	operationCount := 1000

	l := NewStripedLock(4)

	var wg base.WaitGroup
	startChan := make(chan struct{})
	data := make([]int, workerCount)

	for i := 0; i < workerCount; i++ {
		key := []byte(fmt.Sprintf("worker%d", i))
		for j := 0; j < operationCount; j++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()
				<-startChan

				unlock := l.Lock(key)
				data[workerID]++
				unlock()
			}(i)
		}
	}

	close(startChan)
	wg.Wait()

	for _, val := range data {
		assert.EqualValues(t, operationCount, val)
	}
}

func TestStripedLock_SameKeySameLock(t *testing.T) {
	l := NewStripedLock(16)

	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("owner%d", i))
		assert.True(t, l.Get(key) == l.Get(key))
	}
}

func TestStripedLock_ZeroStripes(t *testing.T) {
	l := NewStripedLock(0)
	unlock := l.Lock([]byte("key"))
	unlock()
}
