package rtc

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationsEnqueueOrder(t *testing.T) {
	ops := newOperations()
	defer ops.GracefulClose()

	var mu sync.Mutex
	var executed []int

	for i := 0; i < 100; i++ {
		value := i
		ops.Enqueue(func() {
			mu.Lock()
			executed = append(executed, value)
			mu.Unlock()
		})
	}
	ops.Done()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, executed, 100)
	for i, value := range executed {
		assert.Equal(t, i, value)
	}
}

func TestOperationsDoneOnIdleQueue(t *testing.T) {
	ops := newOperations()
	defer ops.GracefulClose()

	// Must return immediately when nothing is enqueued.
	ops.Done()
}

func TestOperationsGracefulClose(t *testing.T) {
	ops := newOperations()

	var counter int32
	for i := 0; i < 10; i++ {
		ops.Enqueue(func() {
			atomic.AddInt32(&counter, 1)
		})
	}

	ops.GracefulClose()
	assert.Equal(t, int32(10), atomic.LoadInt32(&counter))

	// Operations enqueued after close are dropped.
	ops.Enqueue(func() {
		atomic.AddInt32(&counter, 1)
	})
	ops.Done()
	assert.Equal(t, int32(10), atomic.LoadInt32(&counter))

	// Closing again is a no-op.
	ops.GracefulClose()
}
