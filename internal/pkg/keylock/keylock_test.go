package keylock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLock_SerializesSameKey(t *testing.T) {
	k := New()
	var active, maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("conv-1")
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				prev := atomic.LoadInt32(&maxActive)
				if n <= prev || atomic.CompareAndSwapInt32(&maxActive, prev, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxActive)
	assert.Zero(t, k.Len())
}

func TestLock_DifferentKeysRunInParallel(t *testing.T) {
	k := New()
	unlockA := k.Lock("conv-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("conv-b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key was blocked")
	}
}

func TestLock_UnlockIsIdempotent(t *testing.T) {
	k := New()
	unlock := k.Lock("conv-1")
	unlock()
	unlock()

	assert.Zero(t, k.Len())

	again := k.Lock("conv-1")
	again()
}
