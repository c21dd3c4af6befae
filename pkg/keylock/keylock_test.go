package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("t1|Monday")
			counter++
			kl.Unlock("t1|Monday")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := New()
	kl.Lock("a")
	done := make(chan struct{})
	go func() {
		kl.Lock("b")
		kl.Unlock("b")
		close(done)
	}()
	<-done // a different key must not block
	kl.Unlock("a")
}
