package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenLocks_Serializes(t *testing.T) {
	locks := newTokenLocks()

	var counter int
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("tok")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestTokenLocks_EntriesAreReleased(t *testing.T) {
	locks := newTokenLocks()

	unlock := locks.lock("a")
	unlock()
	unlock = locks.lock("b")
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.entries)
}
