package utils_test

import (
	"sync"
	"testing"

	"github.com/robalyx/retract/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()

	km := utils.NewKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("user")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	t.Parallel()

	km := utils.NewKeyedMutex()

	unlockA := km.Lock("a")
	unlockB := km.Lock("b") // must not block while "a" is held
	assert.Equal(t, 2, km.Len())

	unlockA()
	unlockB()
	assert.Equal(t, 0, km.Len())
}
