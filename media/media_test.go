package media

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter(t *testing.T) {
	c := NewCounter()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Push(Video, make([]byte, 100))
		}()
	}
	wg.Wait()
	_ = c.Push(Audio, []byte{1, 2, 3})

	assert.Equal(t, Stats{Frames: 10, Bytes: 1000}, c.Stats(Video))
	assert.Equal(t, Stats{Frames: 1, Bytes: 3}, c.Stats(Audio))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "video", Video.String())
	assert.Equal(t, "audio", Audio.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
