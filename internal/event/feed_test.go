package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSubscribePublish(t *testing.T) {
	var f Feed[int]
	var got1, got2 []int

	cancel1 := f.Subscribe(func(v int) { got1 = append(got1, v) })
	f.Subscribe(func(v int) { got2 = append(got2, v) })

	f.Publish(1)
	cancel1()
	cancel1()
	f.Publish(2)

	assert.Equal(t, []int{1}, got1)
	assert.Equal(t, []int{1, 2}, got2)
}

func TestFeedPublishWithoutSubscribers(t *testing.T) {
	var f Feed[string]
	assert.NotPanics(t, func() { f.Publish("x") })
}

func TestFeedChanDropsWhenFull(t *testing.T) {
	var f Feed[int]
	ch, cancel := f.Chan(2)
	defer cancel()

	f.Publish(1)
	f.Publish(2)
	f.Publish(3)

	require.Len(t, ch, 2)
	assert.Equal(t, 1, <-ch)
	assert.Equal(t, 2, <-ch)
}

func TestFeedConcurrentUse(t *testing.T) {
	var f Feed[int]
	var mu sync.Mutex
	total := 0
	f.Subscribe(func(v int) {
		mu.Lock()
		total += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancel := f.Subscribe(func(int) {})
			f.Publish(1)
			cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, total)
}
