package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func TestStepClock_Advances(t *testing.T) {
	c := NewStepClock(epoch, 50*time.Millisecond)

	assert.Equal(t, epoch, c.Now())
	assert.Equal(t, epoch.Add(50*time.Millisecond), c.Now())
	assert.Equal(t, epoch.Add(100*time.Millisecond), c.Peek())
	assert.Equal(t, epoch.Add(100*time.Millisecond), c.Now(), "Peek must not advance")
}

func TestStepClock_Reset(t *testing.T) {
	c := NewStepClock(epoch, time.Second)
	c.Now()
	c.Now()

	c.Reset()
	assert.Equal(t, epoch, c.Now())
}

func TestStepClock_ThreadSafe(t *testing.T) {
	c := NewStepClock(epoch, time.Millisecond)
	const goroutines = 50
	const calls = 20

	var wg sync.WaitGroup
	seen := make(chan time.Time, goroutines*calls)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < calls; j++ {
				seen <- c.Now()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[time.Time]bool)
	for ts := range seen {
		assert.False(t, unique[ts], "instant %v returned twice", ts)
		unique[ts] = true
	}
	assert.Len(t, unique, goroutines*calls)
}

func TestFixedIDGenerator(t *testing.T) {
	g := NewFixedIDGenerator("run-1", "run-2")
	assert.Equal(t, "run-1", g.Generate())
	assert.Equal(t, "run-2", g.Generate())
	assert.Panics(t, func() { g.Generate() })

	def := NewFixedIDGenerator()
	assert.Equal(t, "test-run-default", def.Generate())
	assert.Equal(t, "test-run-default", def.Generate())
}
