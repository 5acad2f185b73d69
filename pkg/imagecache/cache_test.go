package imagecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowthepast/pkg/model"
)

func TestResolve_CachesByPrompt(t *testing.T) {
	c := New()
	var calls int32
	render := func(ctx context.Context, prompt string) (model.Image, error) {
		atomic.AddInt32(&calls, 1)
		return model.Image{Data: []byte(prompt), MIMEType: "image/jpeg"}, nil
	}

	first, hit, err := c.Resolve(context.Background(), "a harbour", render)
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := c.Resolve(context.Background(), "a harbour", render)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	// Exact string equality: a different prompt is a different key
	_, _, err = c.Resolve(context.Background(), "a harbour ", render)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.Equal(t, 2, c.Len())
}

func TestResolve_ConcurrentSamePromptRendersOnce(t *testing.T) {
	c := New()
	var calls int32
	release := make(chan struct{})
	render := func(ctx context.Context, prompt string) (model.Image, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return model.Image{Data: []byte("x"), MIMEType: "image/jpeg"}, nil
	}

	var wg sync.WaitGroup
	var misses int32
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, hit, err := c.Resolve(context.Background(), "same", render)
			assert.NoError(t, err)
			if !hit {
				atomic.AddInt32(&misses, 1)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	assert.EqualValues(t, 1, atomic.LoadInt32(&misses), "only the rendering caller reports a miss")
}

func TestResolve_ErrorNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	_, _, err := c.Resolve(context.Background(), "p", func(ctx context.Context, prompt string) (model.Image, error) {
		return model.Image{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestClear_DetachesInFlightRender(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _, _ = c.Resolve(context.Background(), "old", func(ctx context.Context, prompt string) (model.Image, error) {
			close(started)
			<-release
			return model.Image{Data: []byte("stale")}, nil
		})
	}()

	<-started
	c.Clear()
	close(release)
	<-done

	_, ok := c.Get("old")
	assert.False(t, ok, "render started before Clear must not populate the cleared cache")
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("a", model.Image{Data: []byte("1")})
	c.Set("b", model.Image{Data: []byte("2")})
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
