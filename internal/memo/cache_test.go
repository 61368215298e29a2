package memo

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_BuildsOnce(t *testing.T) {
	c := New()
	var calls int32

	build := func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return []string{"grammar", "v1"}, nil
	}

	first, err := c.Get("grammar", build)
	require.NoError(t, err)
	second, err := c.Get("grammar", build)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, 1, c.Builds("grammar"))
}

func TestCache_ConcurrentSingleBuild(t *testing.T) {
	c := New()
	var calls int32
	release := make(chan struct{})

	build := func() (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	const n = 32
	var wg sync.WaitGroup
	results := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = Of(c, "parser", build)
		}(i)
	}

	// Give every goroutine a chance to block on the in-flight build.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 42, results[i])
	}
}

func TestCache_FailedBuildNotStored(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	_, err := c.Get("dialect:oracle", func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get("dialect:oracle", func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, c.Builds("dialect:oracle"))
}

func TestProcess_IsShared(t *testing.T) {
	assert.Same(t, Process(), Process())
}
