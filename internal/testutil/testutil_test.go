package testutil

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedClock_TruncatesToDate(t *testing.T) {
	clock := NewFixedClock(time.Date(2026, time.October, 16, 17, 45, 0, 0, time.UTC))
	assert.Equal(t, DefaultToday, clock.Today())
}

func TestFixedClock_Advance(t *testing.T) {
	clock := NewFixedClock(DefaultToday)
	clock.Advance(3)
	assert.Equal(t, time.Date(2026, time.October, 19, 0, 0, 0, 0, time.UTC), clock.Today())
}

func TestFixedClock_ConcurrentReads(t *testing.T) {
	clock := NewFixedClock(DefaultToday)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, DefaultToday, clock.Today())
		}()
	}
	wg.Wait()
}

func TestFixedRunIDGenerator(t *testing.T) {
	assert.Equal(t, "run-7", NewFixedRunIDGenerator("run-7").Generate())
	assert.Equal(t, "test-run", NewFixedRunIDGenerator("").Generate())
}

func TestNewBackend_ServesHealth(t *testing.T) {
	b := NewBackend(t)

	resp, err := http.Get(b.URL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
