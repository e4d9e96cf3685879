package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weathercast/internal/cache"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestNewRaisesIntervalToCacheTTL(t *testing.T) {
	s := New(&countingRefresher{}, time.Minute, nil)
	assert.Equal(t, cache.TTL, s.Interval())

	s = New(&countingRefresher{}, 15*time.Minute, nil)
	assert.Equal(t, 15*time.Minute, s.Interval())
}

func TestStartRunsImmediately(t *testing.T) {
	r := &countingRefresher{err: errors.New("offline")}
	results := make(chan error, 1)
	s := New(r, cache.TTL, func(err error) { results <- err })

	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case err := <-results:
		assert.EqualError(t, err, "offline")
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not run")
	}
	assert.Equal(t, int32(1), r.calls.Load())
}
