package queue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueue_SubmitRunsWork(t *testing.T) {
	q := New(2)
	var ran atomic.Bool

	q.Submit(context.Background(), func(context.Context) {
		ran.Store(true)
	})
	q.Drain()

	assert.True(t, ran.Load())
}

func TestQueue_RespectsConcurrencyCeiling(t *testing.T) {
	q := New(2)
	var current, max atomic.Int32

	observe := func(context.Context) {
		n := current.Add(1)
		for {
			old := max.Load()
			if n <= old || max.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
	}

	for i := 0; i < 10; i++ {
		q.Submit(context.Background(), observe)
	}
	q.Drain()

	assert.LessOrEqual(t, int(max.Load()), 2)
}

func TestQueue_New_ClampsToOne(t *testing.T) {
	q := New(0)
	var count atomic.Int32

	for i := 0; i < 3; i++ {
		q.Submit(context.Background(), func(context.Context) {
			count.Add(1)
		})
	}
	q.Drain()

	assert.Equal(t, int32(3), count.Load())
}

func TestQueue_SubmitHonorsCancellation(t *testing.T) {
	q := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Bool
	q.Submit(ctx, func(context.Context) {
		ran.Store(true)
	})
	q.Drain()

	assert.False(t, ran.Load(), "a pre-cancelled context should never acquire a slot")
}

func TestQueue_Resize(t *testing.T) {
	q := New(1)
	q.Resize(4)

	var count atomic.Int32
	for i := 0; i < 4; i++ {
		q.Submit(context.Background(), func(context.Context) {
			count.Add(1)
		})
	}
	q.Drain()

	assert.Equal(t, int32(4), count.Load())
}
