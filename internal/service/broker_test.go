package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instaweb/internal/core/domain"
)

func TestBroker_CoalescesSignals(t *testing.T) {
	b := newBroker()
	ch, unsubscribe := b.subscribe("job1")

	b.publish("job1")
	b.publish("job1")
	b.publish("job2")

	select {
	case <-ch:
	default:
		t.Fatal("expected a signal")
	}
	select {
	case <-ch:
		t.Fatal("signals should coalesce")
	default:
	}

	assert.Equal(t, 1, b.subscribers("job1"))
	unsubscribe()
	assert.Zero(t, b.subscribers("job1"))
	assert.Empty(t, b.subs)
}

func TestBroker_NoReplay(t *testing.T) {
	b := newBroker()
	b.publish("job1")

	ch, unsubscribe := b.subscribe("job1")
	defer unsubscribe()

	select {
	case <-ch:
		t.Fatal("late subscriber must not see earlier signals")
	default:
	}
}

func TestPool_EnqueueNeverBlocks(t *testing.T) {
	p := newPool(1, 2, func(context.Context, task) {})

	require.NoError(t, p.enqueue(task{jobID: "a"}))
	require.NoError(t, p.enqueue(task{jobID: "b"}))
	assert.ErrorIs(t, p.enqueue(task{jobID: "c"}), domain.ErrQueueFull)
}

func TestPool_RunsAndStops(t *testing.T) {
	var ran atomic.Int32
	p := newPool(2, 10, func(context.Context, task) { ran.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	p.start(ctx)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.enqueue(task{jobID: "x"}))
	}

	require.Eventually(t, func() bool { return ran.Load() == 5 }, time.Second, 5*time.Millisecond)
	cancel()
	p.wait()
}
