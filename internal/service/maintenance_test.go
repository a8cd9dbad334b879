package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeUpdater struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeUpdater) Update(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeUpdater) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestEngineMaintainer_UpdateOnce(t *testing.T) {
	u := &fakeUpdater{}
	m := NewEngineMaintainer(u, time.Hour, nil)

	assert.NoError(t, m.UpdateOnce(context.Background()))

	u.err = errors.New("network unreachable")
	assert.EqualError(t, m.UpdateOnce(context.Background()), "network unreachable")
	assert.Equal(t, 2, u.count())
}

func TestEngineMaintainer_RunUpdatesImmediately(t *testing.T) {
	u := &fakeUpdater{}
	m := NewEngineMaintainer(u, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return u.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintainer did not stop")
	}
	assert.Equal(t, 1, u.count())
}
