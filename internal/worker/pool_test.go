package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	defer pool.Stop()

	var ran int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		pool.Submit(func(context.Context) {
			atomic.AddInt32(&ran, 1)
			wg.Done()
		})
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Tasks did not finish in time")
	}
	if got := atomic.LoadInt32(&ran); got != 10 {
		t.Errorf("Expected 10 tasks, ran %d", got)
	}
}

func TestPoolStopDropsLateSubmissions(t *testing.T) {
	pool := NewPool(1)
	pool.Start()
	pool.Stop()

	// Submitting after Stop must not block or panic.
	pool.Submit(func(context.Context) {
		t.Error("Task ran after stop")
	})
	time.Sleep(50 * time.Millisecond)
}

func TestPoolContextEndsOnStop(t *testing.T) {
	pool := NewPool(1)
	pool.Start()
	ctx := pool.Context()
	pool.Stop()
	select {
	case <-ctx.Done():
	default:
		t.Error("Pool context should end on Stop")
	}
}
