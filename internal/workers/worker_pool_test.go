package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coinpath-labs/paymentd/internal/utils"
)

func TestWorkerPoolExecutesTasks(t *testing.T) {
	cm := utils.NewConfigManager("")
	pool := NewWorkerPool(context.Background(), 3, cm)
	pool.Start()
	defer pool.Stop()

	if pool.GetActiveWorkers() != 3 {
		t.Errorf("Expected 3 workers, got %d", pool.GetActiveWorkers())
	}

	var counter atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}); err != nil {
			t.Fatalf("Failed to submit task: %v", err)
		}
	}
	wg.Wait()

	if counter.Load() != 20 {
		t.Errorf("Expected 20 executed tasks, got %d", counter.Load())
	}
}

func TestWorkerPoolSurvivesPanickingTask(t *testing.T) {
	cm := utils.NewConfigManager("")
	pool := NewWorkerPool(context.Background(), 1, cm)
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	if err := pool.Submit(func() {
		defer wg.Done()
		panic("task blew up")
	}); err != nil {
		t.Fatalf("Failed to submit panicking task: %v", err)
	}
	wg.Wait()

	// The single worker must still be alive to run this.
	done := make(chan struct{})
	if err := pool.Submit(func() { close(done) }); err != nil {
		t.Fatalf("Failed to submit follow-up task: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Worker did not recover from panicking task")
	}
}

func TestWorkerPoolRejectsSubmitAfterStop(t *testing.T) {
	cm := utils.NewConfigManager("")
	pool := NewWorkerPool(context.Background(), 2, cm)
	pool.Start()
	pool.Stop()

	if err := pool.Submit(func() {}); err == nil {
		t.Fatal("Expected submit to fail after stop")
	}
}

func TestWorkerPoolSizeFromConfig(t *testing.T) {
	cm := utils.NewConfigManager("")
	cm.SetConfig("worker_count", 7)

	pool := NewWorkerPool(context.Background(), 0, cm)
	defer pool.Stop()

	if pool.GetActiveWorkers() != 7 {
		t.Errorf("Expected 7 workers from config, got %d", pool.GetActiveWorkers())
	}
}
