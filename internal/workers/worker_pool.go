package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/coinpath-labs/paymentd/internal/utils"
)

// WorkerPool runs queued tasks on a fixed set of workers. The CLI uses
// it to fetch batches of payment requests concurrently.
type WorkerPool struct {
	ctx        context.Context
	cancel     context.CancelFunc
	numWorkers int
	workerChan chan func()
	wg         sync.WaitGroup
	logger     *utils.LogsManager
	cm         *utils.ConfigManager
}

// NewWorkerPool creates a worker pool. A non-positive numWorkers falls
// back to the worker_count config value.
func NewWorkerPool(ctx context.Context, numWorkers int, cm *utils.ConfigManager) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = cm.GetConfigInt("worker_count", 4, 1, 64)
	}
	poolCtx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		ctx:        poolCtx,
		cancel:     cancel,
		numWorkers: numWorkers,
		workerChan: make(chan func(), numWorkers),
		logger:     utils.NewLogsManager(cm),
		cm:         cm,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	wp.logger.Info(fmt.Sprintf("Starting worker pool with %d workers", wp.numWorkers), "workers")

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)

		go func(id int) {
			defer wp.wg.Done()

			for {
				select {
				case task := <-wp.workerChan:
					wp.runTask(id, task)

				case <-wp.ctx.Done():
					wp.logger.Debug(fmt.Sprintf("Worker %d stopping", id), "workers")
					return
				}
			}
		}(i)
	}
}

// runTask executes one task, containing any panic so the worker keeps
// serving the queue.
func (wp *WorkerPool) runTask(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error(fmt.Sprintf("Worker %d recovered from task panic: %v", id, r), "workers")
		}
	}()
	task()
}

// Submit queues a task for execution. Submissions racing a shutdown
// may land in the queue without ever running.
func (wp *WorkerPool) Submit(task func()) error {
	select {
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	default:
	}

	select {
	case wp.workerChan <- task:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Stop cancels the pool and waits for the workers to drain.
func (wp *WorkerPool) Stop() {
	wp.logger.Info("Stopping worker pool", "workers")
	wp.cancel()
	wp.wg.Wait()

	wp.logger.Info("Worker pool stopped", "workers")
	wp.logger.Close()
}

// GetActiveWorkers returns the number of workers in the pool.
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}
