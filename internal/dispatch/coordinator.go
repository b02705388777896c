package dispatch

import (
	"context"
	"sync"

	"github.com/vk/maprgate/internal/ctxlog"
	"github.com/vk/maprgate/internal/task"
)

// Coordinator executes an ordered sequence of tasks through the dispatch
// path and aggregates the outcomes into one ordered list. Index i of the
// output always corresponds to index i of the input, regardless of which
// individual tasks failed or in what order their handlers completed.
type Coordinator struct {
	dispatcher *Dispatcher
	workers    int
}

// NewCoordinator creates a Coordinator running at most workers tasks
// concurrently. A worker count below 2 gives strictly sequential,
// input-order execution.
func NewCoordinator(d *Dispatcher, workers int) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{dispatcher: d, workers: workers}
}

// indexedTask pins a task to its position in the input sequence so that
// concurrent completion cannot reorder the result.
type indexedTask struct {
	index int
	t     task.Task
}

// Run dispatches every task and returns exactly len(tasks) outcomes in input
// order. One task's failure never aborts the batch; each outcome slot is
// written by exactly one worker, so workers share no mutable state.
func (c *Coordinator) Run(ctx context.Context, tasks []task.Task) []task.Outcome {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Coordinator starting batch.", "task_count", len(tasks), "workers", c.workers)

	outcomes := make([]task.Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	if c.workers == 1 {
		for i, t := range tasks {
			outcomes[i] = c.dispatcher.Dispatch(ctx, t)
		}
		logger.Debug("Coordinator finished batch.", "task_count", len(tasks))
		return outcomes
	}

	readyChan := make(chan indexedTask)
	var wg sync.WaitGroup
	wg.Add(len(tasks))

	workers := c.workers
	if workers > len(tasks) {
		workers = len(tasks)
	}
	for workerID := 0; workerID < workers; workerID++ {
		go c.worker(ctx, readyChan, outcomes, &wg, workerID)
	}

	for i, t := range tasks {
		readyChan <- indexedTask{index: i, t: t}
	}
	close(readyChan)
	wg.Wait()

	logger.Debug("Coordinator finished batch.", "task_count", len(tasks))
	return outcomes
}

// worker is the processing loop for a single concurrent worker.
func (c *Coordinator) worker(ctx context.Context, readyChan chan indexedTask, outcomes []task.Outcome, wg *sync.WaitGroup, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for it := range readyChan {
		outcomes[it.index] = c.dispatcher.Dispatch(ctx, it.t)
		wg.Done()
	}

	logger.Debug("Worker finished.", "workerID", workerID)
}
