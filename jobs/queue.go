package jobs

import (
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// TaskFunc is one unit of queued work. A non-nil error marks the attempt as
// failed and triggers the queue's retry policy.
type TaskFunc func() error

type queuedTask struct {
	taskType  string
	uniqueKey string
	run       TaskFunc
}

// TaskQueue runs enqueued tasks on a fixed pool of workers. Tasks are
// deduplicated by unique key: while a task for a key is pending or in
// flight, enqueueing the same key again is a no-op. Failed tasks are
// retried with exponential backoff before the key is released.
type TaskQueue struct {
	mu         sync.Mutex
	inFlight   map[string]struct{}
	tasks      chan queuedTask
	wg         sync.WaitGroup
	stopped    bool
	maxRetries uint64
}

func NewTaskQueue(workers int, queueSize int, maxRetries uint64) *TaskQueue {
	q := &TaskQueue{
		inFlight:   make(map[string]struct{}),
		tasks:      make(chan queuedTask, queueSize),
		maxRetries: maxRetries,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue adds a task keyed by uniqueKey. Returns false if a task with the
// same key is already pending or in flight, or if the queue is stopped or
// full.
func (q *TaskQueue) Enqueue(taskType string, uniqueKey string, run TaskFunc) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return false
	}
	if _, ok := q.inFlight[uniqueKey]; ok {
		return false
	}
	select {
	case q.tasks <- queuedTask{taskType: taskType, uniqueKey: uniqueKey, run: run}:
		q.inFlight[uniqueKey] = struct{}{}
		return true
	default:
		log.Printf("task queue full, dropping task %q key %q", taskType, uniqueKey)
		return false
	}
}

// Stop prevents further enqueues, drains queued tasks and waits for the
// workers to finish.
func (q *TaskQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()
	close(q.tasks)
	q.wg.Wait()
}

func (q *TaskQueue) release(uniqueKey string) {
	q.mu.Lock()
	delete(q.inFlight, uniqueKey)
	q.mu.Unlock()
}

func (q *TaskQueue) worker() {
	defer q.wg.Done()
	for task := range q.tasks {
		q.runTask(task)
	}
}

func (q *TaskQueue) runTask(task queuedTask) {
	defer q.release(task.uniqueKey)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Task %q key %q panicked: %v \n stacktrace: %v", task.taskType, task.uniqueKey, r, string(debug.Stack()))
		}
	}()
	start := time.Now()
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), q.maxRetries)
	err := backoff.Retry(func() error {
		return task.run()
	}, policy)
	duration := time.Since(start)
	if err != nil {
		log.Printf("Task %q key %q failed after %v ms: %v", task.taskType, task.uniqueKey, duration.Milliseconds(), err)
	} else {
		log.Printf("Task %q key %q completed after %v ms", task.taskType, task.uniqueKey, duration.Milliseconds())
	}
}
