package session

import "sync"

type task struct {
	name string
	fn   func()
}

// TaskQueue is a strict FIFO of named deferred callbacks. The session uses it
// to park follow-up work behind an in-flight network round trip so the work
// can never execute before the response it depends on has arrived.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []task
}

// NewTaskQueue returns an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Enqueue appends a named task.
func (tq *TaskQueue) Enqueue(name string, fn func()) {
	if fn == nil {
		return
	}
	tq.mu.Lock()
	defer tq.mu.Unlock()
	tq.tasks = append(tq.tasks, task{name: name, fn: fn})
}

// Run pops and invokes the head task. A run on an empty queue is a no-op.
func (tq *TaskQueue) Run() {
	tq.mu.Lock()
	if len(tq.tasks) == 0 {
		tq.mu.Unlock()
		return
	}
	head := tq.tasks[0]
	tq.tasks = tq.tasks[1:]
	tq.mu.Unlock()

	head.fn()
}

// RunNamed finds, removes, and invokes the first queued task with the given
// name, leaving the rest of the queue untouched.
func (tq *TaskQueue) RunNamed(name string) {
	tq.mu.Lock()
	var found *task
	for i, t := range tq.tasks {
		if t.name == name {
			found = &t
			tq.tasks = append(tq.tasks[:i], tq.tasks[i+1:]...)
			break
		}
	}
	tq.mu.Unlock()

	if found != nil {
		found.fn()
	}
}

// Clear removes queued-but-not-yet-run tasks without invoking them. With no
// arguments it empties the queue; with names it removes only matching tasks.
func (tq *TaskQueue) Clear(names ...string) {
	tq.mu.Lock()
	defer tq.mu.Unlock()

	if len(names) == 0 {
		tq.tasks = nil
		return
	}
	keep := tq.tasks[:0]
	for _, t := range tq.tasks {
		if !containsName(names, t.name) {
			keep = append(keep, t)
		}
	}
	tq.tasks = keep
}

// Len reports the number of queued tasks.
func (tq *TaskQueue) Len() int {
	tq.mu.Lock()
	defer tq.mu.Unlock()
	return len(tq.tasks)
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
