// Implements the global dispatch queues: multi-producer/multi-consumer
// FIFOs of runnable tasks, each entry carrying the time slice the task
// was inserted with.

package sched

import (
	"fmt"
	"sync"
)

// queuedTask pairs a task with the slice it was enqueued with.
type queuedTask struct {
	task  *Task
	slice uint64
}

// DispatchQueue is a globally visible FIFO of runnable tasks. Any CPU
// may insert and any CPU may pop; insertion is exclusive, so a task is
// never observably present in two queues at once.
type DispatchQueue struct {
	id    QueueID
	mu    sync.Mutex
	items []queuedTask
}

// NewDispatchQueue creates an empty queue. Host framework
// implementations call this from CreateQueue.
func NewDispatchQueue(id QueueID) *DispatchQueue {
	return &DispatchQueue{id: id}
}

// ID returns the queue's identifier.
func (q *DispatchQueue) ID() QueueID { return q.id }

// Insert appends the task with the given slice. Inserting a task that
// already sits in a queue is a host-framework contract violation.
func (q *DispatchQueue) Insert(t *Task, slice uint64) {
	if !t.queued.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("Insert: task %d already queued", t.TID))
	}
	q.mu.Lock()
	q.items = append(q.items, queuedTask{task: t, slice: slice})
	q.mu.Unlock()
}

// Pop removes and returns the task at the front of the queue together
// with its slice. The queued flag is cleared only after the entry has
// left the queue, making the hand-off to the consuming CPU atomic.
func (q *DispatchQueue) Pop() (*Task, uint64, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil, 0, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()
	head.task.queued.Store(false)
	return head.task, head.slice, true
}

// Len returns the number of queued tasks.
func (q *DispatchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
