package sched

// WakeFlags qualify a task wakeup.
type WakeFlags uint64

const (
	// WakeSync marks a synchronous wakeup: the waker is about to
	// block, so low-latency placement of the woken task pays off.
	WakeSync WakeFlags = 1 << 0
)

// EnqFlags qualify an enqueue.
type EnqFlags uint64

const (
	// EnqWakeup marks an enqueue caused by a wakeup (as opposed to a
	// requeue after slice expiry).
	EnqWakeup EnqFlags = 1 << 0
)

// ExitInfo describes why the policy is being detached.
type ExitInfo struct {
	Code   int32
	Reason string
}

// Host is the surface of the host scheduling framework the policy
// calls into. Implementations must make CreateQueue safe to block
// (Init is the only sleepable hook) and everything else non-blocking.
type Host interface {
	// CreateQueue allocates the global dispatch queue with the given
	// id. Failure is fatal to attachment.
	CreateQueue(id QueueID) (*DispatchQueue, error)

	// SelectIdleCPU runs the framework's default idle-CPU selection
	// among the task's allowed set. idle is false when no idle CPU was
	// found, in which case cpu is only a hint.
	SelectIdleCPU(t *Task, prevCPU int32, flags WakeFlags) (cpu int32, idle bool)

	// DispatchLocal places the task directly on the given CPU's local
	// run path with the given slice, bypassing the global queues.
	DispatchLocal(cpu int32, t *Task, slice uint64)

	// CurrentCPU returns the CPU the current event handler runs on.
	CurrentCPU() int32

	// Now returns monotonic time in nanoseconds.
	Now() uint64

	// ReportExit hands the exit status back to the framework during
	// teardown.
	ReportExit(info ExitInfo)
}
