package sched

import "sync/atomic"

// Tier classifies a tracked task's scheduling priority.
// Lower numeric values are higher priority; the values double as the
// offset from TargetCriticalQueue when selecting a dispatch queue.
type Tier int32

const (
	TierCritical Tier = iota
	TierInteractive
	TierNormal
)

func (t Tier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierInteractive:
		return "interactive"
	case TierNormal:
		return "normal"
	}
	return "unknown"
}

// QueueID identifies a global dispatch queue.
type QueueID int32

const (
	// NormalTaskQueue holds every untracked task, and tracked tasks
	// whose context could not be materialized.
	NormalTaskQueue QueueID = 200 + iota
	TargetCriticalQueue
	TargetInteractiveQueue
	TargetNormalQueue
)

// NumQueues is the number of dispatch queues Init creates. Every queue
// created is drained; there is no reserved spare.
const NumQueues = 4

// NormalTaskSlice is the fixed time slice (ns) for untracked tasks.
const NormalTaskSlice uint64 = 100_000

// TargetConfig is the control-plane-supplied scheduling configuration
// for one tracked task. It is written once, before or at the task's
// first observation, and read-only from the policy's perspective.
type TargetConfig struct {
	Tier                 Tier
	SliceNs              uint64
	PreferEfficiencyCore bool
}

// TaskContext is the per-task attached copy of a TargetConfig. It is
// materialized lazily on first observation and never refreshed, so
// later control-plane updates do not affect an already-observed task.
type TaskContext struct {
	Tier                 Tier
	SliceNs              uint64
	PreferEfficiencyCore bool
}

// CPUMask is a bitmask of allowed CPUs. CPU ids above 63 are not
// representable; the simulated hosts stay well below that.
type CPUMask uint64

// MaskAll allows every CPU.
func MaskAll() CPUMask { return ^CPUMask(0) }

// MaskOf builds a mask allowing exactly the given CPUs.
func MaskOf(cpus ...int32) CPUMask {
	var m CPUMask
	for _, c := range cpus {
		m |= 1 << uint(c)
	}
	return m
}

// Has reports whether cpu is in the mask.
func (m CPUMask) Has(cpu int32) bool {
	if cpu < 0 || cpu > 63 {
		return false
	}
	return m&(1<<uint(cpu)) != 0
}

// Task is the policy's view of a runnable entity. The host framework
// owns the record; the policy attaches a TaskContext to it and flags
// queue membership. Per-task hook invocations are serialized by the
// host framework, so storage is written by at most one handler at a
// time; the queued flag is atomic because any CPU may drain a queue.
type Task struct {
	TID         int32
	TGID        int32
	AllowedCPUs CPUMask

	storage *taskStorage
	queued  atomic.Bool
}

// taskStorage is the attached-storage slot owned by the task. A slot
// may exist unpopulated: allocation succeeded but no TargetConfig was
// registered at the time, and per the one-lookup-ever contract it is
// never retried.
type taskStorage struct {
	ctx       TaskContext
	populated bool
}

// Queued reports whether the task currently sits in a dispatch queue.
func (t *Task) Queued() bool { return t.queued.Load() }

// Context returns the materialized TaskContext, or nil if none has
// been (successfully) materialized.
func (t *Task) Context() *TaskContext {
	if t.storage == nil || !t.storage.populated {
		return nil
	}
	return &t.storage.ctx
}
