package sched

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Scheduler implements the hook callbacks the host framework invokes
// on task lifecycle events. Construct with NewScheduler, then call
// Init before the first hook fires; if Init fails the policy must not
// be attached and the host's default scheduling stays in effect.
type Scheduler struct {
	host   Host
	filter *TargetFilter
	store  *ContextStore

	queues map[QueueID]*DispatchQueue
	// drain holds the queues in strict drain-priority order:
	// TargetCritical, TargetInteractive, TargetNormal, NormalTask.
	drain [NumQueues]*DispatchQueue
}

// NewScheduler wires a policy to its host, target filter, and config
// table. The scheduler supports only the single-target fast path, so
// filters built with membership sets fail closed here.
func NewScheduler(host Host, filter *TargetFilter, table *ConfigTable) *Scheduler {
	return &Scheduler{
		host:   host,
		filter: filter,
		store:  NewContextStore(table, DefaultContextStoreCapacity),
	}
}

// Init creates the four dispatch queues. It is the only hook allowed
// to block. Any failure aborts attachment; no partial state survives.
func (s *Scheduler) Init() error {
	s.queues = make(map[QueueID]*DispatchQueue, NumQueues)
	for _, id := range []QueueID{
		NormalTaskQueue,
		TargetCriticalQueue,
		TargetInteractiveQueue,
		TargetNormalQueue,
	} {
		q, err := s.host.CreateQueue(id)
		if err != nil {
			s.queues = nil
			return fmt.Errorf("create dispatch queue %d: %w", id, err)
		}
		s.queues[id] = q
	}
	s.drain = [NumQueues]*DispatchQueue{
		s.queues[TargetCriticalQueue],
		s.queues[TargetInteractiveQueue],
		s.queues[TargetNormalQueue],
		s.queues[NormalTaskQueue],
	}
	logrus.Infof("scheduler initialized: %d dispatch queues, mode=%s", NumQueues, s.filter.Mode())
	return nil
}

// SelectCPU is invoked once per wakeup, before the task becomes
// runnable. The returned CPU is a hint; if the task was not placed
// here, the enqueue path finalizes placement.
func (s *Scheduler) SelectCPU(t *Task, prevCPU int32, flags WakeFlags) int32 {
	if !s.filter.Matches(t.TID, t.TGID) {
		s.queues[NormalTaskQueue].Insert(t, NormalTaskSlice)
		return prevCPU
	}

	// Synchronous wakeup: the waker is about to block, try to run the
	// wakee right here on the waker's CPU.
	if flags&WakeSync != 0 {
		if cpu, ok := s.dispatchSync(t); ok {
			return cpu
		}
	}

	cpu, idle := s.host.SelectIdleCPU(t, prevCPU, flags)
	if idle {
		ctx, ok := s.store.GetOrCreate(t)
		if !ok {
			// Hint only; the task is queued at enqueue time.
			return prevCPU
		}
		s.host.DispatchLocal(cpu, t, ctx.SliceNs)
		return cpu
	}

	return prevCPU
}

// dispatchSync places the task on the current CPU's local run path if
// that CPU is within the task's allowed set.
func (s *Scheduler) dispatchSync(t *Task) (int32, bool) {
	cpu := s.host.CurrentCPU()
	if !t.AllowedCPUs.Has(cpu) {
		return -1, false
	}
	ctx, ok := s.store.GetOrCreate(t)
	if !ok {
		return -1, false
	}
	s.host.DispatchLocal(cpu, t, ctx.SliceNs)
	return cpu, true
}

// Enqueue is invoked when a task becomes runnable and was not already
// placed by SelectCPU.
func (s *Scheduler) Enqueue(t *Task, flags EnqFlags) {
	if !s.filter.Matches(t.TID, t.TGID) {
		s.queues[NormalTaskQueue].Insert(t, NormalTaskSlice)
		return
	}
	ctx, ok := s.store.GetOrCreate(t)
	if !ok {
		// A runnable task must land in some queue. Without a context
		// the tiered queues have no slice to use, so fall back to the
		// untracked queue rather than dropping the task.
		logrus.Warnf("enqueue: no context for tracked task %d, falling back to normal queue", t.TID)
		s.queues[NormalTaskQueue].Insert(t, NormalTaskSlice)
		return
	}
	if flags&EnqWakeup != 0 && ctx.Tier != TierNormal {
		s.preemptLowerTier(t, ctx)
	}
	s.queueForTier(ctx.Tier).Insert(t, ctx.SliceNs)
}

// preemptLowerTier is the seam for kicking a CPU that is running an
// untracked or lower-tier task when a higher-tier task wakes up.
// Intentionally unimplemented.
func (s *Scheduler) preemptLowerTier(t *Task, ctx *TaskContext) {
}

// queueForTier maps a tier to its dispatch queue.
func (s *Scheduler) queueForTier(tier Tier) *DispatchQueue {
	return s.queues[TargetCriticalQueue+QueueID(tier)]
}

// Dispatch is invoked when a CPU has no runnable work. Queues are
// tried in strict priority order, stopping at the first non-empty one.
// Sustained critical-tier load can starve lower tiers indefinitely;
// that is the intended trade-off, not weighted fairness.
func (s *Scheduler) Dispatch(cpu int32, prev *Task) {
	for _, q := range s.drain {
		if t, slice, ok := q.Pop(); ok {
			s.host.DispatchLocal(cpu, t, slice)
			return
		}
	}
}

// Tick fires periodically on every running task. A seam for mid-slice
// accounting; intentionally unimplemented.
func (s *Scheduler) Tick(t *Task) {
}

// Teardown reports exit status back to the host framework.
func (s *Scheduler) Teardown(info ExitInfo) {
	logrus.Infof("scheduler exiting: code=%d reason=%q", info.Code, info.Reason)
	s.host.ReportExit(info)
}

// Queue exposes a dispatch queue by id, for the host and for tests.
// Returns nil before Init or for unknown ids.
func (s *Scheduler) Queue(id QueueID) *DispatchQueue {
	return s.queues[id]
}

// Store exposes the context store. The host framework calls
// Store().Release when a task is destroyed.
func (s *Scheduler) Store() *ContextStore { return s.store }
