// Package hostsim is a deterministic, event-driven rendition of the
// host scheduling framework: a fixed set of CPUs, synthetic tasks
// alternating run bursts and sleeps, and the glue that invokes the
// policy hooks and tracer notifications the way the real framework
// would. It exists to exercise the policy and tracer end to end; it is
// not a kernel model.
package hostsim

import (
	"container/heap"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/teddy-scx/teddy/sched"
	"github.com/teddy-scx/teddy/sched/tracer"
)

// Config sets the simulated host's shape.
type Config struct {
	CPUs      int
	HorizonNs uint64
	Seed      int64
	// MaxQueues caps CreateQueue allocations; zero means unlimited.
	// Used to exercise init-failure behavior.
	MaxQueues int
}

// Metrics aggregates counters for final reporting.
type Metrics struct {
	Switches        uint64
	LocalDispatches uint64
	Wakeups         uint64
	TaskRuntimeNs   map[int32]uint64
}

// Host simulates the host scheduling framework. Without an attached
// policy it falls back to a single built-in FIFO, which is exactly the
// behavior when policy attachment fails.
type Host struct {
	cfg    Config
	clock  uint64
	events EventQueue
	cpus   []*cpuState

	tasks  map[int32]*simTask
	byTask map[*sched.Task]*simTask

	queues map[sched.QueueID]*sched.DispatchQueue
	policy *sched.Scheduler
	tracer *tracer.Tracer

	defaultQ []*simTask // built-in FIFO when no policy is attached

	currentCPU int32
	rng        *rand.Rand
	metrics    Metrics
	exit       *sched.ExitInfo
}

// New creates a simulated host.
func New(cfg Config) *Host {
	if cfg.CPUs <= 0 {
		cfg.CPUs = 1
	}
	h := &Host{
		cfg:    cfg,
		events: make(EventQueue, 0),
		tasks:  make(map[int32]*simTask),
		byTask: make(map[*sched.Task]*simTask),
		queues: make(map[sched.QueueID]*sched.DispatchQueue),
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		metrics: Metrics{
			TaskRuntimeNs: make(map[int32]uint64),
		},
	}
	for i := 0; i < cfg.CPUs; i++ {
		h.cpus = append(h.cpus, &cpuState{id: int32(i)})
	}
	return h
}

// AttachPolicy initializes and installs the scheduling policy. If Init
// fails no policy is attached and the built-in FIFO stays in effect
// system-wide; there is no partial attachment state.
func (h *Host) AttachPolicy(s *sched.Scheduler) error {
	if err := s.Init(); err != nil {
		return fmt.Errorf("attach policy: %w", err)
	}
	h.policy = s
	return nil
}

// AttachTracer installs the runtime/sleep tracer.
func (h *Host) AttachTracer(tr *tracer.Tracer) { h.tracer = tr }

// AddTask registers a synthetic task and schedules its first wakeup.
func (h *Host) AddTask(spec TaskSpec) error {
	if err := spec.validate(); err != nil {
		return err
	}
	if _, exists := h.tasks[spec.TID]; exists {
		return fmt.Errorf("task %d already added", spec.TID)
	}
	if spec.AllowedCPUs == 0 {
		spec.AllowedCPUs = sched.MaskAll()
	}
	st := &simTask{
		task: sched.Task{
			TID:         spec.TID,
			TGID:        spec.TGID,
			AllowedCPUs: spec.AllowedCPUs,
		},
		spec: spec,
	}
	h.tasks[spec.TID] = st
	h.byTask[&st.task] = st
	h.schedule(&wakeEvent{time: spec.StartNs, st: st})
	return nil
}

func (h *Host) schedule(ev Event) {
	heap.Push(&h.events, ev)
}

// Run drives the event loop until the horizon or until no events
// remain, then tears the policy down.
func (h *Host) Run() {
	for len(h.events) > 0 {
		ev := heap.Pop(&h.events).(Event)
		if ev.Timestamp() > h.cfg.HorizonNs {
			break
		}
		h.clock = ev.Timestamp()
		logrus.Debugf("[%9dns] executing %T", h.clock, ev)
		ev.Execute(h)
	}
	if h.policy != nil {
		h.policy.Teardown(sched.ExitInfo{Reason: "horizon reached"})
	}
	logrus.Infof("[%9dns] simulation ended", h.clock)
}

// Metrics returns the aggregated counters.
func (h *Host) Metrics() Metrics { return h.metrics }

// Exit returns the exit info the policy reported, if any.
func (h *Host) Exit() *sched.ExitInfo { return h.exit }

// Clock returns the current simulated time.
func (h *Host) Clock() uint64 { return h.clock }

// === sched.Host implementation ===

// CreateQueue allocates a global dispatch queue. Fails on duplicate
// ids and when the configured queue budget is exhausted.
func (h *Host) CreateQueue(id sched.QueueID) (*sched.DispatchQueue, error) {
	if _, exists := h.queues[id]; exists {
		return nil, fmt.Errorf("queue %d already exists", id)
	}
	if h.cfg.MaxQueues > 0 && len(h.queues) >= h.cfg.MaxQueues {
		return nil, fmt.Errorf("queue %d: allocation budget exhausted", id)
	}
	q := sched.NewDispatchQueue(id)
	h.queues[id] = q
	return q, nil
}

// SelectIdleCPU prefers the previous CPU, then scans ascending for any
// idle CPU in the task's allowed set.
func (h *Host) SelectIdleCPU(t *sched.Task, prevCPU int32, flags sched.WakeFlags) (int32, bool) {
	if prevCPU >= 0 && int(prevCPU) < len(h.cpus) &&
		t.AllowedCPUs.Has(prevCPU) && h.cpus[prevCPU].idle() {
		return prevCPU, true
	}
	for _, c := range h.cpus {
		if t.AllowedCPUs.Has(c.id) && c.idle() {
			return c.id, true
		}
	}
	return prevCPU, false
}

// DispatchLocal places the task on the CPU's local run path.
func (h *Host) DispatchLocal(cpu int32, t *sched.Task, slice uint64) {
	st := h.byTask[t]
	st.placedLocal = true
	h.cpus[cpu].local = append(h.cpus[cpu].local, localEntry{st: st, slice: slice})
	h.metrics.LocalDispatches++
}

// CurrentCPU returns the CPU the current event handler runs on.
func (h *Host) CurrentCPU() int32 { return h.currentCPU }

// Now returns the simulated monotonic clock.
func (h *Host) Now() uint64 { return h.clock }

// ReportExit records the policy's exit status.
func (h *Host) ReportExit(info sched.ExitInfo) { h.exit = &info }

// === event processing ===

// wake makes a task runnable: tracer notification, CPU selection, and
// enqueue if CPU selection did not already place the task.
func (h *Host) wake(st *simTask) {
	// The waker runs on some CPU; pick one deterministically. For
	// synchronous wakeups this is the CPU the sync fast path targets.
	h.currentCPU = int32(h.rng.Intn(len(h.cpus)))
	h.metrics.Wakeups++

	if h.tracer != nil {
		h.tracer.Wakeup(st.task.TID, st.task.TGID, h.clock)
	}

	st.remaining = st.spec.RunBurstNs
	st.placedLocal = false

	if h.policy == nil {
		h.defaultQ = append(h.defaultQ, st)
		h.kickAll()
		return
	}

	var flags sched.WakeFlags
	if st.spec.SyncWakeup {
		flags |= sched.WakeSync
	}
	h.policy.SelectCPU(&st.task, st.prevCPU, flags)
	// A task placed by SelectCPU (queued or dispatched locally) skips
	// the enqueue hook, matching the framework's direct-dispatch rule.
	if !st.task.Queued() && !st.placedLocal {
		h.policy.Enqueue(&st.task, sched.EnqWakeup)
	}
	h.kickAll()
}

// switchOut ends the current stint on a CPU: tracer notification, then
// either a sleep (burst finished) or a requeue (slice expired).
func (h *Host) switchOut(c *cpuState) {
	r := c.current
	c.current = nil
	st := r.st
	st.remaining -= r.ran
	h.metrics.TaskRuntimeNs[st.task.TID] += r.ran

	voluntary := st.remaining == 0
	h.currentCPU = c.id
	if h.tracer != nil {
		h.tracer.SwitchOut(st.task.TID, st.task.TGID, voluntary, h.clock)
	}

	if voluntary {
		if st.spec.SleepNs > 0 {
			h.schedule(&wakeEvent{time: h.clock + st.spec.SleepNs, st: st})
		}
	} else if h.policy != nil {
		h.policy.Enqueue(&st.task, 0)
	} else {
		h.defaultQ = append(h.defaultQ, st)
	}

	h.kickAll()
}

// kickAll gives every idle CPU a chance to pull work. The loop is
// bounded by the CPU count.
func (h *Host) kickAll() {
	for _, c := range h.cpus {
		h.kick(c)
	}
}

// kick lets one CPU pull work: local run path first, then the policy's
// dispatch hook (or the built-in FIFO without a policy).
func (h *Host) kick(c *cpuState) {
	if c.current != nil {
		return
	}
	if len(c.local) == 0 {
		if h.policy != nil {
			h.currentCPU = c.id
			h.policy.Dispatch(c.id, nil)
		} else if len(h.defaultQ) > 0 {
			st := h.defaultQ[0]
			h.defaultQ = h.defaultQ[1:]
			c.local = append(c.local, localEntry{st: st, slice: sched.NormalTaskSlice})
		}
	}
	if len(c.local) == 0 {
		return
	}
	entry := c.local[0]
	c.local = c.local[1:]
	h.start(c, entry.st, entry.slice)
}

// start begins a stint of the task on the CPU, bounded by its slice.
func (h *Host) start(c *cpuState, st *simTask, slice uint64) {
	if h.tracer != nil {
		h.tracer.SwitchIn(st.task.TID, st.task.TGID, h.clock)
	}
	run := min(slice, st.remaining)
	if run == 0 {
		// A zero slice would spin the event loop in place.
		run = 1
	}
	c.current = &running{st: st, ran: run}
	st.prevCPU = c.id
	h.metrics.Switches++
	h.schedule(&switchEvent{time: h.clock + run, cpu: c})
}
