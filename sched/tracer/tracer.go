package tracer

import (
	"sync"

	"github.com/teddy-scx/teddy/sched"
	"github.com/teddy-scx/teddy/sched/ring"
)

// LongRunThreshold is the accumulated runtime at which a record is
// emitted for a task that keeps getting switched out while runnable.
const LongRunThreshold uint64 = 1_000_000_000

// DefaultStateCapacity bounds the number of concurrently traced tasks.
const DefaultStateCapacity = 10240

// TraceState is the per-task accumulator. RuntimeNs is monotonically
// non-decreasing between emissions; a successful emission resets
// RuntimeNs and SleepEnd, leaving SleepStart to be overwritten by the
// sleep that triggered it.
type TraceState struct {
	RuntimeNs    uint64
	StartRunning uint64
	SleepStart   uint64
	SleepEnd     uint64
}

// Tracer intercepts context-switch and wakeup notifications for tasks
// matched by its target filter and streams EventRecords into a ring
// buffer. Emission lags one sleep cycle behind: each record reports
// the prior completed sleep window bundled with the runtime
// accumulated up to the start of the current one.
type Tracer struct {
	filter *sched.TargetFilter
	events *ring.Buffer[EventRecord]

	mu       sync.Mutex
	states   map[int32]*TraceState
	capacity int
}

// New creates a tracer publishing into events.
func New(filter *sched.TargetFilter, events *ring.Buffer[EventRecord]) *Tracer {
	return &Tracer{
		filter:   filter,
		events:   events,
		states:   make(map[int32]*TraceState),
		capacity: DefaultStateCapacity,
	}
}

// SwitchOut handles the previous task of a context switch. sleeping is
// true when the task is entering a voluntary-sleep state rather than
// merely being preempted.
func (tr *Tracer) SwitchOut(tid, tgid int32, sleeping bool, now uint64) {
	if !tr.filter.Matches(tid, tgid) {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	st, ok := tr.states[tid]
	if !ok {
		return
	}
	st.RuntimeNs += now - st.StartRunning

	if sleeping {
		// An unflushed window from the previous cycle is emitted now,
		// carrying its own timestamps; the new window then overwrites
		// SleepStart regardless of whether emission succeeded.
		if st.SleepStart != 0 {
			tr.emit(tid, st)
		}
		st.SleepStart = now
		return
	}
	if st.RuntimeNs >= LongRunThreshold {
		tr.emit(tid, st)
	}
}

// SwitchIn handles the next task of a context switch.
func (tr *Tracer) SwitchIn(tid, tgid int32, now uint64) {
	if !tr.filter.Matches(tid, tgid) {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if st, ok := tr.states[tid]; ok {
		st.StartRunning = now
		return
	}
	if len(tr.states) >= tr.capacity {
		return
	}
	tr.states[tid] = &TraceState{StartRunning: now}
}

// Wakeup records the end of a sleep window. A wakeup before the task
// was ever switched in is not recorded.
func (tr *Tracer) Wakeup(tid, tgid int32, now uint64) {
	if !tr.filter.Matches(tid, tgid) {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if st, ok := tr.states[tid]; ok {
		st.SleepEnd = now
	}
}

// emit publishes a record and, only on success, resets the accumulated
// runtime and sleep end. A dropped record leaves the state untouched
// so the interval folds into the next successful cycle.
func (tr *Tracer) emit(tid int32, st *TraceState) {
	rec := EventRecord{
		TaskID:     tid,
		SleepStart: st.SleepStart,
		SleepEnd:   st.SleepEnd,
		RuntimeNs:  st.RuntimeNs,
	}
	if !tr.events.TryPublish(rec) {
		return
	}
	st.RuntimeNs = 0
	st.SleepEnd = 0
}

// State returns a copy of the task's accumulator, for tests and
// inspection.
func (tr *Tracer) State(tid int32) (TraceState, bool) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	st, ok := tr.states[tid]
	if !ok {
		return TraceState{}, false
	}
	return *st, true
}
