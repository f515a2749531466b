package hostsim

import (
	"fmt"

	"github.com/teddy-scx/teddy/sched"
)

// TaskSpec describes one synthetic task. The task wakes at StartNs,
// needs RunBurstNs of CPU time, sleeps for SleepNs, and repeats until
// the horizon. SleepNs of zero makes the task one-shot.
type TaskSpec struct {
	TID         int32
	TGID        int32
	AllowedCPUs sched.CPUMask // zero value allows every CPU
	RunBurstNs  uint64
	SleepNs     uint64
	StartNs     uint64
	SyncWakeup  bool // wake with the synchronous-wakeup flag set
}

func (s TaskSpec) validate() error {
	if s.TID == 0 {
		return fmt.Errorf("task spec: TID must be nonzero")
	}
	if s.RunBurstNs == 0 {
		return fmt.Errorf("task spec %d: RunBurstNs must be nonzero", s.TID)
	}
	return nil
}

// simTask pairs the policy-visible Task record with its simulated
// behavior.
type simTask struct {
	task sched.Task
	spec TaskSpec

	remaining   uint64 // burst remaining in the current cycle
	prevCPU     int32
	placedLocal bool // set by DispatchLocal since the last wakeup
}

// localEntry is one task on a CPU's local run path.
type localEntry struct {
	st    *simTask
	slice uint64
}

// running is the task currently on a CPU.
type running struct {
	st  *simTask
	ran uint64 // how long this stint will last
}

type cpuState struct {
	id      int32
	local   []localEntry
	current *running
}

func (c *cpuState) idle() bool {
	return c.current == nil && len(c.local) == 0
}
