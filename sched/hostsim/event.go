package hostsim

// Event is a single simulated host-framework occurrence. Each event
// has a timestamp (ns) and an Execute method that advances host state.
type Event interface {
	Timestamp() uint64
	Execute(h *Host)
}

// EventQueue implements heap.Interface and orders events by timestamp.
type EventQueue []Event

func (eq EventQueue) Len() int           { return len(eq) }
func (eq EventQueue) Less(i, j int) bool { return eq[i].Timestamp() < eq[j].Timestamp() }
func (eq EventQueue) Swap(i, j int)      { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(Event))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// wakeEvent makes a sleeping task runnable again.
type wakeEvent struct {
	time uint64
	st   *simTask
}

func (e *wakeEvent) Timestamp() uint64 { return e.time }
func (e *wakeEvent) Execute(h *Host)   { h.wake(e.st) }

// switchEvent ends the current task's run on a CPU, either because its
// run burst completed or because its slice expired.
type switchEvent struct {
	time uint64
	cpu  *cpuState
}

func (e *switchEvent) Timestamp() uint64 { return e.time }
func (e *switchEvent) Execute(h *Host)   { h.switchOut(e.cpu) }
