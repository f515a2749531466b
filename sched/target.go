package sched

// Mode selects which task identifier target identification examines.
type Mode int32

const (
	// ModeThread matches tasks by thread id.
	ModeThread Mode = iota
	// ModeProcessGroup matches all threads of a process group id.
	ModeProcessGroup
)

func (m Mode) String() string {
	switch m {
	case ModeThread:
		return "thread"
	case ModeProcessGroup:
		return "process-group"
	}
	return "unknown"
}

// TargetFilter decides whether a task is tracked. All fields are set
// before activation and never written afterwards, so Matches needs no
// locking even though every hook on every CPU calls it.
//
// Mode selection is exclusive: the active mode's identifier is the only
// one consulted. Thread mode never falls back to the process-group id
// when no thread id is configured; it matches nothing.
type TargetFilter struct {
	mode       Mode
	singleTID  int32
	singleTGID int32

	// Membership sets for multi-target configurations. The scheduler
	// core never populates these and therefore fails closed whenever
	// the single-target fast path does not apply; only the tracer
	// registers more than one target.
	tids  map[int32]struct{}
	tgids map[int32]struct{}
}

// NewSingleTarget builds a filter with only the single-target fast
// path, the only identification the scheduler core supports. A zero id
// matches nothing.
func NewSingleTarget(mode Mode, id int32) *TargetFilter {
	f := &TargetFilter{mode: mode}
	switch mode {
	case ModeThread:
		f.singleTID = id
	case ModeProcessGroup:
		f.singleTGID = id
	}
	return f
}

// NewTargetFilter builds a filter for the given targets, applying the
// single-target optimization when exactly one id is supplied. Used by
// the tracer, which supports multi-target membership sets.
func NewTargetFilter(mode Mode, targets []int32) *TargetFilter {
	if len(targets) == 1 {
		return NewSingleTarget(mode, targets[0])
	}
	f := &TargetFilter{mode: mode}
	set := make(map[int32]struct{}, len(targets))
	for _, id := range targets {
		set[id] = struct{}{}
	}
	switch mode {
	case ModeThread:
		f.tids = set
	case ModeProcessGroup:
		f.tgids = set
	}
	return f
}

// Mode returns the active identification mode.
func (f *TargetFilter) Mode() Mode { return f.mode }

// Matches reports whether the task identified by tid/tgid is tracked.
// The single-target comparison is O(1) with no map lookup.
func (f *TargetFilter) Matches(tid, tgid int32) bool {
	switch f.mode {
	case ModeThread:
		if f.singleTID != 0 {
			return tid == f.singleTID
		}
		if f.tids == nil {
			return false
		}
		_, ok := f.tids[tid]
		return ok
	case ModeProcessGroup:
		if f.singleTGID != 0 {
			return tgid == f.singleTGID
		}
		if f.tgids == nil {
			return false
		}
		_, ok := f.tgids[tgid]
		return ok
	}
	return false
}
