// Package tracer classifies task behavior by accumulating per-task
// runtime and sleep-window timing across context switches, emitting a
// discrete record whenever a run or sleep threshold is crossed.
package tracer

// EventRecord is the immutable snapshot handed to the consumer.
// SleepStart/SleepEnd describe the most recently completed sleep
// window (zero when the task never slept); RuntimeNs is the runtime
// accumulated since the previous emission.
type EventRecord struct {
	TaskID     int32
	SleepStart uint64
	SleepEnd   uint64
	RuntimeNs  uint64
}

// SleepDuration returns the length of the recorded sleep window,
// clamped to zero when the window is empty or incomplete.
func (r EventRecord) SleepDuration() uint64 {
	if r.SleepEnd > r.SleepStart {
		return r.SleepEnd - r.SleepStart
	}
	return 0
}
