package tracer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teddy-scx/teddy/sched"
	"github.com/teddy-scx/teddy/sched/ring"
)

const z int32 = 7 // traced task id in these tests

func newTestTracer(capacity int) (*Tracer, *ring.Buffer[EventRecord]) {
	events := ring.New[EventRecord](capacity)
	tr := New(sched.NewSingleTarget(sched.ModeThread, z), events)
	return tr, events
}

func drain(events *ring.Buffer[EventRecord]) []EventRecord {
	var out []EventRecord
	for {
		select {
		case rec := <-events.Events():
			out = append(out, rec)
		default:
			return out
		}
	}
}

func TestSwitchIn_InitializesState(t *testing.T) {
	// GIVEN a traced task never seen before
	tr, _ := newTestTracer(16)

	// WHEN it is switched in
	tr.SwitchIn(z, z, 1000)

	// THEN fresh state exists with only the running timestamp set
	st, ok := tr.State(z)
	assert.True(t, ok)
	assert.Equal(t, TraceState{StartRunning: 1000}, st)
}

func TestWakeup_BeforeAnyState_NotRecorded(t *testing.T) {
	tr, _ := newTestTracer(16)

	tr.Wakeup(z, z, 500)

	_, ok := tr.State(z)
	assert.False(t, ok)
}

func TestUntrackedTask_Ignored(t *testing.T) {
	tr, events := newTestTracer(16)

	tr.SwitchIn(99, 99, 0)
	tr.SwitchOut(99, 99, true, 10)
	tr.Wakeup(99, 99, 20)

	_, ok := tr.State(99)
	assert.False(t, ok)
	assert.Empty(t, drain(events))
}

func TestSwitchOut_AccumulatesRuntime_Monotonic(t *testing.T) {
	// GIVEN a task switched in and out twice without sleeping or
	// crossing the long-run threshold
	tr, events := newTestTracer(16)
	tr.SwitchIn(z, z, 0)
	tr.SwitchOut(z, z, false, 100)
	st1, _ := tr.State(z)
	tr.SwitchIn(z, z, 200)
	tr.SwitchOut(z, z, false, 350)
	st2, _ := tr.State(z)

	// THEN runtime only grows and nothing is emitted
	assert.Equal(t, uint64(100), st1.RuntimeNs)
	assert.Equal(t, uint64(250), st2.RuntimeNs)
	assert.GreaterOrEqual(t, st2.RuntimeNs, st1.RuntimeNs)
	assert.Empty(t, drain(events))
}

func TestSleepCycle_EmissionLagsOneWindow(t *testing.T) {
	// GIVEN a first run-sleep cycle
	tr, events := newTestTracer(16)
	tr.SwitchIn(z, z, 0)
	tr.SwitchOut(z, z, true, 100) // first sleep: nothing to flush yet
	assert.Empty(t, drain(events))
	tr.Wakeup(z, z, 400)
	tr.SwitchIn(z, z, 450)

	// WHEN the second sleep begins
	tr.SwitchOut(z, z, true, 700)

	// THEN the record carries the *previous* window and the runtime
	// accumulated up to the start of the current one
	recs := drain(events)
	if assert.Len(t, recs, 1) {
		assert.Equal(t, EventRecord{
			TaskID:     z,
			SleepStart: 100,
			SleepEnd:   400,
			RuntimeNs:  350, // 100 + 250
		}, recs[0])
	}

	// AND runtime/sleep-end are reset while the new window is open
	st, _ := tr.State(z)
	assert.Equal(t, uint64(0), st.RuntimeNs)
	assert.Equal(t, uint64(0), st.SleepEnd)
	assert.Equal(t, uint64(700), st.SleepStart)
}

func TestLongRunThreshold_EmitsWhilePreempted(t *testing.T) {
	// The task runs from t=0 to t=1s, crossing the threshold while
	// still runnable.
	tr, events := newTestTracer(16)
	tr.SwitchIn(z, z, 0)
	tr.SwitchOut(z, z, false, 1_000_000_000)

	recs := drain(events)
	if assert.Len(t, recs, 1) {
		assert.Equal(t, uint64(1_000_000_000), recs[0].RuntimeNs)
		assert.Equal(t, uint64(0), recs[0].SleepStart)
	}

	// Z runs again and sleeps at t=1.2s; the prior sleep_start was 0,
	// so no emission fires.
	tr.SwitchIn(z, z, 1_000_000_000)
	tr.SwitchOut(z, z, true, 1_200_000_000)
	assert.Empty(t, drain(events))

	// Z wakes at 1.3s, runs, and sleeps again at t=2s: the emission
	// carries the 1.2s-1.3s window and the runtime since the reset.
	tr.Wakeup(z, z, 1_300_000_000)
	tr.SwitchIn(z, z, 1_300_000_000)
	tr.SwitchOut(z, z, true, 2_000_000_000)

	recs = drain(events)
	if assert.Len(t, recs, 1) {
		assert.Equal(t, uint64(1_200_000_000), recs[0].SleepStart)
		assert.Equal(t, uint64(1_300_000_000), recs[0].SleepEnd)
		assert.Equal(t, uint64(900_000_000), recs[0].RuntimeNs)
	}
}

func TestDroppedEmission_StateNotReset(t *testing.T) {
	// GIVEN a full ring buffer
	tr, events := newTestTracer(1)
	assert.True(t, events.TryPublish(EventRecord{TaskID: 1}))

	// WHEN an emission is attempted via the long-run path
	tr.SwitchIn(z, z, 0)
	tr.SwitchOut(z, z, false, 2_000_000_000)

	// THEN the record is dropped and the accumulator is untouched
	assert.Equal(t, uint64(1), events.Dropped())
	st, _ := tr.State(z)
	assert.Equal(t, uint64(2_000_000_000), st.RuntimeNs)

	// AND the lost interval folds into the next successful emission
	<-events.Events()
	tr.SwitchIn(z, z, 2_000_000_000)
	tr.SwitchOut(z, z, false, 2_500_000_000)
	recs := drain(events)
	if assert.Len(t, recs, 1) {
		assert.Equal(t, uint64(2_500_000_000), recs[0].RuntimeNs)
	}
}

func TestSleepStartOverwritten_EvenWhenEmissionDropped(t *testing.T) {
	// GIVEN a completed sleep window and a full ring buffer
	tr, events := newTestTracer(1)
	tr.SwitchIn(z, z, 0)
	tr.SwitchOut(z, z, true, 100)
	tr.Wakeup(z, z, 200)
	tr.SwitchIn(z, z, 250)
	assert.True(t, events.TryPublish(EventRecord{TaskID: 1}))

	// WHEN the next sleep begins and the flush is dropped
	tr.SwitchOut(z, z, true, 300)

	// THEN sleep_start still moves to the new window
	st, _ := tr.State(z)
	assert.Equal(t, uint64(300), st.SleepStart)
	assert.Equal(t, uint64(200), st.SleepEnd) // preserved for the retry
}
