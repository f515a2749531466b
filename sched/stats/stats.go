// Package stats aggregates tracer event records into per-task runtime
// and sleep statistics for final reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/teddy-scx/teddy/sched/tracer"
)

// TaskStats accumulates samples for one task. All durations are in
// nanoseconds; reporting converts to milliseconds.
type TaskStats struct {
	EventCount int

	runtimeNs  []float64
	RuntimeMin uint64
	RuntimeMax uint64

	SleepCount int
	sleepNs    []float64
	SleepMin   uint64
	SleepMax   uint64

	// Sleep interval: time between consecutive sleep ends.
	lastSleepEnd  uint64
	IntervalCount int
	intervalNs    []float64
	IntervalMin   uint64
	IntervalMax   uint64
}

func newTaskStats() *TaskStats {
	return &TaskStats{
		RuntimeMin:  math.MaxUint64,
		SleepMin:    math.MaxUint64,
		IntervalMin: math.MaxUint64,
	}
}

func (ts *TaskStats) observe(rec tracer.EventRecord) {
	ts.EventCount++

	ts.runtimeNs = append(ts.runtimeNs, float64(rec.RuntimeNs))
	ts.RuntimeMin = min(ts.RuntimeMin, rec.RuntimeNs)
	ts.RuntimeMax = max(ts.RuntimeMax, rec.RuntimeNs)

	sleep := rec.SleepDuration()
	if sleep == 0 {
		return
	}
	ts.SleepCount++
	ts.sleepNs = append(ts.sleepNs, float64(sleep))
	ts.SleepMin = min(ts.SleepMin, sleep)
	ts.SleepMax = max(ts.SleepMax, sleep)

	if ts.lastSleepEnd > 0 && rec.SleepEnd > ts.lastSleepEnd {
		interval := rec.SleepEnd - ts.lastSleepEnd
		ts.IntervalCount++
		ts.intervalNs = append(ts.intervalNs, float64(interval))
		ts.IntervalMin = min(ts.IntervalMin, interval)
		ts.IntervalMax = max(ts.IntervalMax, interval)
	}
	ts.lastSleepEnd = rec.SleepEnd
}

// MeanRuntimeMs returns the mean emitted runtime in milliseconds.
func (ts *TaskStats) MeanRuntimeMs() float64 { return meanMs(ts.runtimeNs) }

// StdDevRuntimeMs returns the population standard deviation of emitted
// runtimes in milliseconds.
func (ts *TaskStats) StdDevRuntimeMs() float64 { return stddevMs(ts.runtimeNs) }

// MeanSleepMs returns the mean sleep duration in milliseconds.
func (ts *TaskStats) MeanSleepMs() float64 { return meanMs(ts.sleepNs) }

// StdDevSleepMs returns the population standard deviation of sleep
// durations in milliseconds.
func (ts *TaskStats) StdDevSleepMs() float64 { return stddevMs(ts.sleepNs) }

// MeanIntervalMs returns the mean gap between sleeps in milliseconds.
func (ts *TaskStats) MeanIntervalMs() float64 { return meanMs(ts.intervalNs) }

// StdDevIntervalMs returns the population standard deviation of gaps
// between sleeps in milliseconds.
func (ts *TaskStats) StdDevIntervalMs() float64 { return stddevMs(ts.intervalNs) }

func meanMs(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return stat.Mean(samples, nil) / 1e6
}

func stddevMs(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	return stat.PopStdDev(samples, nil) / 1e6
}

// Collector consumes EventRecords and maintains per-task statistics.
// Observe may be called from the consumer goroutine while Report runs
// elsewhere.
type Collector struct {
	mu    sync.Mutex
	tasks map[int32]*TaskStats
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{tasks: make(map[int32]*TaskStats)}
}

// Observe folds one record into the task's statistics.
func (c *Collector) Observe(rec tracer.EventRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tasks[rec.TaskID]
	if !ok {
		ts = newTaskStats()
		c.tasks[rec.TaskID] = ts
	}
	ts.observe(rec)
}

// Consume drains the channel until it is closed, observing every
// record. Intended to run in its own goroutine.
func (c *Collector) Consume(events <-chan tracer.EventRecord) {
	for rec := range events {
		c.Observe(rec)
	}
}

// Task returns the statistics for one task id.
func (c *Collector) Task(tid int32) (*TaskStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tasks[tid]
	return ts, ok
}

// Report writes the per-task statistics table.
func (c *Collector) Report(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tids := make([]int32, 0, len(c.tasks))
	for tid := range c.tasks {
		tids = append(tids, tid)
	}
	sort.Slice(tids, func(i, j int) bool { return tids[i] < tids[j] })

	fmt.Fprintln(w, "========== Statistics Report ==========")
	for _, tid := range tids {
		ts := c.tasks[tid]
		if ts.EventCount == 0 {
			continue
		}
		fmt.Fprintf(w, "\nTask TID: %d\n", tid)
		fmt.Fprintf(w, "  Event count: %d\n", ts.EventCount)
		fmt.Fprintln(w, "  Runtime:")
		fmt.Fprintf(w, "    Average: %.2f ms\n", ts.MeanRuntimeMs())
		fmt.Fprintf(w, "    Std dev: %.2f ms\n", ts.StdDevRuntimeMs())
		fmt.Fprintf(w, "    Min: %.2f ms\n", float64(ts.RuntimeMin)/1e6)
		fmt.Fprintf(w, "    Max: %.2f ms\n", float64(ts.RuntimeMax)/1e6)
		if ts.SleepCount > 0 {
			fmt.Fprintln(w, "  Sleep Duration:")
			fmt.Fprintf(w, "    Count: %d\n", ts.SleepCount)
			fmt.Fprintf(w, "    Average: %.2f ms\n", ts.MeanSleepMs())
			fmt.Fprintf(w, "    Std dev: %.2f ms\n", ts.StdDevSleepMs())
			fmt.Fprintf(w, "    Min: %.2f ms\n", float64(ts.SleepMin)/1e6)
			fmt.Fprintf(w, "    Max: %.2f ms\n", float64(ts.SleepMax)/1e6)
		}
		if ts.IntervalCount > 0 {
			fmt.Fprintln(w, "  Sleep Interval (time between sleeps):")
			fmt.Fprintf(w, "    Count: %d\n", ts.IntervalCount)
			fmt.Fprintf(w, "    Average: %.2f ms\n", ts.MeanIntervalMs())
			fmt.Fprintf(w, "    Std dev: %.2f ms\n", ts.StdDevIntervalMs())
			fmt.Fprintf(w, "    Min: %.2f ms\n", float64(ts.IntervalMin)/1e6)
			fmt.Fprintf(w, "    Max: %.2f ms\n", float64(ts.IntervalMax)/1e6)
		}
	}
}
