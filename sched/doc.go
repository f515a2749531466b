// Package sched implements a priority-tiered dispatch policy for a
// pluggable host scheduling framework.
//
// # Reading Guide
//
// Start with these three files to understand the policy core:
//   - task.go: Task record, priority tiers, target configuration
//   - policy.go: the hook callbacks (SelectCPU, Enqueue, Dispatch, ...)
//   - host.go: the Host interface the hooks call into
//
// # Architecture
//
// The policy only special-cases a bounded set of explicitly registered
// ("tracked") tasks; everything else goes through a single fallback
// queue. A tracked task's tier, time slice, and core affinity are
// copied from the control-plane configuration table into per-task
// attached storage on first observation and never refreshed.
//
// Implementations of the surrounding machinery live in sub-packages:
//   - sched/tracer/: runtime/sleep behavior tracing per task
//   - sched/ring/: bounded drop-on-full event delivery
//   - sched/stats/: consumer-side per-task statistics
//   - sched/hostsim/: a deterministic simulated host framework used by
//     the CLI and the end-to-end tests
//
// All hook methods are short, non-blocking event handlers invoked
// synchronously by the host framework on whichever CPU triggered the
// event. Only Init may block (queue creation).
package sched
