package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/teddy-scx/teddy/sched"
	"github.com/teddy-scx/teddy/sched/hostsim"
	"github.com/teddy-scx/teddy/sched/ring"
	"github.com/teddy-scx/teddy/sched/stats"
	"github.com/teddy-scx/teddy/sched/tracer"
)

var (
	logLevel  string // Log verbosity level
	cpus      int    // Number of simulated CPUs
	horizonMs uint64 // Simulated duration (ms)
	seed      int64  // Seed for the simulated host

	// run flags
	targetsFile string // YAML target table
	bgTasks     int    // Number of untracked background tasks
	runBurstUs  uint64 // CPU burst per cycle for every task (us)
	sleepUs     uint64 // Sleep between cycles for every task (us)
	syncWakeups bool   // Wake tracked tasks with the sync flag

	// trace flags
	traceMode    string  // thread or process-group
	traceTargets []int32 // Traced ids
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "teddy",
	Short: "Tiered target scheduler and runtime/sleep tracer on a simulated host",
}

// runCmd runs the scheduling policy under the simulated host.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tiered scheduler over a synthetic workload",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg, err := LoadTargetsConfig(targetsFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		mode, err := cfg.ModeValue()
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		table := sched.NewConfigTable(0)
		ids, err := cfg.Populate(table)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		// The scheduler core supports only the single-target fast
		// path; with several targets configured it fails closed.
		var filter *sched.TargetFilter
		if len(ids) == 1 {
			filter = sched.NewSingleTarget(mode, ids[0])
		} else {
			logrus.Warnf("scheduler supports a single target; %d configured, none will be tracked", len(ids))
			filter = sched.NewSingleTarget(mode, 0)
		}

		host := hostsim.New(hostsim.Config{
			CPUs:      cpus,
			HorizonNs: horizonMs * 1_000_000,
			Seed:      seed,
		})
		policy := sched.NewScheduler(host, filter, table)
		if err := host.AttachPolicy(policy); err != nil {
			logrus.Fatalf("policy not attached, default scheduling stays in effect: %v", err)
		}

		// Trace the same targets; the tracer does support several.
		events := ring.New[tracer.EventRecord](0)
		host.AttachTracer(tracer.New(sched.NewTargetFilter(mode, ids), events))
		collector := stats.NewCollector()
		done := make(chan struct{})
		go func() {
			collector.Consume(events.Events())
			close(done)
		}()

		for _, id := range ids {
			if err := host.AddTask(hostsim.TaskSpec{
				TID:        id,
				TGID:       id,
				RunBurstNs: runBurstUs * 1000,
				SleepNs:    sleepUs * 1000,
				SyncWakeup: syncWakeups,
			}); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		for i := 0; i < bgTasks; i++ {
			if err := host.AddTask(hostsim.TaskSpec{
				TID:        9000 + int32(i),
				TGID:       9000 + int32(i),
				RunBurstNs: runBurstUs * 1000,
				SleepNs:    sleepUs * 1000,
			}); err != nil {
				logrus.Fatalf("%v", err)
			}
		}

		logrus.Infof("starting run: %d cpus, horizon=%dms, %d targets, %d background tasks",
			cpus, horizonMs, len(ids), bgTasks)
		host.Run()
		events.Close()
		<-done

		printRunMetrics(host, policy)
		collector.Report(os.Stdout)
		fmt.Printf("\nDropped events: %d\n", events.Dropped())
	},
}

// traceCmd runs only the tracer, over the host's built-in scheduling.
var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Trace task runtime/sleep behavior and report statistics",
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		if len(traceTargets) == 0 {
			logrus.Fatalf("no trace targets given (use --target)")
		}
		mode, err := parseMode(traceMode)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		host := hostsim.New(hostsim.Config{
			CPUs:      cpus,
			HorizonNs: horizonMs * 1_000_000,
			Seed:      seed,
		})
		events := ring.New[tracer.EventRecord](0)
		host.AttachTracer(tracer.New(sched.NewTargetFilter(mode, traceTargets), events))
		collector := stats.NewCollector()
		done := make(chan struct{})
		go func() {
			collector.Consume(events.Events())
			close(done)
		}()

		for _, id := range traceTargets {
			if err := host.AddTask(hostsim.TaskSpec{
				TID:        id,
				TGID:       id,
				RunBurstNs: runBurstUs * 1000,
				SleepNs:    sleepUs * 1000,
			}); err != nil {
				logrus.Fatalf("%v", err)
			}
		}

		logrus.Infof("trace mode: %s, %d targets, horizon=%dms", mode, len(traceTargets), horizonMs)
		host.Run()
		events.Close()
		<-done

		collector.Report(os.Stdout)
		fmt.Printf("\nDropped events: %d\n", events.Dropped())
	},
}

func setupLogging() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func printRunMetrics(host *hostsim.Host, policy *sched.Scheduler) {
	m := host.Metrics()
	fmt.Println("=== Scheduling Metrics ===")
	fmt.Printf("Wakeups              : %d\n", m.Wakeups)
	fmt.Printf("Context switches     : %d\n", m.Switches)
	fmt.Printf("Local dispatches     : %d\n", m.LocalDispatches)
	for _, id := range []sched.QueueID{
		sched.TargetCriticalQueue,
		sched.TargetInteractiveQueue,
		sched.TargetNormalQueue,
		sched.NormalTaskQueue,
	} {
		fmt.Printf("Queue %d leftover    : %d\n", id, policy.Queue(id).Len())
	}
	if exit := host.Exit(); exit != nil {
		fmt.Printf("Exit                 : code=%d reason=%q\n", exit.Code, exit.Reason)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&cpus, "cpus", 4, "Number of simulated CPUs")
	runCmd.Flags().Uint64Var(&horizonMs, "horizon-ms", 1000, "Simulated duration in milliseconds")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the simulated host")
	runCmd.Flags().StringVar(&targetsFile, "targets", "", "Path to the targets YAML file")
	runCmd.Flags().IntVar(&bgTasks, "bg-tasks", 8, "Number of untracked background tasks")
	runCmd.Flags().Uint64Var(&runBurstUs, "run-burst-us", 500, "CPU burst per task cycle (microseconds)")
	runCmd.Flags().Uint64Var(&sleepUs, "sleep-us", 1000, "Sleep between task cycles (microseconds)")
	runCmd.Flags().BoolVar(&syncWakeups, "sync-wakeups", false, "Wake tracked tasks with the synchronous flag")
	_ = runCmd.MarkFlagRequired("targets")

	traceCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	traceCmd.Flags().IntVar(&cpus, "cpus", 4, "Number of simulated CPUs")
	traceCmd.Flags().Uint64Var(&horizonMs, "horizon-ms", 10000, "Simulated duration in milliseconds")
	traceCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the simulated host")
	traceCmd.Flags().StringVar(&traceMode, "mode", "thread", "Tracing mode: thread or process-group")
	traceCmd.Flags().Int32SliceVar(&traceTargets, "target", nil, "Traced id (repeatable)")
	traceCmd.Flags().Uint64Var(&runBurstUs, "run-burst-us", 500, "CPU burst per task cycle (microseconds)")
	traceCmd.Flags().Uint64Var(&sleepUs, "sleep-us", 1000, "Sleep between task cycles (microseconds)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(traceCmd)
}
