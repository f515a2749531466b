package cmd

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teddy-scx/teddy/sched"
)

// TargetsConfig is the YAML shape of the control-plane target table.
type TargetsConfig struct {
	Mode    string        `yaml:"mode"`
	Targets []TargetEntry `yaml:"targets"`
}

// TargetEntry is one registered task.
type TargetEntry struct {
	ID                   int32  `yaml:"id"`
	Tier                 string `yaml:"tier"`
	SliceNs              uint64 `yaml:"slice_ns"`
	PreferEfficiencyCore bool   `yaml:"prefer_efficiency_core"`
}

// LoadTargetsConfig reads and parses a targets YAML file.
func LoadTargetsConfig(path string) (*TargetsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets config: %w", err)
	}
	var cfg TargetsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse targets config: %w", err)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("targets config %s: no targets", path)
	}
	return &cfg, nil
}

// ModeValue maps the YAML mode string to a sched.Mode.
func (tc *TargetsConfig) ModeValue() (sched.Mode, error) {
	return parseMode(tc.Mode)
}

func parseMode(s string) (sched.Mode, error) {
	switch s {
	case "", "thread", "tid":
		return sched.ModeThread, nil
	case "process-group", "tgid":
		return sched.ModeProcessGroup, nil
	}
	return 0, fmt.Errorf("unknown mode %q (use thread or process-group)", s)
}

func parseTier(s string) (sched.Tier, error) {
	switch s {
	case "critical":
		return sched.TierCritical, nil
	case "interactive":
		return sched.TierInteractive, nil
	case "", "normal":
		return sched.TierNormal, nil
	}
	return 0, fmt.Errorf("unknown tier %q (use critical, interactive, or normal)", s)
}

// Populate registers every entry into the config table and returns the
// target ids in file order.
func (tc *TargetsConfig) Populate(table *sched.ConfigTable) ([]int32, error) {
	ids := make([]int32, 0, len(tc.Targets))
	for _, entry := range tc.Targets {
		tier, err := parseTier(entry.Tier)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", entry.ID, err)
		}
		slice := entry.SliceNs
		if slice == 0 {
			slice = sched.NormalTaskSlice
		}
		cfg := sched.TargetConfig{
			Tier:                 tier,
			SliceNs:              slice,
			PreferEfficiencyCore: entry.PreferEfficiencyCore,
		}
		if err := table.Register(entry.ID, cfg); err != nil {
			return nil, fmt.Errorf("target %d: %w", entry.ID, err)
		}
		ids = append(ids, entry.ID)
	}
	return ids, nil
}
