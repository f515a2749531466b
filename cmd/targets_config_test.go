package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddy-scx/teddy/sched"
)

func writeTargets(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTargetsConfig_PopulatesTable(t *testing.T) {
	path := writeTargets(t, `
mode: thread
targets:
  - id: 1234
    tier: critical
    slice_ns: 200000
  - id: 5678
    tier: interactive
    prefer_efficiency_core: true
  - id: 9012
`)

	cfg, err := LoadTargetsConfig(path)
	require.NoError(t, err)

	mode, err := cfg.ModeValue()
	require.NoError(t, err)
	assert.Equal(t, sched.ModeThread, mode)

	table := sched.NewConfigTable(0)
	ids, err := cfg.Populate(table)
	require.NoError(t, err)
	assert.Equal(t, []int32{1234, 5678, 9012}, ids)

	crit, ok := table.Lookup(1234)
	require.True(t, ok)
	assert.Equal(t, sched.TargetConfig{Tier: sched.TierCritical, SliceNs: 200_000}, crit)

	inter, ok := table.Lookup(5678)
	require.True(t, ok)
	assert.Equal(t, sched.TierInteractive, inter.Tier)
	assert.True(t, inter.PreferEfficiencyCore)
	// omitted slice falls back to the untracked-task slice
	assert.Equal(t, sched.NormalTaskSlice, inter.SliceNs)

	norm, ok := table.Lookup(9012)
	require.True(t, ok)
	assert.Equal(t, sched.TierNormal, norm.Tier)
}

func TestLoadTargetsConfig_Errors(t *testing.T) {
	_, err := LoadTargetsConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadTargetsConfig(writeTargets(t, "mode: thread\ntargets: []\n"))
	assert.ErrorContains(t, err, "no targets")

	_, err = LoadTargetsConfig(writeTargets(t, "mode: [not\n"))
	assert.Error(t, err)
}

func TestTargetsConfig_UnknownTierRejected(t *testing.T) {
	cfg, err := LoadTargetsConfig(writeTargets(t, `
targets:
  - id: 1
    tier: turbo
`))
	require.NoError(t, err)

	_, err = cfg.Populate(sched.NewConfigTable(0))
	assert.ErrorContains(t, err, "unknown tier")
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"", "thread", "tid"} {
		mode, err := parseMode(s)
		assert.NoError(t, err)
		assert.Equal(t, sched.ModeThread, mode)
	}
	for _, s := range []string{"process-group", "tgid"} {
		mode, err := parseMode(s)
		assert.NoError(t, err)
		assert.Equal(t, sched.ModeProcessGroup, mode)
	}
	_, err := parseMode("cgroup")
	assert.Error(t, err)
}
