package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigTable_RegisterLookup(t *testing.T) {
	table := NewConfigTable(0)
	cfg := TargetConfig{Tier: TierCritical, SliceNs: 50_000}
	assert.NoError(t, table.Register(7, cfg))

	got, ok := table.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, cfg, got)

	_, ok = table.Lookup(8)
	assert.False(t, ok)
}

func TestConfigTable_CapacityBound(t *testing.T) {
	// GIVEN a table with room for 2 entries
	table := NewConfigTable(2)
	assert.NoError(t, table.Register(1, TargetConfig{}))
	assert.NoError(t, table.Register(2, TargetConfig{}))

	// THEN a third distinct id is refused but overwrites still work
	assert.Error(t, table.Register(3, TargetConfig{}))
	assert.NoError(t, table.Register(2, TargetConfig{Tier: TierInteractive}))
	assert.Equal(t, 2, table.Len())
}

func TestContextStore_MaterializesFromConfig(t *testing.T) {
	// GIVEN a registered target
	table := NewConfigTable(0)
	_ = table.Register(7, TargetConfig{Tier: TierInteractive, SliceNs: 30_000, PreferEfficiencyCore: true})
	store := NewContextStore(table, 0)
	task := &Task{TID: 7, TGID: 7}

	// WHEN its context is materialized
	ctx, ok := store.GetOrCreate(task)

	// THEN tier/slice/affinity are copied verbatim
	assert.True(t, ok)
	assert.Equal(t, TierInteractive, ctx.Tier)
	assert.Equal(t, uint64(30_000), ctx.SliceNs)
	assert.True(t, ctx.PreferEfficiencyCore)
}

func TestContextStore_OneShotCopy_NoResync(t *testing.T) {
	// GIVEN a task whose context has been materialized
	table := NewConfigTable(0)
	_ = table.Register(7, TargetConfig{Tier: TierCritical, SliceNs: 50_000})
	store := NewContextStore(table, 0)
	task := &Task{TID: 7}
	first, ok := store.GetOrCreate(task)
	assert.True(t, ok)

	// WHEN the control plane updates the config afterwards
	_ = table.Register(7, TargetConfig{Tier: TierNormal, SliceNs: 1})

	// THEN the task keeps its original binding for life
	again, ok := store.GetOrCreate(task)
	assert.True(t, ok)
	assert.Same(t, first, again)
	assert.Equal(t, TierCritical, again.Tier)
	assert.Equal(t, uint64(50_000), again.SliceNs)
}

func TestContextStore_UnregisteredTask_PermanentlyUnmaterialized(t *testing.T) {
	// GIVEN a task with no registered config
	table := NewConfigTable(0)
	store := NewContextStore(table, 0)
	task := &Task{TID: 9}

	// WHEN materialization is attempted
	_, ok := store.GetOrCreate(task)
	assert.False(t, ok)

	// AND the config is registered only afterwards
	_ = table.Register(9, TargetConfig{Tier: TierCritical, SliceNs: 50_000})

	// THEN the one-lookup-ever contract keeps the task unmaterialized
	_, ok = store.GetOrCreate(task)
	assert.False(t, ok)
	assert.Nil(t, task.Context())
}

func TestContextStore_Exhaustion_FailsAllocation(t *testing.T) {
	// GIVEN a store with one slot, already used
	table := NewConfigTable(0)
	_ = table.Register(1, TargetConfig{SliceNs: 10})
	_ = table.Register(2, TargetConfig{SliceNs: 20})
	store := NewContextStore(table, 1)
	first := &Task{TID: 1}
	_, ok := store.GetOrCreate(first)
	assert.True(t, ok)

	// WHEN a second task asks for storage
	second := &Task{TID: 2}
	_, ok = store.GetOrCreate(second)

	// THEN allocation fails, and succeeds once a slot is released
	assert.False(t, ok)
	store.Release(first)
	_, ok = store.GetOrCreate(second)
	assert.True(t, ok)
}
