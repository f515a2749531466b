package sched

import (
	"fmt"
	"sync"
)

// DefaultConfigTableCapacity bounds the number of registered targets.
const DefaultConfigTableCapacity = 1024

// DefaultContextStoreCapacity bounds concurrent attached-storage slots.
const DefaultContextStoreCapacity = 1024

// ConfigTable maps task id to TargetConfig. The control plane writes
// it occasionally; hooks on every CPU read it concurrently, so access
// is guarded by a read-write lock.
type ConfigTable struct {
	mu       sync.RWMutex
	capacity int
	entries  map[int32]TargetConfig
}

// NewConfigTable creates a table holding at most capacity entries.
// Non-positive capacity uses DefaultConfigTableCapacity.
func NewConfigTable(capacity int) *ConfigTable {
	if capacity <= 0 {
		capacity = DefaultConfigTableCapacity
	}
	return &ConfigTable{
		capacity: capacity,
		entries:  make(map[int32]TargetConfig),
	}
}

// Register installs or overwrites the config for a task id. A config
// must be in place before the task's first observation to take effect;
// updates after first observation are never re-read for that task.
func (ct *ConfigTable) Register(tid int32, cfg TargetConfig) error {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if _, exists := ct.entries[tid]; !exists && len(ct.entries) >= ct.capacity {
		return fmt.Errorf("config table full (%d entries)", ct.capacity)
	}
	ct.entries[tid] = cfg
	return nil
}

// Lookup returns the config registered for a task id.
func (ct *ConfigTable) Lookup(tid int32) (TargetConfig, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	cfg, ok := ct.entries[tid]
	return cfg, ok
}

// Len returns the number of registered targets.
func (ct *ConfigTable) Len() int {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	return len(ct.entries)
}

// ContextStore materializes per-task attached storage. The storage
// itself lives on the Task (and dies with it); the store only tracks
// how many slots exist so allocation can fail under exhaustion, the
// way the host framework's attached-storage primitive does.
type ContextStore struct {
	table    *ConfigTable
	mu       sync.Mutex
	capacity int
	allocated int
}

// NewContextStore creates a store backed by the given config table.
// Non-positive capacity uses DefaultContextStoreCapacity.
func NewContextStore(table *ConfigTable, capacity int) *ContextStore {
	if capacity <= 0 {
		capacity = DefaultContextStoreCapacity
	}
	return &ContextStore{table: table, capacity: capacity}
}

// GetOrCreate returns the task's TaskContext, materializing it on
// first observation. Per task there is at most one allocation and one
// config lookup, ever:
//
//   - storage already attached: return it as-is, with no resync
//     against the config table (an unpopulated slot keeps returning
//     false without retrying the lookup);
//   - allocation fails under exhaustion: return false, retried on the
//     next observation;
//   - allocation succeeds but no config is registered: the empty slot
//     stays attached and the task is permanently unmaterialized.
//
// Callers must treat false as "do not schedule via the tiered path".
func (cs *ContextStore) GetOrCreate(t *Task) (*TaskContext, bool) {
	if t.storage != nil {
		if t.storage.populated {
			return &t.storage.ctx, true
		}
		return nil, false
	}

	cs.mu.Lock()
	if cs.allocated >= cs.capacity {
		cs.mu.Unlock()
		return nil, false
	}
	cs.allocated++
	cs.mu.Unlock()

	t.storage = &taskStorage{}
	cfg, ok := cs.table.Lookup(t.TID)
	if !ok {
		return nil, false
	}
	t.storage.ctx = TaskContext{
		Tier:                 cfg.Tier,
		SliceNs:              cfg.SliceNs,
		PreferEfficiencyCore: cfg.PreferEfficiencyCore,
	}
	t.storage.populated = true
	return &t.storage.ctx, true
}

// Release frees the task's storage slot. The host framework calls this
// when the task is destroyed.
func (cs *ContextStore) Release(t *Task) {
	if t.storage == nil {
		return
	}
	t.storage = nil
	cs.mu.Lock()
	cs.allocated--
	cs.mu.Unlock()
}
