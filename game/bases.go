package game

import (
	"maps"
	"slices"
	"sync"
)

// Bases is the registry of all bases. It exclusively owns every Base it holds and
// is safe for concurrent use: each method is atomic with respect to the others.
type Bases struct {
	mu    sync.RWMutex
	bases map[BaseID]*Base
}

func NewBases() *Bases {
	return &Bases{
		bases: make(map[BaseID]*Base),
	}
}

// AddBase inserts a base with an empty inventory, replacing any base with the same id.
func (b *Bases) AddBase(id BaseID, location Location) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bases[id] = NewBase(location)
}

// RemoveBase deletes the base if present.
func (b *Bases) RemoveBase(id BaseID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bases, id)
}

func (b *Bases) Location(id BaseID) (Location, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	base, ok := b.bases[id]
	if !ok {
		return Location{}, false
	}
	return base.Location(), true
}

// AddResource adds amount (negative for deductions) to the named resource of base id.
// No bounds are enforced. Reports whether the base exists.
func (b *Bases) AddResource(id BaseID, name string, amount int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	base, ok := b.bases[id]
	if !ok {
		return false
	}
	base.add(name, amount)
	return true
}

// TakeResource removes up to limit of the named resource, never taking stock below zero.
// It returns the amount taken and what is left. ok is false when the base does not exist.
func (b *Bases) TakeResource(id BaseID, name string, limit int) (taken, remaining int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	base, ok := b.bases[id]
	if !ok {
		return 0, 0, false
	}
	held := base.resources[name]
	taken = min(limit, max(held, 0))
	if taken <= 0 {
		return 0, held, true
	}
	base.add(name, -taken)
	return taken, held - taken, true
}

// Resources returns a copy of the base's inventory.
func (b *Bases) Resources(id BaseID) (Inventory, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	base, ok := b.bases[id]
	if !ok {
		return nil, false
	}
	return base.inventory(), true
}

// IDs returns every registered base id in ascending order.
func (b *Bases) IDs() []BaseID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Sorted(maps.Keys(b.bases))
}

func (b *Bases) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.bases)
}

// Copy returns a deep copy of the registry.
func (b *Bases) Copy() *Bases {
	b.mu.RLock()
	defer b.mu.RUnlock()
	basesCopy := make(map[BaseID]*Base, len(b.bases))
	for id, base := range b.bases {
		basesCopy[id] = base.Copy()
	}
	return &Bases{bases: basesCopy}
}
