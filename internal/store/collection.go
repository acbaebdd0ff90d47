package store

import (
	"github.com/myrjola/resqlink/internal/models"
	"time"
)

// Token identifies one optimistic mutation. The zero Token means the mutation is not tracked.
type Token uint64

type pendingMutation[T any] struct {
	token   Token
	patch   func(T) T
	since   time.Time
	settled bool
	// settledEpoch is the most recent cycle that had begun when the remote write settled.
	settledEpoch uint64
}

type entry[T any] struct {
	// confirmed is the value last read from the backend.
	confirmed T
	// current is confirmed with every pending patch applied in order.
	current T
	pending []pendingMutation[T]
}

func (e *entry[T]) recompute() {
	v := e.confirmed
	for _, p := range e.pending {
		v = p.patch(v)
	}
	e.current = v
}

// collection keeps entities in fetch order together with their pending mutations.
type collection[T models.Keyed] struct {
	order   []int64
	entries map[int64]*entry[T]
	version uint64
}

func newCollection[T models.Keyed]() collection[T] {
	return collection[T]{
		order:   nil,
		entries: make(map[int64]*entry[T]),
		version: 0,
	}
}

// merge replaces the collection with items read during cycle epoch.
//
// With the pending policy, mutations that settled successfully before the cycle began are dropped because the
// snapshot already reflects them. Every other pending mutation is replayed on top of the fetched value.
// Entities missing from items disappear together with their pending mutations.
//
// merge returns the ids that appeared more than once in items. Only the first occurrence is kept.
func (c *collection[T]) merge(items []T, epoch uint64, policy MergePolicy) []int64 {
	var (
		entries    = make(map[int64]*entry[T], len(items))
		order      = make([]int64, 0, len(items))
		duplicates []int64
	)
	for _, item := range items {
		id := item.Key()
		if _, ok := entries[id]; ok {
			duplicates = append(duplicates, id)
			continue
		}
		e := &entry[T]{confirmed: item, current: item, pending: nil}
		if old, ok := c.entries[id]; ok && policy == MergePolicyPending {
			for _, p := range old.pending {
				if p.settled && p.settledEpoch < epoch {
					continue
				}
				e.pending = append(e.pending, p)
			}
			e.recompute()
		}
		entries[id] = e
		order = append(order, id)
	}
	c.entries = entries
	c.order = order
	c.version++
	return duplicates
}

// mutate applies patch to the entity id after validate accepts its current value.
func (c *collection[T]) mutate(
	id int64,
	validate func(T) error,
	patch func(T) T,
	policy MergePolicy,
	token Token,
	now time.Time,
) (Token, error) {
	e, ok := c.entries[id]
	if !ok {
		return 0, ErrNotFound
	}
	if validate != nil {
		if err := validate(e.current); err != nil {
			return 0, err
		}
	}
	c.version++
	if policy == MergePolicyOverwrite {
		e.current = patch(e.current)
		e.confirmed = e.current
		return 0, nil
	}
	e.pending = append(e.pending, pendingMutation[T]{
		token:        token,
		patch:        patch,
		since:        now,
		settled:      false,
		settledEpoch: 0,
	})
	e.current = patch(e.current)
	return token, nil
}

// settle records the outcome of the remote write behind token. A failed write is rolled back by dropping its
// patch and replaying the remaining ones over the confirmed value.
func (c *collection[T]) settle(id int64, token Token, failed bool, epoch uint64) bool {
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	for i := range e.pending {
		if e.pending[i].token != token {
			continue
		}
		if failed {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			e.recompute()
			c.version++
			return true
		}
		e.pending[i].settled = true
		e.pending[i].settledEpoch = epoch
		return false
	}
	return false
}

// pin replaces the entity with an authoritative value until a cycle that began after epoch is merged.
func (c *collection[T]) pin(item T, policy MergePolicy, token Token, epoch uint64, now time.Time) bool {
	e, ok := c.entries[item.Key()]
	if !ok {
		return false
	}
	c.version++
	if policy == MergePolicyOverwrite {
		e.confirmed = item
		e.current = item
		return true
	}
	e.pending = append(e.pending, pendingMutation[T]{
		token:        token,
		patch:        func(T) T { return item },
		since:        now,
		settled:      true,
		settledEpoch: epoch,
	})
	e.recompute()
	return true
}

func (c *collection[T]) get(id int64) (T, bool) {
	e, ok := c.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	return e.current, true
}

func (c *collection[T]) items() []T {
	items := make([]T, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, c.entries[id].current)
	}
	return items
}

// pendingIDs returns the ids with at least one unsettled mutation.
func (c *collection[T]) pendingIDs() map[int64]bool {
	ids := make(map[int64]bool)
	for id, e := range c.entries {
		for _, p := range e.pending {
			if !p.settled {
				ids[id] = true
				break
			}
		}
	}
	return ids
}
