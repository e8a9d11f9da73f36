package viewer

import (
	"slices"
	"sync"

	"github.com/pscheid92/menupulse/internal/domain"
)

// Replica is the client's copy of the catalog. Pushes only ever set the published flag of
// dishes it already holds; the flag is never flipped locally.
type Replica struct {
	mu     sync.RWMutex
	dishes []domain.Dish
	index  map[int64]int

	// seeds counts Seed calls and pushes counts pushes per id; together they form a mark.
	seeds  uint64
	pushes map[int64]uint64
}

// mark identifies what the replica has heard about one dish.
type mark struct {
	seeds  uint64
	pushes uint64
}

func NewReplica() *Replica {
	return &Replica{index: make(map[int64]int), pushes: make(map[int64]uint64)}
}

// Seed replaces the whole replica with a pulled catalog.
func (r *Replica) Seed(dishes []domain.Dish) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seeds++
	r.dishes = slices.Clone(dishes)
	r.index = make(map[int64]int, len(dishes))
	for i, d := range r.dishes {
		r.index[d.ID] = i
	}
}

// Apply sets the published flag of every dish in msg that the replica holds.
// It reports whether anything changed; applying the same message twice changes nothing the second time.
func (r *Replica) Apply(msg domain.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for _, d := range msg.Dishes() {
		r.pushes[d.ID]++
		if r.setLocked(d) {
			changed = true
		}
	}
	return changed
}

func (r *Replica) markOf(id int64) mark {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return mark{seeds: r.seeds, pushes: r.pushes[id]}
}

// applyIfUnmarked sets dish only if nothing about it was seeded or pushed since m was taken.
// A push or reseed in between carries a value at least as new, so dish is discarded.
func (r *Replica) applyIfUnmarked(dish domain.Dish, m mark) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if (mark{seeds: r.seeds, pushes: r.pushes[dish.ID]}) != m {
		return false
	}
	return r.setLocked(dish)
}

func (r *Replica) setLocked(d domain.Dish) bool {
	i, ok := r.index[d.ID]
	if !ok || r.dishes[i].Published == d.Published {
		return false
	}
	r.dishes[i].Published = d.Published
	return true
}

// Snapshot returns a copy of the replica in server order.
func (r *Replica) Snapshot() []domain.Dish {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.dishes)
}

// Counts returns the number of published dishes and the total.
func (r *Replica) Counts() (published, total int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.dishes {
		if d.Published {
			published++
		}
	}
	return published, len(r.dishes)
}
