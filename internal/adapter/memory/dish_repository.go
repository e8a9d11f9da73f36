// Package memory provides an in-process dish store for tests and local runs without Postgres.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/menupulse/internal/domain"
)

// DishRepo keeps dishes in a map guarded by one mutex; each call is atomic.
type DishRepo struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	dishes map[int64]domain.Dish
	nextID int64
}

var (
	_ domain.DishRepository = (*DishRepo)(nil)
	_ domain.DishSeeder     = (*DishRepo)(nil)
)

func NewDishRepo(clock clockwork.Clock) *DishRepo {
	return &DishRepo{
		clock:  clock,
		dishes: make(map[int64]domain.Dish),
		nextID: 1,
	}
}

// Insert adds a dish with the next id. Ids are never reused.
func (r *DishRepo) Insert(d domain.NewDish) domain.Dish {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(d)
}

func (r *DishRepo) insertLocked(d domain.NewDish) domain.Dish {
	dish := domain.Dish{
		ID:        r.nextID,
		Name:      d.Name,
		ImageURL:  d.ImageURL,
		Published: d.Published,
		CreatedAt: r.clock.Now().UTC(),
	}
	r.dishes[dish.ID] = dish
	r.nextID++
	return dish
}

func (r *DishRepo) ListAll(_ context.Context) ([]domain.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dishes := make([]domain.Dish, 0, len(r.dishes))
	for _, d := range r.dishes {
		dishes = append(dishes, d)
	}
	slices.SortFunc(dishes, func(a, b domain.Dish) int { return cmp.Compare(a.ID, b.ID) })
	return dishes, nil
}

func (r *DishRepo) Toggle(_ context.Context, id int64) (domain.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dish, ok := r.dishes[id]
	if !ok {
		return domain.Dish{}, domain.ErrDishNotFound
	}
	dish.Published = !dish.Published
	r.dishes[id] = dish
	return dish, nil
}

func (r *DishRepo) BulkSet(_ context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var order []int64
	values := make(map[int64]bool, len(updates))
	for _, u := range updates {
		if _, seen := values[u.ID]; !seen {
			order = append(order, u.ID)
		}
		values[u.ID] = u.Published
	}

	result := make([]domain.Dish, 0, len(order))
	for _, id := range order {
		dish, ok := r.dishes[id]
		if !ok {
			continue
		}
		dish.Published = values[id]
		r.dishes[id] = dish
		result = append(result, dish)
	}
	return result, nil
}

func (r *DishRepo) SeedIfEmpty(_ context.Context, catalog []domain.NewDish) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dishes) > 0 {
		return 0, nil
	}
	for _, d := range catalog {
		r.insertLocked(d)
	}
	return len(catalog), nil
}
