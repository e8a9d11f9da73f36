package domain

import (
	"context"
	"time"
)

// Dish is a catalog entry. Only Published changes after creation.
type Dish struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"imageUrl"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
}

// PublishUpdate sets a dish's published flag to an exact value.
type PublishUpdate struct {
	ID        int64 `json:"id"`
	Published bool  `json:"published"`
}

// NewDish is a catalog entry before the store has assigned it an id.
type NewDish struct {
	Name      string
	ImageURL  string
	Published bool
}

// DishRepository is the single source of truth for dish records.
// Toggle and BulkSet are transactional; callers never observe a partial write.
type DishRepository interface {
	ListAll(ctx context.Context) ([]Dish, error)
	Toggle(ctx context.Context, id int64) (Dish, error)
	BulkSet(ctx context.Context, updates []PublishUpdate) ([]Dish, error)
}

// DishSeeder fills an empty catalog.
type DishSeeder interface {
	SeedIfEmpty(ctx context.Context, catalog []NewDish) (int, error)
}

// Broadcaster fans a message out to every live channel.
// Delivery failures are handled internally and never reach the caller.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg Message)
}
