package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/menupulse/internal/domain"
)

const dishColumns = "id, name, image_url, published, created_at"

// DishRepo is the Postgres-backed dish store. Every call runs under txTimeout.
type DishRepo struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

var (
	_ domain.DishRepository = (*DishRepo)(nil)
	_ domain.DishSeeder     = (*DishRepo)(nil)
)

func NewDishRepo(pool *pgxpool.Pool, txTimeout time.Duration) *DishRepo {
	return &DishRepo{pool: pool, txTimeout: txTimeout}
}

func (r *DishRepo) ListAll(ctx context.Context) ([]domain.Dish, error) {
	ctx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, "SELECT "+dishColumns+" FROM dishes ORDER BY id")
	if err != nil {
		return nil, storageError("list dishes", err)
	}

	dishes, err := pgx.CollectRows(rows, scanDish)
	if err != nil {
		return nil, storageError("scan dishes", err)
	}
	if dishes == nil {
		dishes = []domain.Dish{}
	}
	return dishes, nil
}

// Toggle flips one dish's published flag. The row lock serializes concurrent
// toggles of the same id; other ids proceed independently.
func (r *DishRepo) Toggle(ctx context.Context, id int64) (domain.Dish, error) {
	ctx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Dish{}, storageError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	var published bool
	err = tx.QueryRow(ctx, "SELECT published FROM dishes WHERE id = $1 FOR UPDATE", id).Scan(&published)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Dish{}, domain.ErrDishNotFound
	}
	if err != nil {
		return domain.Dish{}, storageError("lock dish", err)
	}

	rows, err := tx.Query(ctx, "UPDATE dishes SET published = $2 WHERE id = $1 RETURNING "+dishColumns, id, !published)
	if err != nil {
		return domain.Dish{}, storageError("update dish", err)
	}
	dish, err := pgx.CollectExactlyOneRow(rows, scanDish)
	if err != nil {
		return domain.Dish{}, storageError("read updated dish", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Dish{}, storageError("commit toggle", err)
	}
	return dish, nil
}

// BulkSet applies all updates in one transaction. Unknown ids are skipped.
// Duplicate ids collapse to the last value given; results follow first appearance.
func (r *DishRepo) BulkSet(ctx context.Context, updates []domain.PublishUpdate) ([]domain.Dish, error) {
	order, values := collapseUpdates(updates)
	if len(order) == 0 {
		return []domain.Dish{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.txTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, storageError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Rows are locked in id order so overlapping batches cannot deadlock.
	lockOrder := slices.Clone(order)
	slices.Sort(lockOrder)

	batch := &pgx.Batch{}
	for _, id := range lockOrder {
		batch.Queue("UPDATE dishes SET published = $2 WHERE id = $1 RETURNING "+dishColumns, id, values[id])
	}

	updated := make(map[int64]domain.Dish, len(lockOrder))
	results := tx.SendBatch(ctx, batch)
	for range lockOrder {
		rows, err := results.Query()
		if err != nil {
			_ = results.Close()
			return nil, storageError("bulk update dish", err)
		}
		dish, err := pgx.CollectExactlyOneRow(rows, scanDish)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			_ = results.Close()
			return nil, storageError("read bulk updated dish", err)
		}
		updated[dish.ID] = dish
	}
	if err := results.Close(); err != nil {
		return nil, storageError("finish bulk update", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageError("commit bulk update", err)
	}

	dishes := make([]domain.Dish, 0, len(updated))
	for _, id := range order {
		if dish, ok := updated[id]; ok {
			dishes = append(dishes, dish)
		}
	}
	return dishes, nil
}

func (r *DishRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return storageError("ping database", err)
	}
	return nil
}

func collapseUpdates(updates []domain.PublishUpdate) ([]int64, map[int64]bool) {
	order := make([]int64, 0, len(updates))
	values := make(map[int64]bool, len(updates))
	for _, u := range updates {
		if _, seen := values[u.ID]; !seen {
			order = append(order, u.ID)
		}
		values[u.ID] = u.Published
	}
	return order, values
}

func scanDish(row pgx.CollectableRow) (domain.Dish, error) {
	var d domain.Dish
	err := row.Scan(&d.ID, &d.Name, &d.ImageURL, &d.Published, &d.CreatedAt)
	return d, err
}

func storageError(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
