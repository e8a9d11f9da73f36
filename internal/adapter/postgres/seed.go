package postgres

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/menupulse/internal/domain"
)

// SeedIfEmpty inserts catalog when the dishes table has no rows and returns the
// number inserted. The table lock makes concurrent starts seed exactly once.
func (r *DishRepo) SeedIfEmpty(ctx context.Context, catalog []domain.NewDish) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, storageError("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "LOCK TABLE dishes IN SHARE ROW EXCLUSIVE MODE"); err != nil {
		return 0, storageError("lock dishes table", err)
	}

	var existing int
	if err := tx.QueryRow(ctx, "SELECT count(*) FROM dishes").Scan(&existing); err != nil {
		return 0, storageError("count dishes", err)
	}
	if existing > 0 {
		slog.Debug("Dish catalog already present, skipping seed", "existing", existing)
		return 0, nil
	}

	rows := make([][]any, 0, len(catalog))
	for _, d := range catalog {
		rows = append(rows, []any{d.Name, d.ImageURL, d.Published})
	}

	inserted, err := tx.CopyFrom(ctx, pgx.Identifier{"dishes"}, []string{"name", "image_url", "published"}, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, storageError("insert catalog", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, storageError("commit seed", err)
	}

	slog.Info("Seeded dish catalog", "dishes", inserted)
	return int(inserted), nil
}
