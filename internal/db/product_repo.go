package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockwatch/internal/types"
)

// ProductRepository provides read access to the products catalog. Catalog
// ingestion writes these rows from its own job; the pipeline reads them for
// validation and health checks.
type ProductRepository struct {
	db DBTX
}

// NewProductRepository creates a new ProductRepository backed by the given
// database connection (pool or transaction).
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID returns a single product or a not-found AppError.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*types.Product, error) {
	var p types.Product
	err := r.db.QueryRow(ctx,
		`SELECT id, name, is_active, popularity, created_at
		 FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.IsActive, &p.Popularity, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundProduct, fmt.Sprintf("product %s not found", id), nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load product", err)
	}
	return &p, nil
}

// ActiveFlags returns, for each given product ID, whether an active product
// row exists. Missing products simply have no entry in the returned map.
func (r *ProductRepository) ActiveFlags(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, is_active FROM products WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query product flags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id     string
			active bool
		)
		if err := rows.Scan(&id, &active); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan product flag", err)
		}
		result[id] = active
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating product flags", err)
	}
	return result, nil
}
