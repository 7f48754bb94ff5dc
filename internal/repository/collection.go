package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kivumart/kivumart-api/internal/domain/collection"
)

const (
	insertCollectionSQL = `INSERT INTO collections (id, seller_id, name, description)
		VALUES ($1, $2, $3, $4)`

	getCollectionByIDSQL = `SELECT id, seller_id, name, description, created_at
		FROM collections WHERE id = $1`

	listCollectionsBySellerSQL = `SELECT id, seller_id, name, description, created_at
		FROM collections WHERE seller_id = $1 ORDER BY created_at DESC`
)

var _ collection.Repository = (*CollectionRepository)(nil)

// CollectionRepository implements collection.Repository backed by PostgreSQL.
type CollectionRepository struct {
	pool *pgxpool.Pool
}

// NewCollectionRepository returns a CollectionRepository that uses the given pool.
func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

// Create inserts a new collection. A (seller, name) collision maps to
// collection.ErrDuplicate.
func (r *CollectionRepository) Create(ctx context.Context, c *collection.Collection) error {
	_, err := r.pool.Exec(ctx, insertCollectionSQL, c.ID, c.SellerID, c.Name, c.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return collection.ErrDuplicate
		}
		return fmt.Errorf("creating collection %q: %w", c.Name, err)
	}
	return nil
}

// GetByID returns a single collection by its identifier.
func (r *CollectionRepository) GetByID(ctx context.Context, id string) (*collection.Collection, error) {
	rows, err := r.pool.Query(ctx, getCollectionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting collection %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCollection)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, collection.ErrNotFound
		}
		return nil, fmt.Errorf("getting collection %q: %w", id, err)
	}
	return &c, nil
}

// ListBySeller returns a seller's collections, newest first.
func (r *CollectionRepository) ListBySeller(ctx context.Context, sellerID string) ([]collection.Collection, error) {
	rows, err := r.pool.Query(ctx, listCollectionsBySellerSQL, sellerID)
	if err != nil {
		return nil, fmt.Errorf("listing collections for %q: %w", sellerID, err)
	}
	return pgx.CollectRows(rows, scanCollection)
}

func scanCollection(row pgx.CollectableRow) (collection.Collection, error) {
	var c collection.Collection
	err := row.Scan(&c.ID, &c.SellerID, &c.Name, &c.Description, &c.CreatedAt)
	return c, err
}
