package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/product"
)

const (
	insertProductSQL = `INSERT INTO products (id, seller_id, name, price, quantity, status, expiry_date, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listProductsSQL = `SELECT id, seller_id, name, price, quantity, status, expiry_date, expired, images, created_at
		FROM products ORDER BY created_at DESC`

	getProductByIDSQL = `SELECT id, seller_id, name, price, quantity, status, expiry_date, expired, images, created_at
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, seller_id, name, price, quantity, status, expiry_date, expired, images, created_at
		FROM products WHERE id = ANY($1)`

	markExpiredSQL = `UPDATE products SET expired = TRUE, status = 'unavailable'
		WHERE expired = FALSE AND expiry_date IS NOT NULL AND expiry_date <= $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product. A (seller, name) collision maps to
// product.ErrDuplicate.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("marshaling product images: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.SellerID, p.Name, p.Price, p.Quantity, p.Status, p.ExpiryDate, images,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return product.ErrDuplicate
		}
		return fmt.Errorf("creating product %q: %w", p.Name, err)
	}
	return nil
}

// List returns all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// MarkExpired flags every product past its expiry date.
func (r *ProductRepository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, markExpiredSQL, now)
	if err != nil {
		return 0, fmt.Errorf("marking expired products: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p      product.Product
		price  decimal.Decimal
		images []byte
	)
	err := row.Scan(
		&p.ID, &p.SellerID, &p.Name, &price, &p.Quantity, &p.Status,
		&p.ExpiryDate, &p.Expired, &images, &p.CreatedAt,
	)
	if err != nil {
		return p, err
	}
	p.Price = price
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return p, fmt.Errorf("unmarshaling product images: %w", err)
	}
	return p, nil
}
