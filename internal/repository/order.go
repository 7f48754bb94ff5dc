package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kivumart/kivumart-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, items, total_amount, status, delivery_info, payment_info)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	clearCartSQL = `UPDATE carts SET items = '[]', total_price = 0, total_quantity = 0, updated_at = now()
		WHERE id = $1`

	getOrderByIDSQL = `SELECT id, user_id, items, total_amount, status, delivery_info, payment_info,
		reference, expected_delivery_date, created_at FROM orders WHERE id = $1`

	listOrdersByUserSQL = `SELECT id, user_id, items, total_amount, status, delivery_info, payment_info,
		reference, expected_delivery_date, created_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	// Compare-and-set: the WHERE clause on the old status closes the
	// window between a status check and the update.
	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`

	initiateOrderSQL = `UPDATE orders SET status = 'initiated', reference = $2,
		expected_delivery_date = $3, updated_at = now() WHERE id = $1 AND status = 'pending'`

	failOrderSQL = `UPDATE orders SET status = 'failed', updated_at = now()
		WHERE id = $1 AND status = 'initiated'`

	// The quantity guard makes oversell impossible at the database even
	// under concurrent initiations.
	decrementStockSQL = `UPDATE products SET quantity = quantity - $2
		WHERE id = $1 AND quantity >= $2`

	restockSQL = `UPDATE products SET quantity = quantity + $2 WHERE id = $1`
)

// InsufficientStockError indicates an initiation would take a product's
// quantity below zero; the enclosing transaction is rolled back.
type InsufficientStockError struct {
	ProductID string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d", e.ProductID, e.Requested)
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateFromCart atomically inserts the order and empties the source cart.
func (r *OrderRepository) CreateFromCart(ctx context.Context, o *order.Order, cartID string) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	delivery, err := json.Marshal(o.Delivery)
	if err != nil {
		return fmt.Errorf("marshaling delivery info: %w", err)
	}
	payment, err := json.Marshal(o.Payment)
	if err != nil {
		return fmt.Errorf("marshaling payment info: %w", err)
	}

	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.UserID, items, o.TotalAmount, o.Status, delivery, payment,
		); err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}
		if _, err := tx.Exec(ctx, clearCartSQL, cartID); err != nil {
			return fmt.Errorf("clearing cart %q: %w", cartID, err)
		}
		return nil
	})
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns every order of userID, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus performs a compare-and-set transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	if !from.CanTransition(to) {
		return &order.IllegalTransitionError{From: from, To: to}
	}

	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, from, to)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrStatusConflict
	}
	return nil
}

// InitiatePayment atomically moves a pending order to initiated, persists
// the gateway reference and expected delivery date, and decrements stock
// for every line item.
func (r *OrderRepository) InitiatePayment(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, initiateOrderSQL, o.ID, o.Reference, o.ExpectedDelivery)
		if err != nil {
			return fmt.Errorf("initiating order %q: %w", o.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrStatusConflict
		}

		for _, it := range o.Items {
			tag, err := tx.Exec(ctx, decrementStockSQL, it.ProductID, it.Quantity)
			if err != nil {
				return fmt.Errorf("decrementing stock for %q: %w", it.ProductID, err)
			}
			if tag.RowsAffected() == 0 {
				return &InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity}
			}
		}
		return nil
	})
}

// FailAndRestock atomically moves an initiated order to failed and returns
// its reserved quantities to stock.
func (r *OrderRepository) FailAndRestock(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, failOrderSQL, o.ID)
		if err != nil {
			return fmt.Errorf("failing order %q: %w", o.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrStatusConflict
		}

		for _, it := range o.Items {
			if _, err := tx.Exec(ctx, restockSQL, it.ProductID, it.Quantity); err != nil {
				return fmt.Errorf("restocking %q: %w", it.ProductID, err)
			}
		}
		return nil
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		items    []byte
		delivery []byte
		payment  []byte
		total    decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &items, &total, &o.Status, &delivery, &payment,
		&o.Reference, &o.ExpectedDelivery, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.TotalAmount = total
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(delivery, &o.Delivery); err != nil {
		return o, fmt.Errorf("unmarshaling delivery info: %w", err)
	}
	if err := json.Unmarshal(payment, &o.Payment); err != nil {
		return o, fmt.Errorf("unmarshaling payment info: %w", err)
	}
	return o, nil
}
