package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/options-product/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, currency, status, total, version, snapshot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT version, snapshot FROM orders WHERE id = $1`

	saveOrderSQL = `UPDATE orders
		SET status = $3, total = $4, version = version + 1, snapshot = $5, updated_at = $6
		WHERE id = $1 AND version = $2`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// aggregate is stored as a JSONB snapshot next to a few queryable columns.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	snapshot, err := json.Marshal(o.Snapshot())
	if err != nil {
		return fmt.Errorf("marshaling order %q: %w", o.ID, err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.Currency, o.Status.String(), o.Total, o.Version, snapshot, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// Get loads an order. The version column wins over the one in the snapshot.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	var (
		version int
		raw     []byte
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, id).Scan(&version, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	var s order.Snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unmarshaling order %q: %w", id, err)
	}
	s.Version = version
	return order.Restore(s), nil
}

// Save writes o when the stored version matches and bumps o.Version.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order) error {
	s := o.Snapshot()
	s.Version = o.Version + 1
	snapshot, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling order %q: %w", o.ID, err)
	}

	tag, err := r.pool.Exec(ctx, saveOrderSQL,
		o.ID, o.Version, o.Status.String(), o.Total, snapshot, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, orderExistsSQL, o.ID).Scan(&exists); err != nil {
			return fmt.Errorf("checking order %q: %w", o.ID, err)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrConflict
	}

	o.Version = s.Version
	return nil
}
