package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/errors"
)

const itemColumns = `sku, description, retail_price, quantity, is_active, last_updated`

// ItemRepository handles warehouse item persistence
type ItemRepository struct {
	q Querier
}

// NewItemRepository creates a new item repository
func NewItemRepository(q Querier) *ItemRepository {
	return &ItemRepository{q: q}
}

// GetItem gets an item by SKU
func (r *ItemRepository) GetItem(ctx context.Context, sku string) (*domain.Item, error) {
	var item domain.Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = $1`
	if err := r.q.GetContext(ctx, &item, query, sku); err != nil {
		return nil, notFound(err, "item")
	}
	return &item, nil
}

// LockItem gets an item by SKU and locks the row
func (r *ItemRepository) LockItem(ctx context.Context, sku string) (*domain.Item, error) {
	var item domain.Item
	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = $1 FOR UPDATE`
	if err := r.q.GetContext(ctx, &item, query, sku); err != nil {
		return nil, notFound(err, "item")
	}
	return &item, nil
}

// ListItems lists items ordered by SKU
func (r *ItemRepository) ListItems(ctx context.Context, filter store.ItemFilter) ([]domain.Item, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.IncludeInactive {
		conds = append(conds, "is_active")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		conds = append(conds, fmt.Sprintf("(sku ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if filter.SKUs != nil {
		args = append(args, pq.Array(filter.SKUs))
		conds = append(conds, fmt.Sprintf("sku = ANY($%d)", len(args)))
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY sku`

	items := []domain.Item{}
	if err := r.q.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

// InsertItem creates an item
func (r *ItemRepository) InsertItem(ctx context.Context, item *domain.Item) error {
	query := `
		INSERT INTO items (sku, description, retail_price, quantity, is_active, last_updated)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING last_updated
	`
	err := r.q.QueryRowxContext(ctx, query,
		item.SKU, item.Description, item.RetailPrice, item.Quantity, item.IsActive,
	).Scan(&item.LastUpdated)
	return mapErr(err)
}

// UpdateItem writes only the fields present in changes
func (r *ItemRepository) UpdateItem(ctx context.Context, sku string, changes store.ItemChanges) error {
	if changes.Empty() {
		return nil
	}

	args := []any{sku}
	var sets []string
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if changes.Description != nil {
		set("description", *changes.Description)
	}
	if changes.RetailPrice != nil {
		set("retail_price", *changes.RetailPrice)
	}
	if changes.Quantity != nil {
		set("quantity", *changes.Quantity)
	}
	if changes.IsActive != nil {
		set("is_active", *changes.IsActive)
	}
	sets = append(sets, "last_updated = NOW()")

	query := `UPDATE items SET ` + strings.Join(sets, ", ") + ` WHERE sku = $1`
	n, err := rowsAffected(r.q.ExecContext(ctx, query, args...))
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NotFound("item")
	}
	return nil
}

// DeactivateItemsExcept soft deletes active items whose SKU is not in keep
func (r *ItemRepository) DeactivateItemsExcept(ctx context.Context, keep []string) (int64, error) {
	query := `
		UPDATE items SET is_active = FALSE, last_updated = NOW()
		WHERE is_active AND NOT (sku = ANY($1))
	`
	return rowsAffected(r.q.ExecContext(ctx, query, pq.Array(keep)))
}

// DecrementItem removes qty units if at least that many are held
func (r *ItemRepository) DecrementItem(ctx context.Context, sku string, qty int) (bool, error) {
	query := `
		UPDATE items SET quantity = quantity - $2, last_updated = NOW()
		WHERE sku = $1 AND quantity >= $2
	`
	n, err := rowsAffected(r.q.ExecContext(ctx, query, sku, qty))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
