package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
)

// TransferRepository handles pending transfers
type TransferRepository struct {
	q Querier
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(q Querier) *TransferRepository {
	return &TransferRepository{q: q}
}

// GetTransfer gets and locks the transfer of sku to a shop user
func (r *TransferRepository) GetTransfer(ctx context.Context, userID, sku string) (*domain.TransferItem, error) {
	var t domain.TransferItem
	query := `
		SELECT id, shop_user_id, sku, quantity, ordered, created_at, last_updated
		FROM transfer_items
		WHERE shop_user_id = $1 AND sku = $2
		FOR UPDATE
	`
	if err := r.q.GetContext(ctx, &t, query, userID, sku); err != nil {
		return nil, notFound(err, "transfer")
	}
	return &t, nil
}

// InsertTransfer creates a transfer
func (r *TransferRepository) InsertTransfer(ctx context.Context, t *domain.TransferItem) error {
	query := `
		INSERT INTO transfer_items (shop_user_id, sku, quantity, ordered, created_at, last_updated)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, last_updated
	`
	err := r.q.QueryRowxContext(ctx, query, t.ShopUserID, t.SKU, t.Quantity, t.Ordered).
		Scan(&t.ID, &t.CreatedAt, &t.LastUpdated)
	return mapErr(err)
}

// UpdateTransferQuantity sets the quantity of a transfer
func (r *TransferRepository) UpdateTransferQuantity(ctx context.Context, id int64, qty int) error {
	query := `UPDATE transfer_items SET quantity = $2, last_updated = NOW() WHERE id = $1`
	_, err := rowsAffected(r.q.ExecContext(ctx, query, id, qty))
	return err
}

// OrderReservedTransfers marks every reserved transfer of a user as ordered
func (r *TransferRepository) OrderReservedTransfers(ctx context.Context, userID string) ([]int64, error) {
	query := `
		UPDATE transfer_items SET ordered = TRUE, last_updated = NOW()
		WHERE shop_user_id = $1 AND NOT ordered
		RETURNING id
	`
	ids := []int64{}
	if err := r.q.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteTransfer deletes the transfer of sku to a shop user
func (r *TransferRepository) DeleteTransfer(ctx context.Context, userID, sku string) (int64, error) {
	query := `DELETE FROM transfer_items WHERE shop_user_id = $1 AND sku = $2`
	return rowsAffected(r.q.ExecContext(ctx, query, userID, sku))
}

// ListTransfers lists transfers joined with their user and item
func (r *TransferRepository) ListTransfers(ctx context.Context, filter store.TransferFilter) ([]domain.TransferLine, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("t.shop_user_id = $%d", len(args)))
	}
	switch filter.State {
	case domain.TransferOrdered:
		conds = append(conds, "t.ordered")
	case domain.TransferReserved:
		conds = append(conds, "NOT t.ordered")
	}
	if filter.IDs != nil {
		args = append(args, pq.Array(filter.IDs))
		conds = append(conds, fmt.Sprintf("t.id = ANY($%d)", len(args)))
	}

	query := `
		SELECT t.id, t.shop_user_id, u.username, t.sku, i.description, i.retail_price,
		       t.quantity, t.ordered, t.last_updated
		FROM transfer_items t
		JOIN items i ON i.sku = t.sku
		JOIN stock_users u ON u.user_id = t.shop_user_id
	`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY u.username, t.sku`

	lines := []domain.TransferLine{}
	if err := r.q.SelectContext(ctx, &lines, query, args...); err != nil {
		return nil, err
	}
	return lines, nil
}
