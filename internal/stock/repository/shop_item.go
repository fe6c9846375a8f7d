package repository

import (
	"context"

	"github.com/lib/pq"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
)

// ShopItemRepository handles shop holdings
type ShopItemRepository struct {
	q Querier
}

// NewShopItemRepository creates a new shop item repository
func NewShopItemRepository(q Querier) *ShopItemRepository {
	return &ShopItemRepository{q: q}
}

// GetShopItem gets the holding of sku by a shop user
func (r *ShopItemRepository) GetShopItem(ctx context.Context, userID, sku string) (*domain.ShopItem, error) {
	var si domain.ShopItem
	query := `
		SELECT id, shop_user_id, sku, quantity, last_updated
		FROM shop_items
		WHERE shop_user_id = $1 AND sku = $2
	`
	if err := r.q.GetContext(ctx, &si, query, userID, sku); err != nil {
		return nil, notFound(err, "shop item")
	}
	return &si, nil
}

// InsertShopItem creates a holding
func (r *ShopItemRepository) InsertShopItem(ctx context.Context, si *domain.ShopItem) error {
	query := `
		INSERT INTO shop_items (shop_user_id, sku, quantity, last_updated)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, last_updated
	`
	err := r.q.QueryRowxContext(ctx, query, si.ShopUserID, si.SKU, si.Quantity).Scan(&si.ID, &si.LastUpdated)
	return mapErr(err)
}

// UpdateShopItemQuantity sets the quantity of a holding
func (r *ShopItemRepository) UpdateShopItemQuantity(ctx context.Context, id int64, qty int) error {
	query := `UPDATE shop_items SET quantity = $2, last_updated = NOW() WHERE id = $1`
	_, err := rowsAffected(r.q.ExecContext(ctx, query, id, qty))
	return err
}

// AddShopItemQuantity adds qty to a holding, creating it if needed
func (r *ShopItemRepository) AddShopItemQuantity(ctx context.Context, userID, sku string, qty int) error {
	query := `
		INSERT INTO shop_items (shop_user_id, sku, quantity, last_updated)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT ON CONSTRAINT shop_items_user_sku
		DO UPDATE SET quantity = shop_items.quantity + EXCLUDED.quantity, last_updated = NOW()
	`
	_, err := rowsAffected(r.q.ExecContext(ctx, query, userID, sku, qty))
	return err
}

// DeleteShopItemsExcept deletes holdings whose (username, sku) pair is not in keep
func (r *ShopItemRepository) DeleteShopItemsExcept(ctx context.Context, keep []domain.ShopItemKey) (int64, error) {
	usernames := make([]string, len(keep))
	skus := make([]string, len(keep))
	for i, k := range keep {
		usernames[i] = k.Username
		skus[i] = k.SKU
	}

	query := `
		DELETE FROM shop_items s
		WHERE NOT EXISTS (
			SELECT 1
			FROM unnest($1::text[], $2::text[]) AS k(username, sku)
			JOIN stock_users u ON u.username = k.username
			WHERE u.user_id = s.shop_user_id AND k.sku = s.sku
		)
	`
	return rowsAffected(r.q.ExecContext(ctx, query, pq.Array(usernames), pq.Array(skus)))
}

// DeleteUnreferencedShopItems deletes holdings whose item reference is null
func (r *ShopItemRepository) DeleteUnreferencedShopItems(ctx context.Context) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx, `DELETE FROM shop_items WHERE sku IS NULL`))
}

// DeleteDanglingShopItems deletes holdings pointing at a SKU that no longer exists
func (r *ShopItemRepository) DeleteDanglingShopItems(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM shop_items s
		WHERE s.sku IS NOT NULL
		  AND NOT EXISTS (SELECT 1 FROM items i WHERE i.sku = s.sku)
	`
	return rowsAffected(r.q.ExecContext(ctx, query))
}

// ListShopStock lists holdings joined with their user and item
func (r *ShopItemRepository) ListShopStock(ctx context.Context, filter store.ShopStockFilter) ([]domain.ShopStockRow, error) {
	query := `
		SELECT s.id, s.shop_user_id, u.username, i.sku, i.description, i.retail_price,
		       s.quantity, i.is_active AS item_is_active, s.last_updated
		FROM shop_items s
		JOIN items i ON i.sku = s.sku
		JOIN stock_users u ON u.user_id = s.shop_user_id
	`
	var args []any
	if filter.UserID != "" {
		query += ` WHERE s.shop_user_id = $1`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY u.username, i.sku`

	rows := []domain.ShopStockRow{}
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
