// Package store declares the persistence boundary of the stock service.
// The postgres implementation lives in repository; memstore is an
// in-memory implementation used by tests.
package store

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/domain"
)

// Store runs units of work. fn's Tx must not escape the call. A non-nil
// error from fn rolls everything back and is returned unchanged.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is every query the services run, scoped to one transaction.
type Tx interface {
	ConfigStore
	ItemStore
	ShopItemStore
	TransferStore
	UserStore

	// LockReconcile serializes reconciliation runs until the transaction ends.
	LockReconcile(ctx context.Context) error
}

// ConfigStore reads and writes the admin config singleton.
type ConfigStore interface {
	// GetConfig reads the config with a share lock so an edit-lock flip
	// waits for this transaction.
	GetConfig(ctx context.Context) (domain.AdminConfig, error)
	// UpdateConfig writes every flag except the edit lock.
	UpdateConfig(ctx context.Context, cfg domain.AdminConfig) error
	// SetEditLock sets the lock to locked only if it currently equals
	// expected, reporting whether it did.
	SetEditLock(ctx context.Context, expected, locked bool) (bool, error)
}

// ItemFilter narrows ListItems.
type ItemFilter struct {
	Search          string
	IncludeInactive bool
	SKUs            []string
}

// ItemChanges holds the fields an update touches. Nil fields are left
// alone; LastUpdated moves only when at least one field is set.
type ItemChanges struct {
	Description *string
	RetailPrice *decimal.Decimal
	Quantity    *int
	IsActive    *bool
}

// Empty reports whether nothing would change.
func (c ItemChanges) Empty() bool {
	return c.Description == nil && c.RetailPrice == nil && c.Quantity == nil && c.IsActive == nil
}

// ItemStore persists warehouse items.
type ItemStore interface {
	GetItem(ctx context.Context, sku string) (*domain.Item, error)
	// LockItem reads the item with a row lock held until the transaction ends.
	LockItem(ctx context.Context, sku string) (*domain.Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]domain.Item, error)
	InsertItem(ctx context.Context, item *domain.Item) error
	UpdateItem(ctx context.Context, sku string, changes ItemChanges) error
	// DeactivateItemsExcept soft deletes every active item not in keep.
	DeactivateItemsExcept(ctx context.Context, keep []string) (int64, error)
	// DecrementItem removes qty units, reporting false when fewer are held.
	DecrementItem(ctx context.Context, sku string, qty int) (bool, error)
}

// ShopStockFilter narrows ListShopStock. An empty UserID lists every shop.
type ShopStockFilter struct {
	UserID string
}

// ShopItemStore persists shop holdings.
type ShopItemStore interface {
	GetShopItem(ctx context.Context, userID, sku string) (*domain.ShopItem, error)
	InsertShopItem(ctx context.Context, item *domain.ShopItem) error
	UpdateShopItemQuantity(ctx context.Context, id int64, qty int) error
	// AddShopItemQuantity creates the holding or adds qty to it.
	AddShopItemQuantity(ctx context.Context, userID, sku string, qty int) error
	// DeleteShopItemsExcept removes holdings whose (username, sku) is not in keep.
	DeleteShopItemsExcept(ctx context.Context, keep []domain.ShopItemKey) (int64, error)
	// DeleteUnreferencedShopItems removes holdings with no item reference.
	DeleteUnreferencedShopItems(ctx context.Context) (int64, error)
	// DeleteDanglingShopItems removes holdings whose SKU matches no item.
	DeleteDanglingShopItems(ctx context.Context) (int64, error)
	ListShopStock(ctx context.Context, filter ShopStockFilter) ([]domain.ShopStockRow, error)
}

// TransferFilter narrows ListTransfers. Zero values match everything.
type TransferFilter struct {
	UserID string
	State  domain.TransferState
	IDs    []int64
}

// TransferStore persists pending transfers.
type TransferStore interface {
	// GetTransfer reads the transfer with a row lock.
	GetTransfer(ctx context.Context, userID, sku string) (*domain.TransferItem, error)
	InsertTransfer(ctx context.Context, t *domain.TransferItem) error
	UpdateTransferQuantity(ctx context.Context, id int64, qty int) error
	// OrderReservedTransfers marks the user's reserved transfers ordered and
	// returns their ids.
	OrderReservedTransfers(ctx context.Context, userID string) ([]int64, error)
	DeleteTransfer(ctx context.Context, userID, sku string) (int64, error)
	ListTransfers(ctx context.Context, filter TransferFilter) ([]domain.TransferLine, error)
}

// UserStore is the local copy of identity-service users.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*domain.StockUser, error)
	// GetUserByUsername returns only active users.
	GetUserByUsername(ctx context.Context, username string) (*domain.StockUser, error)
	UpsertUser(ctx context.Context, u *domain.StockUser) error
	DeactivateUser(ctx context.Context, userID string) error
	// ListUsersInGroup returns active members of group.
	ListUsersInGroup(ctx context.Context, group string) ([]domain.StockUser, error)
}
