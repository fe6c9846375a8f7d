// Package domain holds the stock records and the small state types that
// describe their lifecycle.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places every stored price carries.
const PriceScale = 2

// ItemState is the lifecycle of a warehouse item. Items are never
// physically deleted; they move between Active and Inactive.
type ItemState string

const (
	ItemActive   ItemState = "active"
	ItemInactive ItemState = "inactive"
)

// Item is a warehouse SKU.
type Item struct {
	SKU         string          `json:"sku" db:"sku"`
	Description string          `json:"description" db:"description"`
	RetailPrice decimal.Decimal `json:"retail_price" db:"retail_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	LastUpdated time.Time       `json:"last_updated" db:"last_updated"`
}

// State returns the item's lifecycle state.
func (i *Item) State() ItemState {
	if i.IsActive {
		return ItemActive
	}
	return ItemInactive
}

// ShopItem is the quantity of an item held by one shop user. SKU is nil
// once the referenced item is gone; the sweeper removes such rows.
type ShopItem struct {
	ID          int64     `json:"id" db:"id"`
	ShopUserID  string    `json:"shop_user_id" db:"shop_user_id"`
	SKU         *string   `json:"sku" db:"sku"`
	Quantity    int       `json:"quantity" db:"quantity"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// ShopStockRow is a shop holding joined with its user and item, the shape
// used by listings and the export.
type ShopStockRow struct {
	ID           int64           `json:"id" db:"id"`
	ShopUserID   string          `json:"shop_user_id" db:"shop_user_id"`
	Username     string          `json:"username" db:"username"`
	SKU          string          `json:"sku" db:"sku"`
	Description  string          `json:"description" db:"description"`
	RetailPrice  decimal.Decimal `json:"retail_price" db:"retail_price"`
	Quantity     int             `json:"quantity" db:"quantity"`
	ItemIsActive bool            `json:"item_is_active" db:"item_is_active"`
	LastUpdated  time.Time       `json:"last_updated" db:"last_updated"`
}

// ShopItemKey identifies a shop holding by the names used in spreadsheets.
type ShopItemKey struct {
	Username string
	SKU      string
}

// TransferState is the lifecycle of a pending transfer. Fulfilled and
// cancelled transfers are deleted, so only two states are ever stored.
type TransferState string

const (
	TransferReserved TransferState = "reserved"
	TransferOrdered  TransferState = "ordered"
)

// TransferItem is a shop user's pending request for warehouse stock.
type TransferItem struct {
	ID          int64     `json:"id" db:"id"`
	ShopUserID  string    `json:"shop_user_id" db:"shop_user_id"`
	SKU         string    `json:"sku" db:"sku"`
	Quantity    int       `json:"quantity" db:"quantity"`
	Ordered     bool      `json:"ordered" db:"ordered"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
}

// State returns the transfer's lifecycle state.
func (t *TransferItem) State() TransferState {
	if t.Ordered {
		return TransferOrdered
	}
	return TransferReserved
}

// TransferLine is a transfer joined with its user and item.
type TransferLine struct {
	ID          int64           `json:"id" db:"id"`
	ShopUserID  string          `json:"shop_user_id" db:"shop_user_id"`
	Username    string          `json:"username" db:"username"`
	SKU         string          `json:"sku" db:"sku"`
	Description string          `json:"description" db:"description"`
	RetailPrice decimal.Decimal `json:"retail_price" db:"retail_price"`
	Quantity    int             `json:"quantity" db:"quantity"`
	Ordered     bool            `json:"ordered" db:"ordered"`
	LastUpdated time.Time       `json:"last_updated" db:"last_updated"`
}

// Mode is the effective state of the global edit lock.
type Mode string

const (
	ModeNormal      Mode = "normal"
	ModeMaintenance Mode = "maintenance"
)

// DefaultRecordsPerPage is used when no admin config row exists yet.
const DefaultRecordsPerPage = 25

// AdminConfig is the singleton administrative configuration. It is read
// once per operation and passed down; nothing below the service layer
// reads it on its own.
type AdminConfig struct {
	EditLock                bool      `json:"edit_lock" db:"edit_lock"`
	AllowUploads            bool      `json:"allow_uploads" db:"allow_uploads"`
	AllowUploadDeletions    bool      `json:"allow_upload_deletions" db:"allow_upload_deletions"`
	AllowEmailNotifications bool      `json:"allow_email_notifications" db:"allow_email_notifications"`
	RecordsPerPage          int       `json:"records_per_page" db:"records_per_page"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultAdminConfig mirrors the seeded row.
func DefaultAdminConfig() AdminConfig {
	return AdminConfig{
		AllowUploads:            true,
		AllowEmailNotifications: true,
		RecordsPerPage:          DefaultRecordsPerPage,
	}
}

// Mode returns Maintenance while the edit lock is set.
func (c AdminConfig) Mode() Mode {
	if c.EditLock {
		return ModeMaintenance
	}
	return ModeNormal
}

// StockUser is the local copy of an identity-service user.
type StockUser struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Email     string    `json:"email" db:"email"`
	Groups    []string  `json:"groups" db:"-"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// InGroup reports whether the user belongs to group.
func (u *StockUser) InGroup(group string) bool {
	for _, g := range u.Groups {
		if g == group {
			return true
		}
	}
	return false
}
