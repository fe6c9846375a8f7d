package testutil

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/pkg/actor"
)

// FixtureFactory creates test fixtures with sensible defaults
type FixtureFactory struct {
	sequence int
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory() *FixtureFactory {
	return &FixtureFactory{sequence: 0}
}

// nextSeq returns the next sequence number for unique values
func (f *FixtureFactory) nextSeq() int {
	f.sequence++
	return f.sequence
}

// Item creates an active warehouse item with defaults
func (f *FixtureFactory) Item(opts ...func(*domain.Item)) domain.Item {
	seq := f.nextSeq()

	item := domain.Item{
		SKU:         fmt.Sprintf("SKU-%04d", seq),
		Description: fmt.Sprintf("Test item %d", seq),
		RetailPrice: decimal.RequireFromString("9.99"),
		Quantity:    10,
		IsActive:    true,
		LastUpdated: time.Now(),
	}

	for _, opt := range opts {
		opt(&item)
	}

	return item
}

// WithSKU sets the item SKU
func WithSKU(sku string) func(*domain.Item) {
	return func(i *domain.Item) {
		i.SKU = sku
	}
}

// WithQuantity sets the item's warehouse quantity
func WithQuantity(qty int) func(*domain.Item) {
	return func(i *domain.Item) {
		i.Quantity = qty
	}
}

// WithPrice sets the item price
func WithPrice(price string) func(*domain.Item) {
	return func(i *domain.Item) {
		i.RetailPrice = decimal.RequireFromString(price)
	}
}

// Inactive marks the item soft deleted
func Inactive() func(*domain.Item) {
	return func(i *domain.Item) {
		i.IsActive = false
	}
}

// User creates an active stock user in the shop_users group
func (f *FixtureFactory) User(opts ...func(*domain.StockUser)) domain.StockUser {
	seq := f.nextSeq()

	user := domain.StockUser{
		UserID:    uuid.New().String(),
		Username:  fmt.Sprintf("shop%d", seq),
		Email:     fmt.Sprintf("shop%d@test.shopstock.local", seq),
		Groups:    []string{actor.GroupShopUsers},
		IsActive:  true,
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(&user)
	}

	return user
}

// WithUsername sets the username
func WithUsername(username string) func(*domain.StockUser) {
	return func(u *domain.StockUser) {
		u.Username = username
	}
}

// WithGroups replaces the user's groups
func WithGroups(groups ...string) func(*domain.StockUser) {
	return func(u *domain.StockUser) {
		u.Groups = groups
	}
}

// Manager creates an active user in the managers and receive_mail groups
func (f *FixtureFactory) Manager() domain.StockUser {
	return f.User(WithGroups(actor.GroupManagers, actor.GroupReceiveMail))
}

// ActorFor returns the actor a JWT for user would carry
func ActorFor(u domain.StockUser) *actor.Actor {
	return &actor.Actor{
		ID:       u.UserID,
		Username: u.Username,
		Email:    u.Email,
		Groups:   u.Groups,
	}
}
