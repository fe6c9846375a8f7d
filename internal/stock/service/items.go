package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/numeric"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// ItemInput carries item fields from the API. Nil fields are left alone
// on update and defaulted on create.
type ItemInput struct {
	SKU         string           `json:"sku"`
	Description *string          `json:"description,omitempty"`
	RetailPrice *decimal.Decimal `json:"retail_price,omitempty"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,gte=0"`
}

func (in ItemInput) validate() error {
	details := map[string]string{}
	if in.RetailPrice != nil && in.RetailPrice.IsNegative() {
		details["retail_price"] = "must not be negative"
	}
	if in.Quantity != nil && *in.Quantity < 0 {
		details["quantity"] = "must not be negative"
	}
	if len(details) > 0 {
		return errors.Validation(details)
	}
	return nil
}

// changes diffs in against item.
func (in ItemInput) changes(item *domain.Item) store.ItemChanges {
	var c store.ItemChanges
	if in.Description != nil {
		if d := strings.TrimSpace(*in.Description); d != item.Description {
			c.Description = &d
		}
	}
	if in.RetailPrice != nil {
		p := in.RetailPrice.Round(domain.PriceScale)
		if !p.Equal(item.RetailPrice) {
			c.RetailPrice = &p
		}
	}
	if in.Quantity != nil && *in.Quantity != item.Quantity {
		c.Quantity = in.Quantity
	}
	return c
}

// ItemQuery narrows List.
type ItemQuery struct {
	Search          string
	IncludeInactive bool
}

// ItemService handles the warehouse item API
type ItemService struct {
	store  store.Store
	logger *logger.Logger
}

// NewItemService creates a new item service
func NewItemService(st store.Store, log *logger.Logger) *ItemService {
	return &ItemService{store: st, logger: log}
}

// List returns active items matching the query. Only managers see
// inactive items.
func (s *ItemService) List(ctx context.Context, caller *actor.Actor, q ItemQuery) ([]domain.Item, error) {
	filter := store.ItemFilter{
		Search:          strings.TrimSpace(q.Search),
		IncludeInactive: q.IncludeInactive && caller.IsManager(),
	}
	var items []domain.Item
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		items, err = tx.ListItems(ctx, filter)
		return err
	})
	return items, err
}

// Get returns one item. Inactive items are hidden from non-managers.
func (s *ItemService) Get(ctx context.Context, caller *actor.Actor, sku string) (*domain.Item, error) {
	var item *domain.Item
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		item, err = tx.GetItem(ctx, sku)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !item.IsActive && !caller.IsManager() {
		return nil, errors.NotFound("item")
	}
	return item, nil
}

// Create adds an item, or reactivates and updates an inactive one with the
// same SKU. The boolean reports a reactivation.
func (s *ItemService) Create(ctx context.Context, caller *actor.Actor, in ItemInput) (*domain.Item, bool, error) {
	if err := requireManager(caller); err != nil {
		return nil, false, err
	}
	in.SKU = strings.TrimSpace(in.SKU)
	if in.SKU == "" {
		return nil, false, errors.Validation(map[string]string{"sku": "this field is required"})
	}
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	var (
		item        *domain.Item
		reactivated bool
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		existing, err := tx.LockItem(ctx, in.SKU)
		if errors.Is(err, errors.ErrNotFound) {
			item = &domain.Item{SKU: in.SKU, RetailPrice: numeric.ZeroPrice, IsActive: true}
			if in.Description != nil {
				item.Description = strings.TrimSpace(*in.Description)
			}
			if in.RetailPrice != nil {
				item.RetailPrice = in.RetailPrice.Round(domain.PriceScale)
			}
			if in.Quantity != nil {
				item.Quantity = *in.Quantity
			}
			return tx.InsertItem(ctx, item)
		}
		if err != nil {
			return err
		}
		if existing.IsActive {
			return errors.Conflict("Item with this SKU already exists.")
		}

		changes := in.changes(existing)
		active := true
		changes.IsActive = &active
		if err := tx.UpdateItem(ctx, in.SKU, changes); err != nil {
			return err
		}
		reactivated = true
		item, err = tx.GetItem(ctx, in.SKU)
		return err
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.Info().Str("sku", item.SKU).Bool("reactivated", reactivated).Msg("item saved")
	return item, reactivated, nil
}

// Update applies the fields of in that differ. Updating an inactive item
// reactivates it.
func (s *ItemService) Update(ctx context.Context, caller *actor.Actor, sku string, in ItemInput) (*domain.Item, error) {
	if err := requireManager(caller); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	var item *domain.Item
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		existing, err := tx.LockItem(ctx, sku)
		if err != nil {
			return err
		}
		changes := in.changes(existing)
		if !existing.IsActive {
			active := true
			changes.IsActive = &active
		}
		if changes.Empty() {
			item = existing
			return nil
		}
		if err := tx.UpdateItem(ctx, sku, changes); err != nil {
			return err
		}
		item, err = tx.GetItem(ctx, sku)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete soft deletes an item. Holdings and transfers are kept.
func (s *ItemService) Delete(ctx context.Context, caller *actor.Actor, sku string) error {
	if err := requireManager(caller); err != nil {
		return err
	}
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		inactive := false
		return tx.UpdateItem(ctx, sku, store.ItemChanges{IsActive: &inactive})
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("sku", sku).Str("deleted_by", caller.Username).Msg("item deactivated")
	return nil
}

// ShopStock lists a shop's holdings. Managers may name any shop; everyone
// else sees their own.
func (s *ItemService) ShopStock(ctx context.Context, caller *actor.Actor, username string) ([]domain.ShopStockRow, error) {
	var rows []domain.ShopStockRow
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		user, err := targetUser(ctx, tx, caller, username)
		if err != nil {
			return err
		}
		rows, err = tx.ListShopStock(ctx, store.ShopStockFilter{UserID: user.UserID})
		return err
	})
	return rows, err
}
