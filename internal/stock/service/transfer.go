package service

import (
	"context"
	"time"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// ReserveRequest reserves warehouse stock for a shop. Managers may name
// another shop in Username.
type ReserveRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Username string `json:"username,omitempty"`
}

// CompleteRequest moves an ordered transfer into the shop's holdings.
type CompleteRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Username string `json:"username" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// CancelRequest drops a pending transfer. Username defaults to the caller.
type CancelRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Username string `json:"username,omitempty"`
}

// TransferService drives transfers through reserved, ordered and then
// fulfilled or cancelled. Fulfilled and cancelled transfers are deleted.
type TransferService struct {
	store    store.Store
	notifier NotificationSender
	logger   *logger.Logger
	now      func() time.Time
}

// NewTransferService creates a new transfer service. notifier may be nil.
func NewTransferService(st store.Store, notifier NotificationSender, log *logger.Logger) *TransferService {
	return &TransferService{
		store:    st,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// targetUser returns the shop a request acts on. Only managers may act on
// a shop other than their own.
func targetUser(ctx context.Context, tx store.Tx, caller *actor.Actor, username string) (*domain.StockUser, error) {
	if caller == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	if username == "" || username == caller.Username {
		return callerUser(ctx, tx, caller)
	}
	if !caller.IsManager() {
		return nil, errors.Forbidden("you may only act on your own transfers")
	}
	u, err := tx.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.NotFound("shop user")
		}
		return nil, err
	}
	return u, nil
}

// Reserve creates or replaces the caller's reservation for an item. The
// quantity replaces any earlier reservation rather than adding to it.
func (s *TransferService) Reserve(ctx context.Context, caller *actor.Actor, req ReserveRequest) (*domain.TransferItem, error) {
	if req.Quantity <= 0 {
		return nil, errors.Validation(map[string]string{"quantity": "must be greater than 0"})
	}
	if caller != nil && !caller.IsManager() && !caller.IsShopUser() {
		return nil, errors.Forbidden("only shop users may reserve stock")
	}

	var reserved *domain.TransferItem
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.EditLock && !caller.IsManager() {
			return errors.EditLocked()
		}

		user, err := targetUser(ctx, tx, caller, req.Username)
		if err != nil {
			return err
		}

		item, err := tx.LockItem(ctx, req.SKU)
		if err != nil {
			return err
		}
		if !item.IsActive {
			return errors.NotFound("item")
		}
		if req.Quantity > item.Quantity {
			return errors.InsufficientStock(item.SKU, req.Quantity, item.Quantity)
		}

		existing, err := tx.GetTransfer(ctx, user.UserID, item.SKU)
		switch {
		case errors.Is(err, errors.ErrNotFound):
			reserved = &domain.TransferItem{
				ShopUserID: user.UserID,
				SKU:        item.SKU,
				Quantity:   req.Quantity,
			}
			return tx.InsertTransfer(ctx, reserved)
		case err != nil:
			return err
		case existing.Ordered:
			return errors.AlreadyOrdered(item.SKU)
		}

		if err := tx.UpdateTransferQuantity(ctx, existing.ID, req.Quantity); err != nil {
			return err
		}
		existing.Quantity = req.Quantity
		reserved = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("sku", reserved.SKU).
		Str("shop_user_id", reserved.ShopUserID).
		Int("quantity", reserved.Quantity).
		Msg("transfer reserved")
	return reserved, nil
}

// Submit orders every reserved transfer of the caller and, once committed,
// notifies the warehouse. It is refused while the edit lock is set.
func (s *TransferService) Submit(ctx context.Context, caller *actor.Actor) ([]domain.TransferLine, error) {
	var (
		lines   []domain.TransferLine
		user    *domain.StockUser
		deliver bool
	)
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		cfg, err := tx.GetConfig(ctx)
		if err != nil {
			return err
		}
		if cfg.EditLock {
			return errors.EditLocked()
		}
		deliver = cfg.AllowEmailNotifications

		user, err = callerUser(ctx, tx, caller)
		if err != nil {
			return err
		}

		ids, err := tx.OrderReservedTransfers(ctx, user.UserID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return errors.NothingToSubmit()
		}

		lines, err = tx.ListTransfers(ctx, store.TransferFilter{IDs: ids})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", user.Username).Int("lines", len(lines)).Msg("transfer request submitted")

	if s.notifier != nil {
		req := TransferRequest{
			UserID:      user.UserID,
			Username:    user.Username,
			Email:       user.Email,
			Records:     make([]TransferRecord, 0, len(lines)),
			Deliver:     deliver,
			RequestedAt: s.now().UTC(),
		}
		for _, l := range lines {
			req.Records = append(req.Records, TransferRecord{
				TransferID:  l.ID,
				SKU:         l.SKU,
				Description: l.Description,
				RetailPrice: l.RetailPrice,
				Quantity:    l.Quantity,
			})
		}
		s.notifier.NotifyTransferRequest(ctx, req)
	}
	return lines, nil
}

// Complete fulfils an ordered transfer: the shop gains qty, the warehouse
// loses it and the transfer is removed, all or nothing.
func (s *TransferService) Complete(ctx context.Context, caller *actor.Actor, req CompleteRequest) error {
	if err := requireManager(caller); err != nil {
		return err
	}
	if req.Quantity <= 0 {
		return errors.Validation(map[string]string{"quantity": "must be greater than 0"})
	}

	err := s.store.InTx(ctx, func(tx store.Tx) error {
		user, err := tx.GetUserByUsername(ctx, req.Username)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return errors.NotFound("shop user")
			}
			return err
		}

		item, err := tx.LockItem(ctx, req.SKU)
		if err != nil {
			return err
		}

		transfer, err := tx.GetTransfer(ctx, user.UserID, item.SKU)
		if err != nil {
			return err
		}
		if !transfer.Ordered {
			return errors.NotOrdered(item.SKU)
		}
		if req.Quantity > item.Quantity {
			return errors.InsufficientStock(item.SKU, req.Quantity, item.Quantity)
		}

		if err := tx.AddShopItemQuantity(ctx, user.UserID, item.SKU, req.Quantity); err != nil {
			return err
		}
		ok, err := tx.DecrementItem(ctx, item.SKU, req.Quantity)
		if err != nil {
			return err
		}
		if !ok {
			return errors.InsufficientStock(item.SKU, req.Quantity, item.Quantity)
		}
		_, err = tx.DeleteTransfer(ctx, user.UserID, item.SKU)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("sku", req.SKU).
		Str("username", req.Username).
		Int("quantity", req.Quantity).
		Str("completed_by", caller.Username).
		Msg("transfer completed")
	return nil
}

// Cancel deletes a pending transfer in either state. It ignores the edit
// lock. Non-managers may only cancel their own.
func (s *TransferService) Cancel(ctx context.Context, caller *actor.Actor, req CancelRequest) error {
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		user, err := targetUser(ctx, tx, caller, req.Username)
		if err != nil {
			return err
		}
		n, err := tx.DeleteTransfer(ctx, user.UserID, req.SKU)
		if err != nil {
			return err
		}
		if n == 0 {
			return errors.NotFound("transfer")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("sku", req.SKU).Str("cancelled_by", caller.Username).Msg("transfer cancelled")
	return nil
}

// List returns ordered transfers of every shop for managers and the
// caller's own transfers otherwise.
func (s *TransferService) List(ctx context.Context, caller *actor.Actor) ([]domain.TransferLine, error) {
	if caller == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	filter := store.TransferFilter{UserID: caller.ID}
	if caller.IsManager() {
		filter = store.TransferFilter{State: domain.TransferOrdered}
	}

	var lines []domain.TransferLine
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		lines, err = tx.ListTransfers(ctx, filter)
		return err
	})
	return lines, err
}
