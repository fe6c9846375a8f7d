// Package service holds the stock business logic: spreadsheet
// reconciliation, the transfer lifecycle, orphan sweeping, export and the
// item and config operations behind the HTTP API.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
)

// TransferRecord is one line of a submitted transfer request.
type TransferRecord struct {
	TransferID  int64           `json:"transfer_id"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	RetailPrice decimal.Decimal `json:"retail_price"`
	Quantity    int             `json:"quantity"`
}

// TransferRequest is what managers are told when a shop submits its
// reserved transfers.
type TransferRequest struct {
	UserID      string           `json:"user_id"`
	Username    string           `json:"username"`
	Email       string           `json:"email,omitempty"`
	Records     []TransferRecord `json:"records"`
	Deliver     bool             `json:"deliver"`
	RequestedAt time.Time        `json:"requested_at"`
}

// NotificationSender is told about submitted transfers once they are
// committed. Implementations log their own failures.
type NotificationSender interface {
	NotifyTransferRequest(ctx context.Context, req TransferRequest)
}

// ReconcileListener is told about committed reconciliations.
type ReconcileListener interface {
	StockReconciled(ctx context.Context, by *actor.Actor, result *ReconcileResult)
}

func requireManager(caller *actor.Actor) error {
	if caller == nil {
		return errors.Unauthorized("authentication required")
	}
	if !caller.IsManager() {
		return errors.Forbidden("only managers may perform this action")
	}
	return nil
}

// callerUser loads the stock user behind caller.
func callerUser(ctx context.Context, tx store.Tx, caller *actor.Actor) (*domain.StockUser, error) {
	if caller == nil {
		return nil, errors.Unauthorized("authentication required")
	}
	u, err := tx.GetUser(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Forbidden("your account is not registered as a shop")
		}
		return nil, err
	}
	return u, nil
}
