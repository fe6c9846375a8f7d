package service

import (
	"context"

	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// SweepResult counts the shop holdings a sweep removed.
type SweepResult struct {
	Unreferenced int64 `json:"unreferenced"`
	Dangling     int64 `json:"dangling"`
}

// Total is the number of rows removed.
func (r SweepResult) Total() int64 {
	return r.Unreferenced + r.Dangling
}

// Sweeper removes shop holdings whose item is gone.
type Sweeper struct {
	store  store.Store
	logger *logger.Logger
}

// NewSweeper creates a new sweeper
func NewSweeper(st store.Store, log *logger.Logger) *Sweeper {
	return &Sweeper{store: st, logger: log}
}

// Sweep runs a sweep in its own transaction.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		res, err = s.SweepTx(ctx, tx)
		return err
	})
	if err != nil {
		return SweepResult{}, err
	}
	return res, nil
}

// SweepTx sweeps inside tx. Holdings with a null reference go first, then
// holdings whose SKU matches no item. Running it twice removes nothing
// the second time.
func (s *Sweeper) SweepTx(ctx context.Context, tx store.Tx) (SweepResult, error) {
	var res SweepResult
	var err error

	if res.Unreferenced, err = tx.DeleteUnreferencedShopItems(ctx); err != nil {
		return SweepResult{}, err
	}
	if res.Dangling, err = tx.DeleteDanglingShopItems(ctx); err != nil {
		return SweepResult{}, err
	}

	if res.Dangling > 0 {
		s.logger.Warn().Int64("count", res.Dangling).Msg("deleted shop items referencing missing SKUs")
	}
	if res.Total() > 0 {
		s.logger.Info().
			Int64("unreferenced", res.Unreferenced).
			Int64("dangling", res.Dangling).
			Msg("orphaned shop items swept")
	}
	return res, nil
}
