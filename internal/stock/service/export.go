package service

import (
	"context"
	"time"
	_ "time/tzdata"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/logger"
)

const exportStamp = "02Jan2006_150405MST"

// Exporter builds the two-sheet workbook users download and re-upload.
type Exporter struct {
	store    store.Store
	location *time.Location
	logger   *logger.Logger
	now      func() time.Time
}

// NewExporter creates a new exporter. File names are stamped in the
// named time zone, falling back to UTC when it cannot be loaded.
func NewExporter(st store.Store, timeZone string, log *logger.Logger) *Exporter {
	loc, err := time.LoadLocation(timeZone)
	if err != nil || timeZone == "" {
		log.Warn().Err(err).Str("time_zone", timeZone).Msg("unknown export time zone, using UTC")
		loc = time.UTC
	}
	return &Exporter{store: st, location: loc, logger: log, now: time.Now}
}

// Filename returns the download name for an export made at t.
func (e *Exporter) Filename(t time.Time) string {
	return "SSM_DATA_" + t.In(e.location).Format(exportStamp) + ".xlsx"
}

// Export reads active items and the shop holdings visible to caller:
// every shop for managers, the caller's own otherwise. It writes nothing.
func (e *Exporter) Export(ctx context.Context, caller *actor.Actor) (*sheet.Workbook, string, error) {
	if caller == nil {
		return nil, "", errors.Unauthorized("authentication required")
	}
	if !caller.IsManager() && !caller.IsShopUser() {
		return nil, "", errors.Forbidden("only managers and shop users may export stock")
	}

	var (
		items []domain.Item
		held  []domain.ShopStockRow
	)
	err := e.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if items, err = tx.ListItems(ctx, store.ItemFilter{}); err != nil {
			return err
		}
		filter := store.ShopStockFilter{}
		if !caller.IsManager() {
			filter.UserID = caller.ID
		}
		held, err = tx.ListShopStock(ctx, filter)
		return err
	})
	if err != nil {
		return nil, "", err
	}

	return BuildWorkbook(items, held), e.Filename(e.now()), nil
}

// BuildWorkbook lays items and holdings out in the canonical sheets. Every
// holding is written, including holdings of inactive items.
func BuildWorkbook(items []domain.Item, held []domain.ShopStockRow) *sheet.Workbook {
	warehouse := sheet.Warehouse.NewSheet()
	for _, it := range items {
		warehouse.Append(it.SKU, it.Description, it.RetailPrice.InexactFloat64(), it.Quantity)
	}

	shop := sheet.Shop.NewSheet()
	for _, h := range held {
		shop.Append(h.Username, h.SKU, h.Description, h.RetailPrice.InexactFloat64(), h.Quantity)
	}

	wb := sheet.NewWorkbook()
	wb.Add(warehouse)
	wb.Add(shop)
	return wb
}
