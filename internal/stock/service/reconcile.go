package service

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/shopstock/stock-backend/internal/stock/adapter"
	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/numeric"
	"github.com/shopstock/stock-backend/internal/stock/sheet"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// ReconcileOptions tunes a reconciliation run.
type ReconcileOptions struct {
	// DryRun performs every step and then rolls back.
	DryRun bool
}

// ReconcileResult reports what a run did. SkippedSKUs lists SKUs with at
// least one cell that could not be read; their other fields were applied.
type ReconcileResult struct {
	ProcessedSKUs    []string `json:"processed_skus"`
	SkippedSKUs      []string `json:"skipped_skus"`
	ItemsCreated     int      `json:"items_created"`
	ItemsUpdated     int      `json:"items_updated"`
	ItemsReactivated int      `json:"items_reactivated"`
	ItemsDeactivated int      `json:"items_deactivated"`
	ShopItemsCreated int      `json:"shop_items_created"`
	ShopItemsUpdated int      `json:"shop_items_updated"`
	ShopItemsDeleted int      `json:"shop_items_deleted"`
	RowsSkipped      int      `json:"rows_skipped"`
	OrphansSwept     int      `json:"orphans_swept"`
	DryRun           bool     `json:"dry_run"`
}

// Partial reports whether some cells were skipped.
func (r *ReconcileResult) Partial() bool {
	return len(r.SkippedSKUs) > 0
}

var errDryRun = stderrors.New("dry run")

// Reconciler merges uploaded workbooks into the stored stock.
type Reconciler struct {
	store    store.Store
	sweeper  *Sweeper
	adapter  adapter.Adapter
	listener ReconcileListener
	logger   *logger.Logger
}

// NewReconciler creates a new reconciler. conv and listener may be nil.
func NewReconciler(st store.Store, sweeper *Sweeper, conv adapter.Adapter, listener ReconcileListener, log *logger.Logger) *Reconciler {
	return &Reconciler{
		store:    st,
		sweeper:  sweeper,
		adapter:  conv,
		listener: listener,
		logger:   log,
	}
}

// Reconcile applies wb in a single transaction. cfg is the admin config
// read by the caller; only AllowUploadDeletions is consulted. Any error
// rolls back every change, sweep included.
func (r *Reconciler) Reconcile(ctx context.Context, wb *sheet.Workbook, cfg domain.AdminConfig, opts ReconcileOptions) (*ReconcileResult, error) {
	if wb == nil {
		return nil, errors.BadRequest("no workbook supplied")
	}

	caller := actor.FromContext(ctx)
	log := r.logger.WithComponent("reconciler")
	if caller != nil {
		log = log.WithUser(caller.ID, caller.Username)
	}

	run := &reconcileRun{
		r:         r,
		wb:        wb,
		cfg:       cfg,
		log:       log,
		result:    &ReconcileResult{DryRun: opts.DryRun},
		processed: map[string]bool{},
		skipped:   map[string]bool{},

		itemFieldsSet: map[string]bool{},
	}

	err := r.store.InTx(ctx, func(tx store.Tx) error {
		if err := tx.LockReconcile(ctx); err != nil {
			return err
		}
		swept, err := r.sweeper.SweepTx(ctx, tx)
		if err != nil {
			return err
		}
		run.result.OrphansSwept = int(swept.Total())

		if err := run.warehouse(ctx, tx); err != nil {
			return err
		}
		if err := run.shop(ctx, tx); err != nil {
			return err
		}

		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !stderrors.Is(err, errDryRun) {
		log.Error().Err(err).Msg("reconciliation rolled back")
		return nil, err
	}

	res := run.finish()
	log.Info().
		Bool("dry_run", res.DryRun).
		Int("processed", len(res.ProcessedSKUs)).
		Int("skipped", len(res.SkippedSKUs)).
		Int("items_created", res.ItemsCreated).
		Int("items_updated", res.ItemsUpdated).
		Int("items_deactivated", res.ItemsDeactivated).
		Int("shop_items_deleted", res.ShopItemsDeleted).
		Msg("reconciliation completed")

	if !res.DryRun && r.listener != nil {
		r.listener.StockReconciled(ctx, caller, res)
	}
	return res, nil
}

type reconcileRun struct {
	r   *Reconciler
	wb  *sheet.Workbook
	cfg domain.AdminConfig
	log *logger.Logger

	converted   *sheet.Workbook
	convertErr  error
	convertDone bool

	result      *ReconcileResult
	processed   map[string]bool
	skipped     map[string]bool
	skippedList []string
	// SKUs whose item fields were already set by an earlier row this run.
	// The warehouse sheet is read first, so it wins over shop rows.
	itemFieldsSet map[string]bool
}

func (run *reconcileRun) finish() *ReconcileResult {
	res := run.result
	res.ProcessedSKUs = make([]string, 0, len(run.processed))
	for sku := range run.processed {
		res.ProcessedSKUs = append(res.ProcessedSKUs, sku)
	}
	sort.Strings(res.ProcessedSKUs)
	res.SkippedSKUs = append([]string{}, run.skippedList...)
	return res
}

func (run *reconcileRun) skip(sku string) {
	if !run.skipped[sku] {
		run.skipped[sku] = true
		run.skippedList = append(run.skippedList, sku)
	}
}

// convert calls the adapter at most once per run.
func (run *reconcileRun) convert(ctx context.Context) (*sheet.Workbook, error) {
	if run.convertDone {
		return run.converted, run.convertErr
	}
	run.convertDone = true

	if run.r.adapter == nil {
		run.convertErr = errors.ConversionFailed("no spreadsheet adapter is configured for this layout")
		return nil, run.convertErr
	}

	run.log.Info().Strs("sheets", run.wb.Names()).Msg("workbook is not in the canonical layout, converting")
	out, err := run.r.adapter.Convert(ctx, run.wb)
	if err != nil {
		if !errors.Is(err, errors.ErrConversionFailed) {
			err = errors.ConversionFailed(err.Error())
		}
		run.convertErr = err
		return nil, err
	}
	if out == nil {
		out = sheet.NewWorkbook()
	}
	run.converted = out
	return out, nil
}

// resolve finds the layout's sheet, converting the upload when the sheet is
// missing or its header is unusable. A nil sheet means the run skips it.
func (run *reconcileRun) resolve(ctx context.Context, layout sheet.Layout) (*sheet.Sheet, *sheet.Columns, error) {
	s, present := run.wb.Sheet(layout.Sheet)
	var headerErr error
	if present {
		cols, err := layout.Resolve(s.Header())
		if err == nil {
			return s, cols, nil
		}
		headerErr = err
		run.log.Warn().Err(err).Str("sheet", layout.Sheet).Msg("canonical headers could not be mapped")
	}

	converted, err := run.convert(ctx)
	if err != nil {
		return nil, nil, err
	}

	cs, ok := converted.Sheet(layout.Sheet)
	if !ok {
		if present {
			return nil, nil, errors.ConversionFailed(headerErr.Error())
		}
		run.log.Info().Str("sheet", layout.Sheet).Msg("sheet not present, skipping")
		return nil, nil, nil
	}
	cols, err := layout.Resolve(cs.Header())
	if err != nil {
		return nil, nil, errors.ConversionFailed(err.Error())
	}
	return cs, cols, nil
}

// price reads a price cell. Negative prices are unreadable.
func price(raw any) (decimal.Decimal, error) {
	p, err := numeric.SanitizePrice(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if p.IsNegative() {
		return decimal.Decimal{}, errors.InvalidNumericInput(raw)
	}
	return p, nil
}

// quantity reads a quantity cell. Negative quantities are unreadable.
func quantity(raw any) (int, error) {
	q, err := numeric.SanitizeQuantity(raw)
	if err != nil {
		return 0, err
	}
	if q < 0 {
		return 0, errors.InvalidNumericInput(raw)
	}
	return q, nil
}

func (run *reconcileRun) warehouse(ctx context.Context, tx store.Tx) error {
	s, cols, err := run.resolve(ctx, sheet.Warehouse)
	if err != nil || s == nil {
		return err
	}

	seen := map[string]bool{}
	for _, row := range s.Data() {
		sku := cols.Text(row, sheet.ItemSKU)
		if sku == "" {
			continue
		}
		seen[sku] = true
		run.processed[sku] = true
		run.itemFieldsSet[sku] = true

		if err := run.applyItemRow(ctx, tx, sku, cols, row); err != nil {
			return err
		}
	}

	if run.cfg.AllowUploadDeletions {
		keep := make([]string, 0, len(seen))
		for sku := range seen {
			keep = append(keep, sku)
		}
		sort.Strings(keep)
		n, err := tx.DeactivateItemsExcept(ctx, keep)
		if err != nil {
			return err
		}
		run.result.ItemsDeactivated = int(n)
	}
	return nil
}

func (run *reconcileRun) applyItemRow(ctx context.Context, tx store.Tx, sku string, cols *sheet.Columns, row sheet.Row) error {
	desc := cols.Text(row, sheet.ItemDescription)

	p, priceErr := price(cols.Cell(row, sheet.ItemRetailPrice))
	if priceErr != nil {
		run.log.WithSKU(sku).Warn().Err(priceErr).Msg("skipping invalid retail_price")
		run.skip(sku)
	}
	q, qtyErr := quantity(cols.Cell(row, sheet.ItemQuantity))
	if qtyErr != nil {
		run.log.WithSKU(sku).Warn().Err(qtyErr).Msg("skipping invalid quantity")
		run.skip(sku)
	}

	item, err := tx.LockItem(ctx, sku)
	if errors.Is(err, errors.ErrNotFound) {
		created := &domain.Item{
			SKU:         sku,
			Description: desc,
			RetailPrice: numeric.ZeroPrice,
			IsActive:    true,
		}
		if priceErr == nil {
			created.RetailPrice = p
		}
		if qtyErr == nil {
			created.Quantity = q
		}
		if err := tx.InsertItem(ctx, created); err != nil {
			return err
		}
		run.result.ItemsCreated++
		return nil
	}
	if err != nil {
		return err
	}

	var changes store.ItemChanges
	if item.Description != desc {
		changes.Description = &desc
	}
	if priceErr == nil && !item.RetailPrice.Equal(p) {
		changes.RetailPrice = &p
	}
	if qtyErr == nil && item.Quantity != q {
		changes.Quantity = &q
	}
	fieldsChanged := !changes.Empty()
	if !item.IsActive {
		active := true
		changes.IsActive = &active
	}
	if changes.Empty() {
		return nil
	}
	if err := tx.UpdateItem(ctx, sku, changes); err != nil {
		return err
	}
	if fieldsChanged {
		run.result.ItemsUpdated++
	}
	if changes.IsActive != nil {
		run.result.ItemsReactivated++
	}
	return nil
}

func (run *reconcileRun) shop(ctx context.Context, tx store.Tx) error {
	s, cols, err := run.resolve(ctx, sheet.Shop)
	if err != nil || s == nil {
		return err
	}

	keys := map[domain.ShopItemKey]bool{}
	users := map[string]*domain.StockUser{}
	for _, row := range s.Data() {
		username := cols.Text(row, sheet.ShopUserName)
		sku := cols.Text(row, sheet.ItemSKU)
		if username == "" || sku == "" {
			continue
		}
		keys[domain.ShopItemKey{Username: username, SKU: sku}] = true
		run.processed[sku] = true

		user, ok := users[username]
		if !ok {
			user, err = tx.GetUserByUsername(ctx, username)
			if err != nil && !errors.Is(err, errors.ErrNotFound) {
				return err
			}
			users[username] = user
		}
		if user == nil {
			run.log.Warn().Str("username", username).Str("sku", sku).Msg("shop user not found, skipping row")
			run.result.RowsSkipped++
			continue
		}

		if err := run.applyShopRow(ctx, tx, user, sku, cols, row); err != nil {
			return err
		}
	}

	if run.cfg.AllowUploadDeletions {
		keep := make([]domain.ShopItemKey, 0, len(keys))
		for k := range keys {
			keep = append(keep, k)
		}
		sort.Slice(keep, func(i, j int) bool {
			if keep[i].Username != keep[j].Username {
				return keep[i].Username < keep[j].Username
			}
			return keep[i].SKU < keep[j].SKU
		})
		n, err := tx.DeleteShopItemsExcept(ctx, keep)
		if err != nil {
			return err
		}
		run.result.ShopItemsDeleted = int(n)
	}
	return nil
}

func (run *reconcileRun) applyShopRow(ctx context.Context, tx store.Tx, user *domain.StockUser, sku string, cols *sheet.Columns, row sheet.Row) error {
	desc := cols.Text(row, sheet.ItemDescription)

	p, priceErr := price(cols.Cell(row, sheet.ItemRetailPrice))
	if priceErr != nil {
		run.log.WithSKU(sku).Warn().Err(priceErr).Str("username", user.Username).Msg("skipping invalid retail_price")
		run.skip(sku)
	}
	q, qtyErr := quantity(cols.Cell(row, sheet.ShopItemQuantity))
	if qtyErr != nil {
		run.log.WithSKU(sku).Warn().Err(qtyErr).Str("username", user.Username).Msg("skipping invalid quantity")
		run.skip(sku)
	}

	item, err := tx.LockItem(ctx, sku)
	switch {
	case errors.Is(err, errors.ErrNotFound):
		created := &domain.Item{
			SKU:         sku,
			Description: desc,
			RetailPrice: numeric.ZeroPrice,
		}
		if priceErr == nil {
			created.RetailPrice = p
		}
		if err := tx.InsertItem(ctx, created); err != nil {
			return err
		}
		run.itemFieldsSet[sku] = true
		run.log.WithSKU(sku).Warn().Msg("item not found, created inactive with defaults")
		run.result.ItemsCreated++
	case err != nil:
		return err
	case run.itemFieldsSet[sku]:
		// Set by an earlier row this run.
	default:
		run.itemFieldsSet[sku] = true
		var changes store.ItemChanges
		if desc != "" && item.Description != desc {
			changes.Description = &desc
		}
		if priceErr == nil && !item.RetailPrice.Equal(p) {
			changes.RetailPrice = &p
		}
		if !changes.Empty() {
			if err := tx.UpdateItem(ctx, sku, changes); err != nil {
				return err
			}
			run.result.ItemsUpdated++
		}
	}

	held, err := tx.GetShopItem(ctx, user.UserID, sku)
	if errors.Is(err, errors.ErrNotFound) {
		s := sku
		si := &domain.ShopItem{ShopUserID: user.UserID, SKU: &s}
		if qtyErr == nil {
			si.Quantity = q
		}
		if err := tx.InsertShopItem(ctx, si); err != nil {
			return err
		}
		run.result.ShopItemsCreated++
		return nil
	}
	if err != nil {
		return err
	}
	if qtyErr == nil && held.Quantity != q {
		if err := tx.UpdateShopItemQuantity(ctx, held.ID, q); err != nil {
			return err
		}
		run.result.ShopItemsUpdated++
	}
	return nil
}

// Upload is the manager entry point: it reads the admin config once,
// refuses when uploads are disabled and reconciles against that config.
func (r *Reconciler) Upload(ctx context.Context, caller *actor.Actor, wb *sheet.Workbook, opts ReconcileOptions) (*ReconcileResult, error) {
	if err := requireManager(caller); err != nil {
		return nil, err
	}

	var cfg domain.AdminConfig
	err := r.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		cfg, err = tx.GetConfig(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !cfg.AllowUploads {
		return nil, errors.UploadsDisabled()
	}

	return r.Reconcile(actor.WithActor(ctx, caller), wb, cfg, opts)
}
