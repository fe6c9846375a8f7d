// Package memstore is an in-memory store.Store. Transactions run one at a
// time against a copy of the data that replaces the original on success,
// so a failing unit of work leaves nothing behind.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/errors"
)

type data struct {
	config    domain.AdminConfig
	items     map[string]domain.Item
	shopItems map[int64]domain.ShopItem
	transfers map[int64]domain.TransferItem
	users     map[string]domain.StockUser
	nextID    int64
}

func (d *data) clone() *data {
	c := &data{
		config:    d.config,
		items:     make(map[string]domain.Item, len(d.items)),
		shopItems: make(map[int64]domain.ShopItem, len(d.shopItems)),
		transfers: make(map[int64]domain.TransferItem, len(d.transfers)),
		users:     make(map[string]domain.StockUser, len(d.users)),
		nextID:    d.nextID,
	}
	for k, v := range d.items {
		c.items[k] = v
	}
	for k, v := range d.shopItems {
		if v.SKU != nil {
			sku := *v.SKU
			v.SKU = &sku
		}
		c.shopItems[k] = v
	}
	for k, v := range d.transfers {
		c.transfers[k] = v
	}
	for k, v := range d.users {
		v.Groups = slices.Clone(v.Groups)
		c.users[k] = v
	}
	return c
}

// Store is a store.Store held in memory.
type Store struct {
	mu      sync.Mutex
	data    *data
	failOn  map[string]error
	commits int
	locks   int

	// Now stamps LastUpdated fields.
	Now func() time.Time
}

// New returns an empty store holding the default admin config.
func New() *Store {
	return &Store{
		data: &data{
			config:    domain.DefaultAdminConfig(),
			items:     map[string]domain.Item{},
			shopItems: map[int64]domain.ShopItem{},
			transfers: map[int64]domain.TransferItem{},
			users:     map[string]domain.StockUser{},
		},
		failOn: map[string]error{},
		Now:    time.Now,
	}
}

// InTx implements store.Store.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{s: s, d: s.data.clone()}
	if err := fn(t); err != nil {
		return err
	}
	s.data = t.d
	s.commits++
	return nil
}

// FailOn makes the named Tx method return err until cleared with a nil err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failOn, method)
		return
	}
	s.failOn[method] = err
}

// Commits counts successful transactions.
func (s *Store) Commits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// ReconcileLocks counts LockReconcile calls.
func (s *Store) ReconcileLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locks
}

// Seeding and inspection helpers. They bypass transactions.

// PutItem stores item as is.
func (s *Store) PutItem(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.items[item.SKU] = item
}

// RemoveItem deletes an item the way the database would: holdings keep a
// null reference and transfers are dropped.
func (s *Store) RemoveItem(sku string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.items, sku)
	for id, si := range s.data.shopItems {
		if si.SKU != nil && *si.SKU == sku {
			si.SKU = nil
			s.data.shopItems[id] = si
		}
	}
	for id, t := range s.data.transfers {
		if t.SKU == sku {
			delete(s.data.transfers, id)
		}
	}
}

// PutUser stores a user.
func (s *Store) PutUser(u domain.StockUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.UserID] = u
}

// PutShopItem stores a holding, assigning an ID when zero. The SKU may
// point nowhere, which the database would only allow after a delete.
func (s *Store) PutShopItem(si domain.ShopItem) domain.ShopItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if si.ID == 0 {
		s.data.nextID++
		si.ID = s.data.nextID
	}
	s.data.shopItems[si.ID] = si
	return si
}

// PutTransfer stores a transfer, assigning an ID when zero.
func (s *Store) PutTransfer(t domain.TransferItem) domain.TransferItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		s.data.nextID++
		t.ID = s.data.nextID
	}
	s.data.transfers[t.ID] = t
	return t
}

// SetConfig replaces the admin config, edit lock included.
func (s *Store) SetConfig(cfg domain.AdminConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.config = cfg
}

// Config returns the admin config.
func (s *Store) Config() domain.AdminConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.config
}

// Item returns the stored item.
func (s *Store) Item(sku string) (domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.data.items[sku]
	return item, ok
}

// Items returns every item ordered by SKU.
func (s *Store) Items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Item, 0, len(s.data.items))
	for _, item := range s.data.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// ShopItems returns every holding ordered by ID.
func (s *Store) ShopItems() []domain.ShopItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ShopItem, 0, len(s.data.shopItems))
	for _, si := range s.data.shopItems {
		out = append(out, si)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Transfers returns every transfer ordered by ID.
func (s *Store) Transfers() []domain.TransferItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TransferItem, 0, len(s.data.transfers))
	for _, t := range s.data.transfers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// User returns the stored user.
func (s *Store) User(userID string) (domain.StockUser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.users[userID]
	return u, ok
}

type tx struct {
	s *Store
	d *data
}

var _ store.Tx = (*tx)(nil)

func (t *tx) fail(method string) error {
	return t.s.failOn[method]
}

func (t *tx) now() time.Time {
	return t.s.Now()
}

func (t *tx) LockReconcile(ctx context.Context) error {
	if err := t.fail("LockReconcile"); err != nil {
		return err
	}
	t.s.locks++
	return nil
}

// Config

func (t *tx) GetConfig(ctx context.Context) (domain.AdminConfig, error) {
	if err := t.fail("GetConfig"); err != nil {
		return domain.AdminConfig{}, err
	}
	return t.d.config, nil
}

func (t *tx) UpdateConfig(ctx context.Context, cfg domain.AdminConfig) error {
	if err := t.fail("UpdateConfig"); err != nil {
		return err
	}
	if cfg.RecordsPerPage < 1 {
		return errors.Validation(map[string]string{"records_per_page": "must be at least 1"})
	}
	lock := t.d.config.EditLock
	cfg.EditLock = lock
	cfg.UpdatedAt = t.now()
	t.d.config = cfg
	return nil
}

func (t *tx) SetEditLock(ctx context.Context, expected, locked bool) (bool, error) {
	if err := t.fail("SetEditLock"); err != nil {
		return false, err
	}
	if t.d.config.EditLock != expected {
		return false, nil
	}
	t.d.config.EditLock = locked
	t.d.config.UpdatedAt = t.now()
	return true, nil
}

// Items

func (t *tx) GetItem(ctx context.Context, sku string) (*domain.Item, error) {
	if err := t.fail("GetItem"); err != nil {
		return nil, err
	}
	item, ok := t.d.items[sku]
	if !ok {
		return nil, errors.NotFound("item")
	}
	return &item, nil
}

func (t *tx) LockItem(ctx context.Context, sku string) (*domain.Item, error) {
	if err := t.fail("LockItem"); err != nil {
		return nil, err
	}
	return t.GetItem(ctx, sku)
}

func (t *tx) ListItems(ctx context.Context, filter store.ItemFilter) ([]domain.Item, error) {
	if err := t.fail("ListItems"); err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := []domain.Item{}
	for _, item := range t.d.items {
		if !filter.IncludeInactive && !item.IsActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(item.SKU), search) &&
			!strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		if filter.SKUs != nil && !slices.Contains(filter.SKUs, item.SKU) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (t *tx) InsertItem(ctx context.Context, item *domain.Item) error {
	if err := t.fail("InsertItem"); err != nil {
		return err
	}
	if _, exists := t.d.items[item.SKU]; exists {
		return errors.Conflict("an item with this SKU already exists")
	}
	if item.Quantity < 0 {
		return errors.Validation(map[string]string{"quantity": "warehouse quantity cannot be negative"})
	}
	item.LastUpdated = t.now()
	t.d.items[item.SKU] = *item
	return nil
}

func (t *tx) UpdateItem(ctx context.Context, sku string, changes store.ItemChanges) error {
	if err := t.fail("UpdateItem"); err != nil {
		return err
	}
	if changes.Empty() {
		return nil
	}
	item, ok := t.d.items[sku]
	if !ok {
		return errors.NotFound("item")
	}
	if changes.Description != nil {
		item.Description = *changes.Description
	}
	if changes.RetailPrice != nil {
		item.RetailPrice = *changes.RetailPrice
	}
	if changes.Quantity != nil {
		if *changes.Quantity < 0 {
			return errors.Validation(map[string]string{"quantity": "warehouse quantity cannot be negative"})
		}
		item.Quantity = *changes.Quantity
	}
	if changes.IsActive != nil {
		item.IsActive = *changes.IsActive
	}
	item.LastUpdated = t.now()
	t.d.items[sku] = item
	return nil
}

func (t *tx) DeactivateItemsExcept(ctx context.Context, keep []string) (int64, error) {
	if err := t.fail("DeactivateItemsExcept"); err != nil {
		return 0, err
	}
	var n int64
	for sku, item := range t.d.items {
		if item.IsActive && !slices.Contains(keep, sku) {
			item.IsActive = false
			item.LastUpdated = t.now()
			t.d.items[sku] = item
			n++
		}
	}
	return n, nil
}

func (t *tx) DecrementItem(ctx context.Context, sku string, qty int) (bool, error) {
	if err := t.fail("DecrementItem"); err != nil {
		return false, err
	}
	item, ok := t.d.items[sku]
	if !ok || item.Quantity < qty {
		return false, nil
	}
	item.Quantity -= qty
	item.LastUpdated = t.now()
	t.d.items[sku] = item
	return true, nil
}

// Shop items

func (t *tx) findShopItem(userID, sku string) (domain.ShopItem, bool) {
	for _, si := range t.d.shopItems {
		if si.ShopUserID == userID && si.SKU != nil && *si.SKU == sku {
			return si, true
		}
	}
	return domain.ShopItem{}, false
}

func (t *tx) GetShopItem(ctx context.Context, userID, sku string) (*domain.ShopItem, error) {
	if err := t.fail("GetShopItem"); err != nil {
		return nil, err
	}
	si, ok := t.findShopItem(userID, sku)
	if !ok {
		return nil, errors.NotFound("shop item")
	}
	return &si, nil
}

func (t *tx) InsertShopItem(ctx context.Context, si *domain.ShopItem) error {
	if err := t.fail("InsertShopItem"); err != nil {
		return err
	}
	if si.SKU != nil {
		if _, dup := t.findShopItem(si.ShopUserID, *si.SKU); dup {
			return errors.Conflict("this shop already holds the item")
		}
		if _, ok := t.d.items[*si.SKU]; !ok {
			return errors.BadRequest("referenced record does not exist")
		}
	}
	t.d.nextID++
	si.ID = t.d.nextID
	si.LastUpdated = t.now()
	t.d.shopItems[si.ID] = *si
	return nil
}

func (t *tx) UpdateShopItemQuantity(ctx context.Context, id int64, qty int) error {
	if err := t.fail("UpdateShopItemQuantity"); err != nil {
		return err
	}
	si, ok := t.d.shopItems[id]
	if !ok {
		return nil
	}
	si.Quantity = qty
	si.LastUpdated = t.now()
	t.d.shopItems[id] = si
	return nil
}

func (t *tx) AddShopItemQuantity(ctx context.Context, userID, sku string, qty int) error {
	if err := t.fail("AddShopItemQuantity"); err != nil {
		return err
	}
	if si, ok := t.findShopItem(userID, sku); ok {
		si.Quantity += qty
		si.LastUpdated = t.now()
		t.d.shopItems[si.ID] = si
		return nil
	}
	s := sku
	return t.InsertShopItem(ctx, &domain.ShopItem{ShopUserID: userID, SKU: &s, Quantity: qty})
}

func (t *tx) DeleteShopItemsExcept(ctx context.Context, keep []domain.ShopItemKey) (int64, error) {
	if err := t.fail("DeleteShopItemsExcept"); err != nil {
		return 0, err
	}
	kept := make(map[domain.ShopItemKey]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	var n int64
	for id, si := range t.d.shopItems {
		u, ok := t.d.users[si.ShopUserID]
		if ok && si.SKU != nil && kept[domain.ShopItemKey{Username: u.Username, SKU: *si.SKU}] {
			continue
		}
		delete(t.d.shopItems, id)
		n++
	}
	return n, nil
}

func (t *tx) DeleteUnreferencedShopItems(ctx context.Context) (int64, error) {
	if err := t.fail("DeleteUnreferencedShopItems"); err != nil {
		return 0, err
	}
	var n int64
	for id, si := range t.d.shopItems {
		if si.SKU == nil {
			delete(t.d.shopItems, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) DeleteDanglingShopItems(ctx context.Context) (int64, error) {
	if err := t.fail("DeleteDanglingShopItems"); err != nil {
		return 0, err
	}
	var n int64
	for id, si := range t.d.shopItems {
		if si.SKU == nil {
			continue
		}
		if _, ok := t.d.items[*si.SKU]; !ok {
			delete(t.d.shopItems, id)
			n++
		}
	}
	return n, nil
}

func (t *tx) ListShopStock(ctx context.Context, filter store.ShopStockFilter) ([]domain.ShopStockRow, error) {
	if err := t.fail("ListShopStock"); err != nil {
		return nil, err
	}
	out := []domain.ShopStockRow{}
	for _, si := range t.d.shopItems {
		if filter.UserID != "" && si.ShopUserID != filter.UserID {
			continue
		}
		if si.SKU == nil {
			continue
		}
		item, ok := t.d.items[*si.SKU]
		if !ok {
			continue
		}
		u, ok := t.d.users[si.ShopUserID]
		if !ok {
			continue
		}
		out = append(out, domain.ShopStockRow{
			ID:           si.ID,
			ShopUserID:   si.ShopUserID,
			Username:     u.Username,
			SKU:          item.SKU,
			Description:  item.Description,
			RetailPrice:  item.RetailPrice,
			Quantity:     si.Quantity,
			ItemIsActive: item.IsActive,
			LastUpdated:  si.LastUpdated,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

// Transfers

func (t *tx) findTransfer(userID, sku string) (domain.TransferItem, bool) {
	for _, tr := range t.d.transfers {
		if tr.ShopUserID == userID && tr.SKU == sku {
			return tr, true
		}
	}
	return domain.TransferItem{}, false
}

func (t *tx) GetTransfer(ctx context.Context, userID, sku string) (*domain.TransferItem, error) {
	if err := t.fail("GetTransfer"); err != nil {
		return nil, err
	}
	tr, ok := t.findTransfer(userID, sku)
	if !ok {
		return nil, errors.NotFound("transfer")
	}
	return &tr, nil
}

func (t *tx) InsertTransfer(ctx context.Context, tr *domain.TransferItem) error {
	if err := t.fail("InsertTransfer"); err != nil {
		return err
	}
	if tr.Quantity <= 0 {
		return errors.Validation(map[string]string{"quantity": "must be a positive integer"})
	}
	if _, dup := t.findTransfer(tr.ShopUserID, tr.SKU); dup {
		return errors.Conflict("a transfer for this item is already pending")
	}
	t.d.nextID++
	tr.ID = t.d.nextID
	tr.CreatedAt = t.now()
	tr.LastUpdated = tr.CreatedAt
	t.d.transfers[tr.ID] = *tr
	return nil
}

func (t *tx) UpdateTransferQuantity(ctx context.Context, id int64, qty int) error {
	if err := t.fail("UpdateTransferQuantity"); err != nil {
		return err
	}
	if qty <= 0 {
		return errors.Validation(map[string]string{"quantity": "must be a positive integer"})
	}
	tr, ok := t.d.transfers[id]
	if !ok {
		return nil
	}
	tr.Quantity = qty
	tr.LastUpdated = t.now()
	t.d.transfers[id] = tr
	return nil
}

func (t *tx) OrderReservedTransfers(ctx context.Context, userID string) ([]int64, error) {
	if err := t.fail("OrderReservedTransfers"); err != nil {
		return nil, err
	}
	ids := []int64{}
	for id, tr := range t.d.transfers {
		if tr.ShopUserID == userID && !tr.Ordered {
			tr.Ordered = true
			tr.LastUpdated = t.now()
			t.d.transfers[id] = tr
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (t *tx) DeleteTransfer(ctx context.Context, userID, sku string) (int64, error) {
	if err := t.fail("DeleteTransfer"); err != nil {
		return 0, err
	}
	tr, ok := t.findTransfer(userID, sku)
	if !ok {
		return 0, nil
	}
	delete(t.d.transfers, tr.ID)
	return 1, nil
}

func (t *tx) ListTransfers(ctx context.Context, filter store.TransferFilter) ([]domain.TransferLine, error) {
	if err := t.fail("ListTransfers"); err != nil {
		return nil, err
	}
	out := []domain.TransferLine{}
	for _, tr := range t.d.transfers {
		if filter.UserID != "" && tr.ShopUserID != filter.UserID {
			continue
		}
		if filter.State != "" && tr.State() != filter.State {
			continue
		}
		if filter.IDs != nil && !slices.Contains(filter.IDs, tr.ID) {
			continue
		}
		item, ok := t.d.items[tr.SKU]
		if !ok {
			continue
		}
		u, ok := t.d.users[tr.ShopUserID]
		if !ok {
			continue
		}
		out = append(out, domain.TransferLine{
			ID:          tr.ID,
			ShopUserID:  tr.ShopUserID,
			Username:    u.Username,
			SKU:         tr.SKU,
			Description: item.Description,
			RetailPrice: item.RetailPrice,
			Quantity:    tr.Quantity,
			Ordered:     tr.Ordered,
			LastUpdated: tr.LastUpdated,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Username != out[j].Username {
			return out[i].Username < out[j].Username
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

// Users

func (t *tx) GetUser(ctx context.Context, userID string) (*domain.StockUser, error) {
	if err := t.fail("GetUser"); err != nil {
		return nil, err
	}
	u, ok := t.d.users[userID]
	if !ok {
		return nil, errors.NotFound("user")
	}
	return &u, nil
}

func (t *tx) GetUserByUsername(ctx context.Context, username string) (*domain.StockUser, error) {
	if err := t.fail("GetUserByUsername"); err != nil {
		return nil, err
	}
	for _, u := range t.d.users {
		if u.Username == username && u.IsActive {
			return &u, nil
		}
	}
	return nil, errors.NotFound("user")
}

func (t *tx) UpsertUser(ctx context.Context, u *domain.StockUser) error {
	if err := t.fail("UpsertUser"); err != nil {
		return err
	}
	for id, other := range t.d.users {
		if id != u.UserID && other.Username == u.Username {
			return errors.Conflict(fmt.Sprintf("a user with username %q already exists", u.Username))
		}
	}
	stored := *u
	stored.Groups = slices.Clone(u.Groups)
	stored.UpdatedAt = t.now()
	t.d.users[u.UserID] = stored
	return nil
}

func (t *tx) DeactivateUser(ctx context.Context, userID string) error {
	if err := t.fail("DeactivateUser"); err != nil {
		return err
	}
	u, ok := t.d.users[userID]
	if !ok {
		return nil
	}
	u.IsActive = false
	u.UpdatedAt = t.now()
	t.d.users[userID] = u
	return nil
}

func (t *tx) ListUsersInGroup(ctx context.Context, group string) ([]domain.StockUser, error) {
	if err := t.fail("ListUsersInGroup"); err != nil {
		return nil, err
	}
	out := []domain.StockUser{}
	for _, u := range t.d.users {
		if u.IsActive && u.InGroup(group) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}
