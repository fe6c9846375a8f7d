// Package repository implements the stock store on PostgreSQL.
package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/database"
	"github.com/shopstock/stock-backend/pkg/errors"
)

// Querier is satisfied by both *database.DB and *sqlx.Tx.
type Querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

const reconcileLock = "stock-reconcile"

// Store opens transactions over the stock tables.
type Store struct {
	db *database.DB
}

// NewStore creates a new store
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// InTx implements store.Store.
func (s *Store) InTx(ctx context.Context, fn func(store.Tx) error) error {
	return s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		return fn(NewTx(tx))
	})
}

// Tx bundles every repository over a single transaction.
type Tx struct {
	*ItemRepository
	*ShopItemRepository
	*TransferRepository
	*ConfigRepository
	*UserRepository

	tx *sqlx.Tx
}

// NewTx binds the repositories to tx.
func NewTx(tx *sqlx.Tx) *Tx {
	return &Tx{
		ItemRepository:     NewItemRepository(tx),
		ShopItemRepository: NewShopItemRepository(tx),
		TransferRepository: NewTransferRepository(tx),
		ConfigRepository:   NewConfigRepository(tx),
		UserRepository:     NewUserRepository(tx),
		tx:                 tx,
	}
}

// LockReconcile implements store.Tx.
func (t *Tx) LockReconcile(ctx context.Context) error {
	return database.AdvisoryXactLock(ctx, t.tx, reconcileLock)
}

var _ store.Tx = (*Tx)(nil)

// notFound turns sql.ErrNoRows into an AppError and maps constraint
// violations. Anything else passes through.
func notFound(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource)
	}
	return mapErr(err)
}

func mapErr(err error) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

func rowsAffected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
