package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopstock/stock-backend/pkg/database"
)

// Migrations creates the stock schema. Every statement is idempotent.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS items (
		sku          TEXT PRIMARY KEY,
		description  TEXT NOT NULL DEFAULT '',
		retail_price NUMERIC(12,2) NOT NULL DEFAULT 0
			CONSTRAINT items_retail_price_check CHECK (retail_price >= 0),
		quantity     INTEGER NOT NULL DEFAULT 0
			CONSTRAINT items_quantity_check CHECK (quantity >= 0),
		is_active    BOOLEAN NOT NULL DEFAULT TRUE,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_active ON items (is_active)`,

	`CREATE TABLE IF NOT EXISTS stock_users (
		user_id    UUID PRIMARY KEY,
		username   TEXT NOT NULL CONSTRAINT stock_users_username_key UNIQUE,
		email      TEXT NOT NULL DEFAULT '',
		groups     TEXT[] NOT NULL DEFAULT '{}',
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS shop_items (
		id           BIGSERIAL PRIMARY KEY,
		shop_user_id UUID NOT NULL REFERENCES stock_users (user_id),
		sku          TEXT REFERENCES items (sku) ON DELETE SET NULL,
		quantity     INTEGER NOT NULL DEFAULT 0,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT shop_items_user_sku UNIQUE (shop_user_id, sku)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shop_items_sku ON shop_items (sku)`,

	`CREATE TABLE IF NOT EXISTS transfer_items (
		id           BIGSERIAL PRIMARY KEY,
		shop_user_id UUID NOT NULL REFERENCES stock_users (user_id),
		sku          TEXT NOT NULL REFERENCES items (sku) ON DELETE CASCADE,
		quantity     INTEGER NOT NULL
			CONSTRAINT transfer_items_quantity_check CHECK (quantity > 0),
		ordered      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT transfer_items_user_sku UNIQUE (shop_user_id, sku)
	)`,

	`CREATE TABLE IF NOT EXISTS admin_config (
		id                        SMALLINT PRIMARY KEY CHECK (id = 1),
		edit_lock                 BOOLEAN NOT NULL DEFAULT FALSE,
		allow_uploads             BOOLEAN NOT NULL DEFAULT TRUE,
		allow_upload_deletions    BOOLEAN NOT NULL DEFAULT FALSE,
		allow_email_notifications BOOLEAN NOT NULL DEFAULT TRUE,
		records_per_page          INTEGER NOT NULL DEFAULT 25
			CONSTRAINT admin_config_records_per_page_check CHECK (records_per_page >= 1),
		updated_at                TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`INSERT INTO admin_config (id) VALUES (1) ON CONFLICT (id) DO NOTHING`,
}

// Tables lists the stock tables, children first.
var Tables = []string{"transfer_items", "shop_items", "items", "stock_users", "admin_config"}

const migrateLock = "stock-migrate"

// Migrate applies Migrations in one transaction. Concurrent callers
// serialize on an advisory lock.
func Migrate(ctx context.Context, db *database.DB) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := database.AdvisoryXactLock(ctx, tx, migrateLock); err != nil {
			return err
		}
		for i, stmt := range Migrations {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d: %w", i+1, err)
			}
		}
		return nil
	})
}
