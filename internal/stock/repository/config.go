package repository

import (
	"context"
	"database/sql"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/pkg/errors"
)

// ConfigRepository handles the admin config singleton
type ConfigRepository struct {
	q Querier
}

// NewConfigRepository creates a new config repository
func NewConfigRepository(q Querier) *ConfigRepository {
	return &ConfigRepository{q: q}
}

// GetConfig reads the config row under a share lock. A missing row reads
// as the defaults.
func (r *ConfigRepository) GetConfig(ctx context.Context) (domain.AdminConfig, error) {
	var cfg domain.AdminConfig
	query := `
		SELECT edit_lock, allow_uploads, allow_upload_deletions, allow_email_notifications,
		       records_per_page, updated_at
		FROM admin_config
		WHERE id = 1
		FOR SHARE
	`
	err := r.q.GetContext(ctx, &cfg, query)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DefaultAdminConfig(), nil
	}
	if err != nil {
		return domain.AdminConfig{}, err
	}
	return cfg, nil
}

// UpdateConfig writes the flags and page size; the edit lock is untouched
func (r *ConfigRepository) UpdateConfig(ctx context.Context, cfg domain.AdminConfig) error {
	query := `
		INSERT INTO admin_config (id, allow_uploads, allow_upload_deletions, allow_email_notifications, records_per_page, updated_at)
		VALUES (1, $1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			allow_uploads = EXCLUDED.allow_uploads,
			allow_upload_deletions = EXCLUDED.allow_upload_deletions,
			allow_email_notifications = EXCLUDED.allow_email_notifications,
			records_per_page = EXCLUDED.records_per_page,
			updated_at = NOW()
	`
	_, err := rowsAffected(r.q.ExecContext(ctx, query,
		cfg.AllowUploads, cfg.AllowUploadDeletions, cfg.AllowEmailNotifications, cfg.RecordsPerPage,
	))
	return err
}

// SetEditLock flips the edit lock only when it currently equals expected
func (r *ConfigRepository) SetEditLock(ctx context.Context, expected, locked bool) (bool, error) {
	query := `
		UPDATE admin_config SET edit_lock = $2, updated_at = NOW()
		WHERE id = 1 AND edit_lock = $1
	`
	n, err := rowsAffected(r.q.ExecContext(ctx, query, expected, locked))
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
