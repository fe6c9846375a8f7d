package service

import (
	"context"
	"strconv"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/store"
	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/logger"
)

// ConfigUpdate changes admin flags. Nil fields are left alone.
type ConfigUpdate struct {
	AllowUploads            *bool `json:"allow_uploads,omitempty"`
	AllowUploadDeletions    *bool `json:"allow_upload_deletions,omitempty"`
	AllowEmailNotifications *bool `json:"allow_email_notifications,omitempty"`
	RecordsPerPage          *int  `json:"records_per_page,omitempty" validate:"omitempty,gte=1"`
}

// ConfigService reads and changes the admin config.
type ConfigService struct {
	store  store.Store
	logger *logger.Logger
}

// NewConfigService creates a new config service
func NewConfigService(st store.Store, log *logger.Logger) *ConfigService {
	return &ConfigService{store: st, logger: log}
}

// Get returns the current config.
func (s *ConfigService) Get(ctx context.Context) (domain.AdminConfig, error) {
	var cfg domain.AdminConfig
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		cfg, err = tx.GetConfig(ctx)
		return err
	})
	return cfg, err
}

// Update applies upd and returns the new config. The edit lock is only
// changed through SetEditLock.
func (s *ConfigService) Update(ctx context.Context, caller *actor.Actor, upd ConfigUpdate) (domain.AdminConfig, error) {
	if err := requireManager(caller); err != nil {
		return domain.AdminConfig{}, err
	}
	if upd.RecordsPerPage != nil && *upd.RecordsPerPage < 1 {
		return domain.AdminConfig{}, errors.Validation(map[string]string{"records_per_page": "must be at least 1"})
	}

	var cfg domain.AdminConfig
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		var err error
		if cfg, err = tx.GetConfig(ctx); err != nil {
			return err
		}
		if upd.AllowUploads != nil {
			cfg.AllowUploads = *upd.AllowUploads
		}
		if upd.AllowUploadDeletions != nil {
			cfg.AllowUploadDeletions = *upd.AllowUploadDeletions
		}
		if upd.AllowEmailNotifications != nil {
			cfg.AllowEmailNotifications = *upd.AllowEmailNotifications
		}
		if upd.RecordsPerPage != nil {
			cfg.RecordsPerPage = *upd.RecordsPerPage
		}
		if err := tx.UpdateConfig(ctx, cfg); err != nil {
			return err
		}
		cfg, err = tx.GetConfig(ctx)
		return err
	})
	if err != nil {
		return domain.AdminConfig{}, err
	}

	s.logger.Info().
		Bool("allow_uploads", cfg.AllowUploads).
		Bool("allow_upload_deletions", cfg.AllowUploadDeletions).
		Bool("allow_email_notifications", cfg.AllowEmailNotifications).
		Int("records_per_page", cfg.RecordsPerPage).
		Msg("admin config updated")
	return cfg, nil
}

// SetEditLock flips the edit lock from expected to locked. It fails with
// a conflict when someone else changed it first.
func (s *ConfigService) SetEditLock(ctx context.Context, caller *actor.Actor, expected, locked bool) (domain.AdminConfig, error) {
	if err := requireManager(caller); err != nil {
		return domain.AdminConfig{}, err
	}

	var cfg domain.AdminConfig
	err := s.store.InTx(ctx, func(tx store.Tx) error {
		swapped, err := tx.SetEditLock(ctx, expected, locked)
		if err != nil {
			return err
		}
		if !swapped {
			return errors.Conflict("the edit lock was changed by someone else").
				WithDetails(map[string]string{"expected": strconv.FormatBool(expected)})
		}
		cfg, err = tx.GetConfig(ctx)
		return err
	})
	if err != nil {
		return domain.AdminConfig{}, err
	}

	s.logger.Info().Str("mode", string(cfg.Mode())).Str("changed_by", caller.Username).Msg("edit lock changed")
	return cfg, nil
}
