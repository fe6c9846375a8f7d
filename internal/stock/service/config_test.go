package service_test

import (
	"context"
	"testing"

	"github.com/shopstock/stock-backend/internal/stock/domain"
	"github.com/shopstock/stock-backend/internal/stock/service"
	"github.com/shopstock/stock-backend/pkg/errors"
	"github.com/shopstock/stock-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigService_Update(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	svc := service.NewConfigService(e.store, e.log)
	e.store.SetConfig(domain.AdminConfig{EditLock: true, AllowUploads: true, RecordsPerPage: 25})

	cfg, err := svc.Update(ctx, e.managerActor(), service.ConfigUpdate{
		AllowUploadDeletions: testutil.PtrBool(true),
		RecordsPerPage:       testutil.PtrInt(50),
	})
	require.NoError(t, err)
	assert.True(t, cfg.AllowUploads)
	assert.True(t, cfg.AllowUploadDeletions)
	assert.Equal(t, 50, cfg.RecordsPerPage)
	assert.True(t, cfg.EditLock, "update must not touch the edit lock")

	_, err = svc.Update(ctx, e.managerActor(), service.ConfigUpdate{RecordsPerPage: testutil.PtrInt(0)})
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = svc.Update(ctx, e.shopActor(), service.ConfigUpdate{AllowUploads: testutil.PtrBool(false)})
	assert.True(t, errors.Is(err, errors.ErrForbidden))
	assert.True(t, e.store.Config().AllowUploads)
}

func TestConfigService_SetEditLock(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	svc := service.NewConfigService(e.store, e.log)

	cfg, err := svc.SetEditLock(ctx, e.managerActor(), false, true)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeMaintenance, cfg.Mode())

	_, err = svc.SetEditLock(ctx, e.managerActor(), false, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "false", appErr.Details["expected"])

	cfg, err = svc.SetEditLock(ctx, e.managerActor(), true, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeNormal, cfg.Mode())

	_, err = svc.SetEditLock(ctx, e.shopActor(), false, true)
	assert.True(t, errors.Is(err, errors.ErrForbidden))
}
