package permissions_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/shopstock/stock-backend/pkg/permissions"
	"github.com/stretchr/testify/assert"
)

func TestHasGroup(t *testing.T) {
	a := &actor.Actor{Groups: []string{actor.GroupShopUsers}}

	assert.True(t, permissions.HasGroup(a, ""))
	assert.True(t, permissions.HasGroup(a, actor.GroupShopUsers))
	assert.False(t, permissions.HasGroup(a, actor.GroupManagers))
	assert.True(t, permissions.HasAnyGroup(a, actor.GroupManagers, actor.GroupShopUsers))
	assert.False(t, permissions.HasAnyGroup(nil, actor.GroupManagers))
}

func TestRequireGroup(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := permissions.RequireManager(ok)

	tests := []struct {
		name   string
		actor  *actor.Actor
		status int
	}{
		{"no actor", nil, http.StatusUnauthorized},
		{"shop user", &actor.Actor{ID: "1", Groups: []string{actor.GroupShopUsers}}, http.StatusForbidden},
		{"manager", &actor.Actor{ID: "2", Groups: []string{actor.GroupManagers}}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.actor != nil {
				req = req.WithContext(actor.WithActor(req.Context(), tt.actor))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
