package actor_test

import (
	"context"
	"testing"

	"github.com/shopstock/stock-backend/pkg/actor"
	"github.com/stretchr/testify/assert"
)

func TestActor_Groups(t *testing.T) {
	manager := &actor.Actor{ID: "1", Username: "boss", Groups: []string{actor.GroupManagers, actor.GroupReceiveMail}}
	shop := &actor.Actor{ID: "2", Username: "shop.london", Groups: []string{actor.GroupShopUsers}}

	assert.True(t, manager.IsManager())
	assert.False(t, manager.IsShopUser())
	assert.True(t, manager.InGroup(actor.GroupReceiveMail))

	assert.False(t, shop.IsManager())
	assert.True(t, shop.IsShopUser())

	var none *actor.Actor
	assert.False(t, none.IsManager())
	assert.True(t, none.IsSystem())
	assert.Equal(t, "system", none.String())
}

func TestActor_Context(t *testing.T) {
	assert.Nil(t, actor.FromContext(context.Background()))

	a := &actor.Actor{ID: "7", Username: "shop.paris"}
	ctx := actor.WithActor(context.Background(), a)
	assert.Same(t, a, actor.FromContext(ctx))
}

func TestSystemActor(t *testing.T) {
	sys := actor.SystemActor()
	assert.True(t, sys.IsSystem())
	assert.True(t, sys.IsManager())
}
