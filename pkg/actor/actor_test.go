package actor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	a := &Actor{ID: "user-1", TenantID: "tenant-1"}
	ctx := WithActor(context.Background(), a)
	assert.Same(t, a, FromContext(ctx))
	assert.Equal(t, "user-1@tenant-1", a.String())
}

func TestOrSystem(t *testing.T) {
	sys := OrSystem(context.Background())
	assert.True(t, sys.IsSystem())

	var nilActor *Actor
	assert.True(t, nilActor.IsSystem())
	assert.Equal(t, "system", nilActor.String())

	ctx := WithActor(context.Background(), &Actor{ID: "user-2"})
	assert.False(t, OrSystem(ctx).IsSystem())
}
