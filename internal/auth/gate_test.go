package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/fixedmarket/internal/domain"
)

func TestContextGate(t *testing.T) {
	gate := ContextGate{}
	id := domain.Identity("0xA11ce")

	t.Run("no proven identity", func(t *testing.T) {
		err := gate.Require(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("matching identity", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), id)
		assert.NoError(t, gate.Require(ctx, id))
	})

	t.Run("mismatched identity", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), domain.Identity("0xB0b"))
		err := gate.Require(ctx, id)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestIdentityFrom(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), "0xA11ce")
	got, ok := IdentityFrom(ctx)
	assert.True(t, ok)
	assert.Equal(t, domain.Identity("0xA11ce"), got)
}

func TestAllowAllAndDenyAll(t *testing.T) {
	assert.NoError(t, AllowAll{}.Require(context.Background(), "anyone"))
	assert.ErrorIs(t, DenyAll{}.Require(context.Background(), "anyone"), domain.ErrUnauthorized)
}
