package service

import (
	"context"
	"testing"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCartLifecycle(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	buyer := env.user(t, "buyer", models.RoleCustomer)
	seller := env.user(t, "seller", models.RoleSeller)
	lamp := env.product(t, seller, "lamp", 5)
	rug := env.product(t, seller, "rug", 5)

	cart, err := env.carts.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = env.carts.Add(ctx, buyer, lamp.ID.Hex(), 1)
	require.NoError(t, err)
	cart, err = env.carts.Add(ctx, buyer, lamp.ID.Hex(), 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	cart, err = env.carts.Add(ctx, buyer, rug.ID.Hex(), 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)

	cart, err = env.carts.SetQuantity(ctx, buyer, lamp.ID.Hex(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.CartItem{Product: lamp.ID, Quantity: 7}, cart.Items[0])

	cart, err = env.carts.Remove(ctx, buyer, lamp.ID.Hex())
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, rug.ID, cart.Items[0].Product)

	// carts hold intent only; stock is untouched
	assert.Equal(t, 5, env.stock(t, lamp))

	require.NoError(t, env.carts.Clear(ctx, buyer))
	cart, err = env.carts.Get(ctx, buyer)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCartErrors(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	buyer := env.user(t, "buyer", models.RoleCustomer)
	seller := env.user(t, "seller", models.RoleSeller)
	lamp := env.product(t, seller, "lamp", 5)

	_, err := env.carts.Add(ctx, buyer, primitive.NewObjectID().Hex(), 1)
	assertKind(t, err, apperr.NotFound)

	_, err = env.carts.Add(ctx, buyer, lamp.ID.Hex(), 0)
	assertKind(t, err, apperr.InvalidRequest)

	_, err = env.carts.Add(ctx, buyer, "bad", 1)
	assertKind(t, err, apperr.InvalidRequest)

	_, err = env.carts.SetQuantity(ctx, buyer, lamp.ID.Hex(), 2)
	assertKind(t, err, apperr.NotFound)

	_, err = env.carts.Get(ctx, nil)
	assertKind(t, err, apperr.Unauthorized)
}
