package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/auth"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImages struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeImages) Remove(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, url)
	return nil
}

func (f *fakeImages) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}

type testEnv struct {
	store    *memory.Store
	images   *fakeImages
	auth     *AuthService
	products *ProductService
	orders   *OrderService
	carts    *CartService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	images := &fakeImages{}
	log := discardLogger()
	return &testEnv{
		store:    store,
		images:   images,
		auth:     NewAuthService(store.Users(), auth.NewTokenIssuer("test-secret", time.Hour), log),
		products: NewProductService(store.Products(), images, log),
		orders:   NewOrderService(store.Orders(), store.Products(), store.Carts(), log),
		carts:    NewCartService(store.Carts(), store.Products()),
	}
}

func (e *testEnv) user(t *testing.T, name, role string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@example.com", Role: role}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u
}

func (e *testEnv) product(t *testing.T, owner *models.User, title string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		User:      owner.ID,
		Title:     title,
		Price:     10,
		Stock:     stock,
		ImageURL:  "/uploads/" + title + ".png",
		CreatedBy: models.OwnerOf(owner),
	}
	require.NoError(t, e.store.Products().Create(context.Background(), p))
	return p
}

func (e *testEnv) stock(t *testing.T, p *models.Product) int {
	t.Helper()
	got, err := e.store.Products().GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	return got.Stock
}

func address() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:   "Ann Buyer",
		Address:    "1 Main St",
		City:       "Springfield",
		PostalCode: "12345",
		Country:    "US",
	}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

func ptr[T any](v T) *T { return &v }
