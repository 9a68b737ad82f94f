package service

import (
	"context"
	"errors"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"
)

// CartService keeps a pending cart per user on the server.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
}

func NewCartService(carts repository.CartRepository, products repository.ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

func (s *CartService) Get(ctx context.Context, caller *models.User) (*models.Cart, error) {
	if caller == nil {
		return nil, apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	cart, err := s.carts.Get(ctx, caller.ID)
	if err != nil {
		return nil, internalErr(err, "Failed to fetch cart")
	}
	return cart, nil
}

// Add puts qty more of a product in the cart.
func (s *CartService) Add(ctx context.Context, caller *models.User, rawProductID string, qty int) (*models.Cart, error) {
	if qty < 1 {
		return nil, apperr.New(apperr.InvalidRequest, "Quantity must be at least 1")
	}
	id, err := parseID(rawProductID, "product")
	if err != nil {
		return nil, err
	}
	cart, err := s.Get(ctx, caller)
	if err != nil {
		return nil, err
	}
	if _, err := s.products.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Product not found")
		}
		return nil, internalErr(err, "Failed to update cart")
	}

	found := false
	for i, item := range cart.Items {
		if item.Product == id {
			cart.Items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		cart.Items = append(cart.Items, models.CartItem{Product: id, Quantity: qty})
	}
	return s.save(ctx, cart)
}

// SetQuantity replaces the quantity of a cart line; qty <= 0 removes it.
func (s *CartService) SetQuantity(ctx context.Context, caller *models.User, rawProductID string, qty int) (*models.Cart, error) {
	id, err := parseID(rawProductID, "product")
	if err != nil {
		return nil, err
	}
	cart, err := s.Get(ctx, caller)
	if err != nil {
		return nil, err
	}

	for i, item := range cart.Items {
		if item.Product != id {
			continue
		}
		if qty > 0 {
			cart.Items[i].Quantity = qty
		} else {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		}
		return s.save(ctx, cart)
	}
	return nil, apperr.New(apperr.NotFound, "Item not in cart")
}

func (s *CartService) Remove(ctx context.Context, caller *models.User, rawProductID string) (*models.Cart, error) {
	return s.SetQuantity(ctx, caller, rawProductID, 0)
}

func (s *CartService) Clear(ctx context.Context, caller *models.User) error {
	if caller == nil {
		return apperr.New(apperr.Unauthorized, "Not authorized, please log in.")
	}
	if err := s.carts.Clear(ctx, caller.ID); err != nil {
		return internalErr(err, "Failed to clear cart")
	}
	return nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, internalErr(err, "Failed to update cart")
	}
	return cart, nil
}
