// Package memory holds map-backed repositories with the same semantics as
// the Mongo ones. They back STORE_DRIVER=memory and the test suites.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront-backend/internal/models"
	"storefront-backend/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store groups one repository per collection behind a single lock.
type Store struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	products map[primitive.ObjectID]models.Product
	orders   map[primitive.ObjectID]models.Order
	carts    map[primitive.ObjectID]models.Cart
	now      func() time.Time
}

func New() *Store {
	return &Store{
		users:    map[primitive.ObjectID]models.User{},
		products: map[primitive.ObjectID]models.Product{},
		orders:   map[primitive.ObjectID]models.Order{},
		carts:    map[primitive.ObjectID]models.Cart{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Users() repository.UserRepository       { return userRepo{s} }
func (s *Store) Products() repository.ProductRepository { return productRepo{s} }
func (s *Store) Orders() repository.OrderRepository     { return orderRepo{s} }
func (s *Store) Carts() repository.CartRepository       { return cartRepo{s} }

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepo) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.CreatedAt = prev.CreatedAt
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

type productRepo struct{ s *Store }

func (r productRepo) Create(_ context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.CreatedAt = r.s.now()
	product.UpdatedAt = product.CreatedAt
	r.s.products[product.ID] = *product
	return nil
}

func (r productRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r productRepo) List(_ context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Product{}
	for _, p := range r.s.products {
		if !filter.Owner.IsZero() && p.User != filter.Owner {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r productRepo) Update(_ context.Context, id primitive.ObjectID, changes repository.ProductChanges) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if changes.Title != nil {
		p.Title = *changes.Title
	}
	if changes.Description != nil {
		p.Description = *changes.Description
	}
	if changes.Category != nil {
		p.Category = *changes.Category
	}
	if changes.ImageURL != nil {
		p.ImageURL = *changes.ImageURL
	}
	if changes.Price != nil {
		p.Price = *changes.Price
	}
	if changes.Stock != nil {
		p.Stock = *changes.Stock
	}
	if changes.Discount != nil {
		p.Discount = *changes.Discount
	}
	if changes.CreatedBy != nil {
		p.CreatedBy = *changes.CreatedBy
	}
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return &p, nil
}

func (r productRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r productRepo) AdjustStock(_ context.Context, id primitive.ObjectID, delta int) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if delta < 0 && p.Stock < -delta {
		return nil, repository.ErrNotEnough
	}
	p.Stock += delta
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return &p, nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.IdempotencyKey != "" {
		for _, o := range r.s.orders {
			if o.User == order.User && o.IdempotencyKey == order.IdempotencyKey {
				return repository.ErrDuplicate
			}
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	order.CreatedAt = r.s.now()
	order.UpdatedAt = order.CreatedAt
	r.s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (r orderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (r orderRepo) GetByIdempotencyKey(_ context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, o := range r.s.orders {
		if o.User == userID && o.IdempotencyKey == key {
			o = cloneOrder(o)
			return &o, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r orderRepo) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.list(func(o models.Order) bool { return o.User == userID }), nil
}

func (r orderRepo) ListAll(_ context.Context) ([]models.Order, error) {
	return r.list(func(models.Order) bool { return true }), nil
}

func (r orderRepo) list(keep func(models.Order) bool) []models.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []models.Order{}
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	// newest first; ObjectIDs break ties between orders created in the same instant
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func (r orderRepo) MarkCancelled(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	return r.transition(id, func(o *models.Order) bool {
		if o.IsCancelled || o.IsDelivered {
			return false
		}
		o.IsCancelled = true
		o.CancelledAt = &at
		return true
	}, at)
}

func (r orderRepo) MarkDelivered(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Order, error) {
	return r.transition(id, func(o *models.Order) bool {
		if o.IsCancelled {
			return false
		}
		o.IsDelivered = true
		o.DeliveredAt = &at
		return true
	}, at)
}

func (r orderRepo) transition(id primitive.ObjectID, apply func(*models.Order) bool, at time.Time) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !apply(&o) {
		return nil, repository.ErrConflict
	}
	o.UpdatedAt = at
	r.s.orders[id] = o
	o = cloneOrder(o)
	return &o, nil
}

func cloneOrder(o models.Order) models.Order {
	o.OrderItems = append([]models.OrderItem(nil), o.OrderItems...)
	return o
}

type cartRepo struct{ s *Store }

func (r cartRepo) Get(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.carts[userID]
	if !ok {
		return &models.Cart{User: userID, Items: []models.CartItem{}}, nil
	}
	c.Items = append([]models.CartItem{}, c.Items...)
	return &c, nil
}

func (r cartRepo) Save(_ context.Context, cart *models.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if cart.ID.IsZero() {
		if prev, ok := r.s.carts[cart.User]; ok {
			cart.ID = prev.ID
		} else {
			cart.ID = primitive.NewObjectID()
		}
	}
	cart.UpdatedAt = r.s.now()
	c := *cart
	c.Items = append([]models.CartItem{}, cart.Items...)
	r.s.carts[cart.User] = c
	return nil
}

func (r cartRepo) Clear(_ context.Context, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c, ok := r.s.carts[userID]; ok {
		c.Items = []models.CartItem{}
		c.UpdatedAt = r.s.now()
		r.s.carts[userID] = c
	}
	return nil
}
